package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/smartbundles/bundles-server/internal/domain"
)

// mappingVersion changes whenever buildIndexMapping does. A mismatch on
// startup drops the index; callers then Reindex from the bundle store.
const mappingVersion = "1"

// batchSize bounds memory during a full reindex.
const batchSize = 500

// Index wraps a Bleve index of bundle definitions.
//
// All methods are safe for concurrent use. Reindex takes the write lock
// while the index is swapped.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex

	// Fresh is true when Open created an empty index, either because none
	// existed or because the old one was dropped.
	Fresh bool
}

// Options configures the search index.
type Options struct {
	DataPath string // Directory for index storage
	Logger   *slog.Logger
}

// Open opens the bundle index under DataPath, creating it when missing,
// corrupted, or built with an older mapping.
func Open(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "bundles.bleve")
	versionPath := filepath.Join(opts.DataPath, "bundles.version")

	var (
		index bleve.Index
		err   error
	)

	if _, statErr := os.Stat(indexPath); statErr == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "new_version", mappingVersion)
		case string(version) != mappingVersion:
			logger.Info("search index mapping version changed, rebuilding",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	fresh := index == nil
	if fresh {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{index: index, path: indexPath, logger: logger, Fresh: fresh}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBundle adds or replaces a bundle in the index.
func (s *Index) IndexBundle(ctx context.Context, b *domain.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := BundleToSearchDocument(b)
	return s.index.Index(doc.ID, doc.ToMap())
}

// DeleteBundle removes a bundle from the index. Unknown IDs are not an error.
func (s *Index) DeleteBundle(ctx context.Context, bundleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(bundleID)
}

// DocumentCount returns the number of indexed bundles.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Ping reports whether the index can serve queries.
func (s *Index) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.DocumentCount()
	return err
}

// Reindex drops the index and rebuilds it from bundles in batches.
// It blocks every other operation until done.
func (s *Index) Reindex(ctx context.Context, bundles []*domain.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	for start := 0; start < len(bundles); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(bundles))

		batch := s.index.NewBatch()
		for _, b := range bundles[start:end] {
			doc := BundleToSearchDocument(b)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}

	s.logger.Info("rebuilt search index", "path", s.path, "bundles", len(bundles))
	return nil
}
