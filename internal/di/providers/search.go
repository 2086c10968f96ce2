package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/logger"
	"github.com/smartbundles/bundles-server/internal/search"
	"github.com/smartbundles/bundles-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve bundle index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.Open(search.Options{
		DataPath: cfg.Storage.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "fresh", index.Fresh)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index in the background when
// it was created empty while bundles already exist.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bundles := do.MustInvoke[*service.BundleService](i)
	log := do.MustInvoke[*logger.Logger](i)

	if docCount, _ := indexHandle.DocumentCount(); !indexHandle.Fresh && docCount > 0 {
		return
	}

	ctx := context.Background()
	existing, err := storeHandle.ListAllBundles(ctx)
	if err != nil || len(existing) == 0 {
		return
	}

	log.Info("Search index is empty but bundles exist, triggering reindex",
		"bundle_count", len(existing),
	)

	go func() {
		if err := bundles.Reindex(context.Background()); err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Search reindex completed", "documents", count)
	}()
}
