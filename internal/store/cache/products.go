// Package cache keeps recently fetched catalog products in Badger.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/store"
)

const (
	productPrefix = "catalog:product:"

	DefaultTTL = 6 * time.Hour
)

// Products is a Badger-backed store.ProductCache.
type Products struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

var _ store.ProductCache = (*Products)(nil)

// Options configures the product cache.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	TTL      time.Duration
}

// Open opens (or creates) the product cache.
func Open(opts Options, logger *slog.Logger) (*Products, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open product cache: %w", err)
	}

	if logger != nil {
		logger.Info("product cache opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", opts.TTL)
	}

	return &Products{db: db, ttl: opts.TTL, logger: logger, now: time.Now}, nil
}

func productKey(productID string) []byte {
	return fmt.Appendf(nil, "%s%s", productPrefix, productID)
}

// GetProduct returns the cached product.
// Returns nil, nil if not found or expired.
func (c *Products) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var product catalog.Product
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(productKey(productID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &product)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached product: %w", err)
	}

	// Badger expires on its own clock; FetchedAt guards entries written with
	// a longer TTL by an earlier configuration.
	if c.now().Sub(product.FetchedAt) > c.ttl {
		return nil, nil
	}

	return &product, nil
}

// SetProduct stores a product. A zero FetchedAt is stamped with now.
func (c *Products) SetProduct(ctx context.Context, p *catalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.ID == "" {
		return store.ErrInvalidInput.WithMessage("product id is required")
	}

	cached := *p
	if cached.FetchedAt.IsZero() {
		cached.FetchedAt = c.now()
	}

	data, err := json.Marshal(&cached)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(productKey(p.ID), data).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
}

// DeleteProduct removes a cached product. Deleting a missing key is not an error.
func (c *Products) DeleteProduct(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(productKey(productID))
	})
}

// Ping reports whether the cache is usable.
func (c *Products) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.IsClosed() {
		return errors.New("product cache is closed")
	}
	return nil
}

// Close closes the underlying database.
func (c *Products) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close product cache: %w", err)
	}
	return nil
}
