package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/logger"
	"github.com/smartbundles/bundles-server/internal/store/cache"
	"github.com/smartbundles/bundles-server/internal/store/sqlite"
)

// StoreHandle wraps the bundle store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite bundle store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, err
	}

	dbPath := cfg.Storage.DatabasePath()
	st, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: st}, nil
}

// ProductCacheHandle wraps the product cache with shutdown capability.
type ProductCacheHandle struct {
	*cache.Products
}

// Shutdown implements do.Shutdownable.
func (h *ProductCacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideProductCache provides the Badger-backed product option cache.
func ProvideProductCache(i do.Injector) (*ProductCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	products, err := cache.Open(cache.Options{
		Path: cfg.Storage.CachePath(),
		TTL:  cfg.Catalog.CacheTTL,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Product cache initialized",
		"path", cfg.Storage.CachePath(),
		"ttl", cfg.Catalog.CacheTTL,
	)

	return &ProductCacheHandle{Products: products}, nil
}
