package providers

import (
	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/cart"
	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/logger"
)

// CatalogClientHandle wraps the catalog client with shutdown capability.
type CatalogClientHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalogClient provides the rate-limited product catalog client.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := catalog.New(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Catalog.BaseURL == "" {
		log.Warn("Catalog URL not configured - bundle options will be unavailable")
	}

	return &CatalogClientHandle{Client: client}, nil
}

// CartClientHandle wraps the storefront cart client.
type CartClientHandle struct {
	*cart.Client
}

// ProvideCartClient provides the storefront cart client.
func ProvideCartClient(i do.Injector) (*CartClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := cart.New(cart.Config{
		BaseURL:           cfg.Cart.BaseURL,
		Timeout:           cfg.Cart.MutationTimeout,
		BundleKeyProperty: cfg.Cart.BundleKeyProperty,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Cart.BaseURL == "" {
		log.Warn("Cart URL not configured - cart endpoints will fail")
	}

	return &CartClientHandle{Client: client}, nil
}
