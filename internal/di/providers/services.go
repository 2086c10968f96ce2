package providers

import (
	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/logger"
	"github.com/smartbundles/bundles-server/internal/service"
	"github.com/smartbundles/bundles-server/internal/validation"
)

// ProvideBundleService provides the bundle definition service.
func ProvideBundleService(i do.Injector) (*service.BundleService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBundleService(storeHandle.Store, indexHandle.Index, validator, log.Logger), nil
}

// ProvideOptionService provides the option reconciliation service.
func ProvideOptionService(i do.Injector) (*service.OptionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*ProductCacheHandle](i)
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewOptionService(
		storeHandle.Store,
		catalogHandle.Client,
		cacheHandle.Products,
		cfg.Catalog.MaxConcurrent,
		log.Logger,
	), nil
}

// ProvideCartService provides the cart bundle sync service.
func ProvideCartService(i do.Injector) (*service.CartService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cartHandle := do.MustInvoke[*CartClientHandle](i)
	options := do.MustInvoke[*service.OptionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCartService(cartHandle.Client, storeHandle.Store, options, service.CartConfig{
		BundleKeyProperty:    cfg.Cart.BundleKeyProperty,
		BundleLabelProperty:  cfg.Cart.BundleLabelProperty,
		MinDependentQuantity: cfg.Cart.MinDependentQuantity,
		MutationMaxAttempts:  cfg.Cart.MutationMaxAttempts,
		MutationTimeout:      cfg.Cart.MutationTimeout,
	}, log.Logger), nil
}
