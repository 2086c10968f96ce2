// Package di provides dependency injection configuration for the Smart Bundles server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/di/providers"
	"github.com/smartbundles/bundles-server/internal/logger"
	"github.com/smartbundles/bundles-server/internal/service"
	"github.com/smartbundles/bundles-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to the injector. The configuration provider
// can be overridden afterwards, which tests use to avoid reading flags.
func Register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideProductCache)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Upstream clients
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideCartClient)

	// Business services
	do.Provide(injector, providers.ProvideBundleService)
	do.Provide(injector, providers.ProvideOptionService)
	do.Provide(injector, providers.ProvideCartService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and returns once the HTTP server is
// listening in the background.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	for _, invoke := range []func(do.Injector) error{
		invokeAs[*providers.StoreHandle],
		invokeAs[*providers.ProductCacheHandle],
		invokeAs[*providers.SearchIndexHandle],
		invokeAs[*providers.CatalogClientHandle],
		invokeAs[*providers.CartClientHandle],
		invokeAs[*service.BundleService],
		invokeAs[*service.OptionService],
		invokeAs[*service.CartService],
	} {
		if err := invoke(injector); err != nil {
			return err
		}
	}

	// Rebuild the search index if it was just created over existing data.
	providers.TriggerSearchReindexIfNeeded(injector)

	return invokeAs[*providers.HTTPServerHandle](injector)
}

func invokeAs[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
