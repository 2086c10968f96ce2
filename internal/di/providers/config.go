// Package providers contains dependency injection providers for the Smart Bundles server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/smartbundles/bundles-server/internal/config"
	"github.com/smartbundles/bundles-server/internal/logger"
	"github.com/smartbundles/bundles-server/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Smart Bundles server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"catalog_url", cfg.Catalog.BaseURL,
		"cart_url", cfg.Cart.BaseURL,
	)

	return log, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
