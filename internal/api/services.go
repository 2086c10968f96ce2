package api

import (
	"context"

	"github.com/smartbundles/bundles-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Bundles *service.BundleService
	Options *service.OptionService
	Cart    *service.CartService
}

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecks names the dependencies reported by /health.
type HealthChecks map[string]Pinger
