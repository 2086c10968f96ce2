// Package store defines the persistence interfaces for the bundles server.
package store

import (
	"context"
	"time"

	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
)

// BundleStore persists merchant bundle definitions.
type BundleStore interface {
	CreateBundle(ctx context.Context, b *domain.Bundle) error
	GetBundle(ctx context.Context, id string) (*domain.Bundle, error)
	UpdateBundle(ctx context.Context, b *domain.Bundle) error
	DeleteBundle(ctx context.Context, id string) error
	// ListBundlesByShop returns a shop's bundles, newest first.
	ListBundlesByShop(ctx context.Context, shopDomain string) ([]*domain.Bundle, error)
	ListAllBundles(ctx context.Context) ([]*domain.Bundle, error)
	// ShopCheckpoint returns the latest bundle update time of a shop, or
	// the zero time when it has no bundles.
	ShopCheckpoint(ctx context.Context, shopDomain string) (time.Time, error)
	Ping(ctx context.Context) error
}

// ProductCache holds recently fetched catalog products keyed by product ID.
// Get returns nil, nil on a miss or an expired entry.
type ProductCache interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
	SetProduct(ctx context.Context, p *catalog.Product) error
	DeleteProduct(ctx context.Context, productID string) error
}
