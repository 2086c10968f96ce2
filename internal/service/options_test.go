package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/store/cache"
)

func lampAndBulb() []*catalog.Product {
	return []*catalog.Product{
		{
			ID:          "p-lamp",
			Title:       "Desk Lamp",
			Description: "A **brass** lamp",
			Options: []domain.ProductOption{
				{Name: "Finish", Values: []string{"Brass", "Chrome"}},
				{Name: "Shade", Values: []string{"Linen", "Glass"}},
			},
			Variants: []catalog.Variant{
				{ID: "v-lamp-red", PriceMinor: 4999},
				{ID: "v-lamp-blue", PriceMinor: 5199},
			},
		},
		{
			ID:    "p-bulb",
			Title: "Bulb",
			Options: []domain.ProductOption{
				{Name: "finish", Values: []string{"chrome", "brass"}},
				{Name: "Wattage", Values: []string{"40W", "60W"}},
			},
			Variants: []catalog.Variant{{ID: "v-bulb", PriceMinor: 499}},
		},
	}
}

func setupTestOptions(t *testing.T, source catalog.Source) (*OptionService, *BundleService) {
	t.Helper()
	bundles, st, _ := setupTestBundles(t)

	c, err := cache.Open(cache.Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return NewOptionService(st, source, c, 2, testLogger()), bundles
}

func TestOptionService_BundleOptions(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()...)
	svc, bundles := setupTestOptions(t, source)
	ctx := context.Background()

	b, err := bundles.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.BundleOptions(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, b.ID, res.BundleID)
	assert.Equal(t, "Desk Set", res.Title)
	assert.Empty(t, res.ExcludedItems)

	require.Len(t, res.SharedOptions, 1)
	assert.Equal(t, "Finish", res.SharedOptions[0].Name)
	assert.Equal(t, []string{"Brass", "Chrome"}, res.SharedOptions[0].Values)

	lampID, bulbID := b.Items[0].ID, b.Items[1].ID
	require.Len(t, res.PerItemOptions[lampID], 1)
	assert.Equal(t, "Shade", res.PerItemOptions[lampID][0].Name)
	require.Len(t, res.PerItemOptions[bulbID], 1)
	assert.Equal(t, "Wattage", res.PerItemOptions[bulbID][0].Name)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "v-lamp-red", res.Items[0].VariantID)
	assert.Equal(t, int64(4999), res.Items[0].PriceMinor)
	assert.Equal(t, "A **brass** lamp", res.Items[0].Description)
	assert.Equal(t, "v-bulb", res.Items[1].VariantID, "unpinned items use the first variant")
	assert.Equal(t, 2, res.Items[1].Quantity)
}

func TestOptionService_ExcludesUnavailableProducts(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()[0])
	svc, bundles := setupTestOptions(t, source)
	ctx := context.Background()

	b, err := bundles.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.BundleOptions(ctx, b.ID)
	require.NoError(t, err)

	require.Len(t, res.ExcludedItems, 1)
	assert.Equal(t, "p-bulb", res.ExcludedItems[0].ProductID)
	assert.Equal(t, "product not found", res.ExcludedItems[0].Reason)

	// A single remaining item shares nothing.
	assert.Empty(t, res.SharedOptions)
	assert.Len(t, res.PerItemOptions[b.Items[0].ID], 2)
	assert.NotContains(t, res.PerItemOptions, b.Items[1].ID)
}

func TestOptionService_UsesCache(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()...)
	svc, bundles := setupTestOptions(t, source)
	ctx := context.Background()

	b, err := bundles.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	for range 3 {
		_, err := svc.BundleOptions(ctx, b.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.fetchCount("p-lamp"))
	assert.Equal(t, 1, source.fetchCount("p-bulb"))
}

// staleCache never hits and records evictions.
type staleCache struct {
	deleted []string
}

func (c *staleCache) GetProduct(context.Context, string) (*catalog.Product, error) { return nil, nil }
func (c *staleCache) SetProduct(context.Context, *catalog.Product) error { return nil }
func (c *staleCache) DeleteProduct(_ context.Context, productID string) error {
	c.deleted = append(c.deleted, productID)
	return nil
}

func TestOptionService_EvictsMissingProducts(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()...)
	_, st, _ := setupTestBundles(t)
	c := &staleCache{}
	svc := NewOptionService(st, source, c, 0, testLogger())

	_, err := svc.Product(context.Background(), "p-gone")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.Product(context.Background(), "p-lamp")
	require.NoError(t, err)

	assert.Equal(t, []string{"p-gone"}, c.deleted)
}

func TestOptionService_WithoutCache(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()...)
	_, st, _ := setupTestBundles(t)
	svc := NewOptionService(st, source, nil, 0, testLogger())

	_, err := svc.Product(context.Background(), "p-lamp")
	require.NoError(t, err)
	_, err = svc.Product(context.Background(), "p-lamp")
	require.NoError(t, err)
	assert.Equal(t, 2, source.fetchCount("p-lamp"))
}

func TestOptionService_BundleNotFound(t *testing.T) {
	svc, _ := setupTestOptions(t, newFakeCatalog())

	_, err := svc.BundleOptions(context.Background(), "bnd-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestOptionService_Canceled(t *testing.T) {
	source := newFakeCatalog(lampAndBulb()...)
	svc, bundles := setupTestOptions(t, source)

	b, err := bundles.CreateBundle(context.Background(), validInput())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.BundleOptions(ctx, b.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExclusionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{catalog.ErrNotFound, "product not found"},
		{&catalog.Error{Op: "fetch", Err: catalog.ErrRateLimited}, "catalog rate limited"},
		{catalog.ErrNotConfigured, "catalog not configured"},
		{catalog.ErrServer, "catalog unavailable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exclusionReason(tt.err))
	}
}
