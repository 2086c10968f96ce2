package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/search"
)

func TestBundleService_CreateAndGet(t *testing.T) {
	svc, _, _ := setupTestBundles(t)
	ctx := context.Background()

	in := validInput()
	in.ShopDomain = "Shop.Example.com"
	in.Items[1].Quantity = 0

	b, err := svc.CreateBundle(ctx, in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.ID, "bnd-"))
	assert.Equal(t, "shop.example.com", b.ShopDomain)
	assert.Equal(t, domain.BundleStatusActive, b.Status)
	require.Len(t, b.Items, 2)
	assert.True(t, strings.HasPrefix(b.Items[0].ID, "itm-"))
	assert.Equal(t, 0, b.Items[0].Position)
	assert.Equal(t, 1, b.Items[1].Position)
	assert.Equal(t, 1, b.Items[1].Quantity, "zero quantity defaults to one")

	got, err := svc.GetBundle(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Items, got.Items)
}

func TestBundleService_CreateDefaultsToDraft(t *testing.T) {
	svc, _, _ := setupTestBundles(t)

	in := validInput()
	in.Status = ""
	b, err := svc.CreateBundle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusDraft, b.Status)
}

func TestBundleService_CreateValidation(t *testing.T) {
	svc, _, _ := setupTestBundles(t)

	in := validInput()
	in.Items = nil
	in.ShopDomain = "not a domain"

	_, err := svc.CreateBundle(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	details := derr.Details.(map[string]string)
	assert.Contains(t, details, "items")
	assert.Contains(t, details, "shop_domain")
}

func TestBundleService_GetErrors(t *testing.T) {
	svc, _, _ := setupTestBundles(t)
	ctx := context.Background()

	_, err := svc.GetBundle(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.GetBundle(ctx, "bnd-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBundleService_Update(t *testing.T) {
	svc, _, _ := setupTestBundles(t)
	ctx := context.Background()

	b, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Title = "Reading Set"
	in.Items = in.Items[:1]
	updated, err := svc.UpdateBundle(ctx, b.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "Reading Set", updated.Title)
	assert.Len(t, updated.Items, 1)
	assert.True(t, updated.UpdatedAt.After(b.CreatedAt) || updated.UpdatedAt.Equal(b.CreatedAt))

	in.ShopDomain = "other.example.com"
	_, err = svc.UpdateBundle(ctx, b.ID, in)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.UpdateBundle(ctx, "bnd-missing", validInput())
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBundleService_Delete(t *testing.T) {
	svc, _, index := setupTestBundles(t)
	ctx := context.Background()

	b, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBundle(ctx, b.ID))

	_, err = svc.GetBundle(ctx, b.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.DeleteBundle(ctx, b.ID), domainerrors.ErrNotFound)
}

func TestBundleService_ListBundles(t *testing.T) {
	svc, _, _ := setupTestBundles(t)
	ctx := context.Background()

	first, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)
	second, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	bundles, err := svc.ListBundles(ctx, " SHOP.example.com ")
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	// Newest first; IDs break ties within the same timestamp.
	ids := []string{bundles[0].ID, bundles[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	assert.False(t, bundles[0].CreatedAt.Before(bundles[1].CreatedAt))

	_, err = svc.ListBundles(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBundleService_LastModified(t *testing.T) {
	svc, _, _ := setupTestBundles(t)
	ctx := context.Background()

	none, err := svc.LastModified(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	b, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.UpdateBundle(ctx, b.ID, validInput())
	require.NoError(t, err)

	got, err := svc.LastModified(ctx, "Shop.Example.com")
	require.NoError(t, err)
	assert.True(t, got.Equal(updated.UpdatedAt), "got %v, want %v", got, updated.UpdatedAt)

	_, err = svc.LastModified(ctx, "not a shop")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBundleService_SearchAndReindex(t *testing.T) {
	svc, _, index := setupTestBundles(t)
	ctx := context.Background()

	_, err := svc.CreateBundle(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.SearchBundles(ctx, search.Params{Query: "bulbs"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)

	_, err = svc.SearchBundles(ctx, search.Params{Status: "archived"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	require.NoError(t, index.Reindex(ctx, nil))
	count, _ := index.DocumentCount()
	require.Zero(t, count)

	require.NoError(t, svc.Reindex(ctx))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
