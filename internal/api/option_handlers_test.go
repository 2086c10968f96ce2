package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/service"
)

func addLampAndBulb(ts *testServer) {
	ts.catalog.add(&catalog.Product{
		ID:    "p-lamp",
		Title: "Desk Lamp",
		Options: []domain.ProductOption{
			{Name: "Finish", Values: []string{"Brass", "Chrome"}},
			{Name: "Shade", Values: []string{"Linen", "Glass"}},
		},
		Variants: []catalog.Variant{{ID: "v-lamp-brass", PriceMinor: 4500}},
	})
	ts.catalog.add(&catalog.Product{
		ID:    "p-bulb",
		Title: "Bulb",
		Options: []domain.ProductOption{
			{Name: "finish", Values: []string{"chrome", "brass"}},
		},
		Variants: []catalog.Variant{{ID: "v-bulb", PriceMinor: 300}},
	})
}

func TestGetBundleOptions(t *testing.T) {
	ts := setupTestServer(t)
	addLampAndBulb(ts)
	b := ts.createBundle(t, "active")

	resp := ts.api.Get("/api/v1/bundles/" + b.ID + "/options")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decodeEnvelope[service.BundleOptions](t, resp)
	require.Len(t, env.Data.SharedOptions, 1)
	assert.Equal(t, "Finish", env.Data.SharedOptions[0].Name)
	assert.Len(t, env.Data.Items, 2)
	assert.Empty(t, env.Data.ExcludedItems)

	lampItem := b.Items[0].ID
	require.Len(t, env.Data.PerItemOptions[lampItem], 1)
	assert.Equal(t, "Shade", env.Data.PerItemOptions[lampItem][0].Name)
}

func TestGetBundleOptions_MissingProductExcluded(t *testing.T) {
	ts := setupTestServer(t)
	ts.catalog.add(&catalog.Product{ID: "p-lamp", Title: "Desk Lamp"})
	b := ts.createBundle(t, "active")

	resp := ts.api.Get("/api/v1/bundles/" + b.ID + "/options")

	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope[service.BundleOptions](t, resp)
	require.Len(t, env.Data.ExcludedItems, 1)
	assert.Equal(t, "p-bulb", env.Data.ExcludedItems[0].ProductID)
}

func TestGetBundleOptions_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/bundles/bnd-missing/options")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReconcileOptions(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/options/reconcile", map[string]any{
		"items": []map[string]any{
			{
				"id":         "a",
				"product_id": "p1",
				"options": []map[string]any{
					{"name": "Size", "values": []string{"S", "M"}},
					{"name": "Title", "values": []string{"Default Title"}},
				},
			},
			{
				"id":         "b",
				"product_id": "p2",
				"options": []map[string]any{
					{"name": " size ", "values": []string{"m", "s"}},
					{"name": "Color", "values": []string{"Red"}},
				},
			},
		},
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decodeEnvelope[domain.ReconciliationResult](t, resp)
	require.Len(t, env.Data.SharedOptions, 1)
	assert.Equal(t, "Size", env.Data.SharedOptions[0].Name)
	assert.Empty(t, env.Data.PerItemOptions["a"])
	require.Len(t, env.Data.PerItemOptions["b"], 1)
	assert.Equal(t, "Color", env.Data.PerItemOptions["b"][0].Name)
}

func TestProxyBundle(t *testing.T) {
	ts := setupTestServer(t)
	addLampAndBulb(ts)
	active := ts.createBundle(t, "active")
	draft := ts.createBundle(t, "draft")

	t.Run("active bundle", func(t *testing.T) {
		resp := ts.api.Get("/proxy/bundle?id=" + active.ID)

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		env := decodeEnvelope[ProxyBundleResponse](t, resp)
		assert.Equal(t, active.ID, env.Data.ID)
		assert.Equal(t, "Desk Set", env.Data.Title)
		assert.Equal(t, "Lamp and **bulbs**", env.Data.Description)
		require.NotNil(t, env.Data.Options)
		assert.Len(t, env.Data.Options.SharedOptions, 1)
	})

	t.Run("draft is hidden", func(t *testing.T) {
		resp := ts.api.Get("/proxy/bundle?id=" + draft.ID)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		resp := ts.api.Get("/proxy/bundle?id=bnd-missing")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		resp := ts.api.Get("/proxy/bundle")

		require.Equal(t, http.StatusBadRequest, resp.Code)
		env := decodeEnvelope[any](t, resp)
		assert.Equal(t, "missing id", env.Error)
	})
}
