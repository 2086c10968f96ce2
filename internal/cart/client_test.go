package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/domain"
)

const cartFixture = `{
  "token": "c1",
  "items": [
    {"key": "1:a", "variant_id": 11, "product_id": 1, "quantity": 2, "price": 1000,
     "product_title": "Desk Lamp", "title": "Desk Lamp - Brass",
     "properties": {"_bundle_key": "bk-1", "Bundle": "Desk Set"}},
    {"key": "2:b", "variant_id": 22, "product_id": 2, "quantity": 4, "price": 250,
     "product_title": "Bulb", "properties": {"_bundle_key": "bk-1", "_pos": 2}},
    {"key": "3:c", "variant_id": 33, "product_id": 3, "quantity": 1, "price": 500,
     "product_title": "Mug", "properties": null}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	client.http = server.Client()
	return client
}

func TestClient_ReadCart(t *testing.T) {
	var gotCookie string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart.js", r.URL.Path)
		if c, err := r.Cookie(CookieName); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(cartFixture))
	})

	lines, err := client.ReadCart(context.Background(), "tok-123")
	require.NoError(t, err)

	assert.Equal(t, "tok-123", gotCookie)
	require.Len(t, lines, 3)

	assert.Equal(t, domain.CartLine{
		Key:            "1:a",
		BundleKey:      "bk-1",
		ProductID:      "1",
		VariantID:      "11",
		Title:          "Desk Lamp",
		Quantity:       2,
		UnitPriceMinor: 1000,
		Properties:     map[string]string{"_bundle_key": "bk-1", "Bundle": "Desk Set"},
	}, lines[0])
	assert.Equal(t, "2", lines[1].Properties["_pos"])
	assert.Empty(t, lines[2].BundleKey)
}

func TestClient_Mutate(t *testing.T) {
	var gotUpdates map[string]int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/update.js", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Updates map[string]int `json:"updates"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		gotUpdates = payload.Updates

		// The cart caps line 2:b at 8 and drops 3:c.
		w.Write([]byte(`{"items": [
			{"key": "1:a", "quantity": 5, "price": 1000, "properties": {"_bundle_key": "bk-1"}},
			{"key": "2:b", "quantity": 8, "price": 250, "properties": {"_bundle_key": "bk-1"}}
		]}`))
	})

	batch := []domain.QuantityMutation{{Key: "1:a", Quantity: 5}, {Key: "2:b", Quantity: 10}, {Key: "3:c", Quantity: 0}}
	result, err := client.Mutate(context.Background(), "tok", batch)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"1:a": 5, "2:b": 10, "3:c": 0}, gotUpdates)
	assert.Equal(t, []string{"1:a", "3:c"}, result.Applied)
	assert.Equal(t, []string{"2:b"}, result.Failed)
	assert.False(t, result.Complete())
	assert.Len(t, result.Lines, 2)
}

func TestClient_MutateEmptyBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	result, err := client.Mutate(context.Background(), "tok", nil)
	require.NoError(t, err)
	assert.True(t, result.Complete())
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		permanent bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "conflict", status: http.StatusConflict, wantErr: ErrConflict},
		{name: "server error", status: http.StatusServiceUnavailable, wantErr: ErrServer},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, wantErr: ErrRejected, permanent: true},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ErrRejected, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			})

			_, err := client.Mutate(context.Background(), "tok", []domain.QuantityMutation{{Key: "k", Quantity: 1}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.permanent, IsPermanent(err))

			var cartErr *Error
			require.True(t, errors.As(err, &cartErr))
			assert.Equal(t, tt.status, cartErr.Status)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client, err := New(Config{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = client.ReadCart(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.True(t, IsPermanent(err))
}
