package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/store"
)

func TestEnvelopeTransformer(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "success",
			in:   map[string]string{"id": "bnd-1"},
			want: `{"v":1,"success":true,"data":{"id":"bnd-1"}}`,
		},
		{
			name: "success with null data",
			in:   nil,
			want: `{"v":1,"success":true}`,
		},
		{
			name: "plain error",
			in:   errors.New("boom"),
			want: `{"v":1,"success":false,"error":"boom"}`,
		},
		{
			name: "api error",
			in:   &APIError{status: http.StatusNotFound, Code: "NOT_FOUND", Message: "bundle not found"},
			want: `{"v":1,"success":false,"error":"bundle not found","code":"NOT_FOUND"}`,
		},
		{
			name: "api error with details",
			in: &APIError{
				status:  http.StatusBadRequest,
				Code:    "VALIDATION",
				Message: "validation failed",
				Details: map[string]string{"title": "is required"},
			},
			want: `{"v":1,"success":false,"code":"VALIDATION","message":"validation failed","details":{"title":"is required"}}`,
		},
		{
			name: "domain error with details",
			in: domainerrors.Upstream("cart update incomplete").
				WithDetails(map[string]any{"failed_keys": []string{"bulb"}}),
			want: `{"v":1,"success":false,"code":"UPSTREAM","message":"cart update incomplete","details":{"failed_keys":["bulb"]}}`,
		},
		{
			name: "store error",
			in:   store.ErrNotFound,
			want: `{"v":1,"success":false,"error":"resource not found","code":"NOT_FOUND"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EnvelopeTransformer(nil, "200", tt.in)
			require.NoError(t, err)

			got, err := json.Marshal(out)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEnvelopeTransformer_AlreadyWrapped(t *testing.T) {
	env := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: "x"}

	out, err := EnvelopeTransformer(nil, "200", env)

	require.NoError(t, err)
	assert.Equal(t, env, out)
}

func TestRegisterErrorHandler(t *testing.T) {
	RegisterErrorHandler()

	t.Run("domain error keeps its status", func(t *testing.T) {
		err := huma.NewError(http.StatusInternalServerError, "unexpected", domainerrors.Conflict("bundle is not active"))

		assert.Equal(t, http.StatusConflict, err.GetStatus())
		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, "CONFLICT", apiErr.Code)
	})

	t.Run("store error", func(t *testing.T) {
		err := huma.NewError(http.StatusInternalServerError, "unexpected", store.ErrAlreadyExists)

		assert.Equal(t, http.StatusConflict, err.GetStatus())
	})

	t.Run("request validation becomes 400", func(t *testing.T) {
		err := huma.NewError(http.StatusUnprocessableEntity, "validation failed", &huma.ErrorDetail{
			Location: "body.title",
			Message:  "expected required property title to be present",
		})

		assert.Equal(t, http.StatusBadRequest, err.GetStatus())
		apiErr := err.(*APIError)
		assert.Equal(t, "VALIDATION", apiErr.Code)
		assert.Equal(t, map[string]string{"body.title": "expected required property title to be present"}, apiErr.Details)
	})

	t.Run("unknown status", func(t *testing.T) {
		err := huma.NewError(http.StatusTeapot, "short and stout")

		assert.Equal(t, http.StatusTeapot, err.GetStatus())
		assert.Equal(t, "INTERNAL", err.(*APIError).Code)
	})
}
