package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/service"
)

func (s *Server) registerOptionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBundleOptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles/{id}/options",
		Summary:     "Get bundle options",
		Description: "Fetches every item's product options and splits them into shared and per-item selections",
		Tags:        []string{"Options"},
	}, s.handleGetBundleOptions)

	huma.Register(s.api, huma.Operation{
		OperationID: "reconcileOptions",
		Method:      http.MethodPost,
		Path:        "/api/v1/options/reconcile",
		Summary:     "Reconcile options",
		Description: "Splits the options of caller-supplied items into shared and per-item selections",
		Tags:        []string{"Options"},
	}, s.handleReconcileOptions)
}

// BundleOptionsOutput wraps a bundle's option partition for Huma.
type BundleOptionsOutput struct {
	Body *service.BundleOptions
}

// ReconcileRequest is the body for reconciling arbitrary items.
type ReconcileRequest struct {
	Items []domain.BundleItem `json:"items" maxItems:"100" doc:"Items with their raw product options"`
}

// ReconcileInput wraps the reconcile request for Huma.
type ReconcileInput struct {
	Body ReconcileRequest
}

// ReconcileOutput wraps the reconciliation result for Huma.
type ReconcileOutput struct {
	Body domain.ReconciliationResult
}

func (s *Server) handleGetBundleOptions(ctx context.Context, input *BundleIDInput) (*BundleOptionsOutput, error) {
	opts, err := s.services.Options.BundleOptions(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BundleOptionsOutput{Body: opts}, nil
}

func (s *Server) handleReconcileOptions(_ context.Context, input *ReconcileInput) (*ReconcileOutput, error) {
	return &ReconcileOutput{Body: s.services.Options.Reconcile(input.Body.Items)}, nil
}
