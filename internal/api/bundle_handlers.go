package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/search"
	"github.com/smartbundles/bundles-server/internal/service"
)

func (s *Server) registerBundleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBundle",
		Method:        http.MethodPost,
		Path:          "/api/v1/bundles",
		Summary:       "Create bundle",
		Description:   "Creates a bundle definition. The first item becomes the cart anchor.",
		Tags:          []string{"Bundles"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBundles",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles",
		Summary:     "List bundles",
		Description: "Lists a shop's bundle definitions, newest first",
		Tags:        []string{"Bundles"},
	}, s.handleListBundles)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBundles",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles/search",
		Summary:     "Search bundles",
		Description: "Full-text search over bundle titles and descriptions",
		Tags:        []string{"Bundles"},
	}, s.handleSearchBundles)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBundle",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles/{id}",
		Summary:     "Get bundle",
		Description: "Returns a bundle definition with its items",
		Tags:        []string{"Bundles"},
	}, s.handleGetBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBundle",
		Method:      http.MethodPut,
		Path:        "/api/v1/bundles/{id}",
		Summary:     "Update bundle",
		Description: "Replaces a bundle definition and its items",
		Tags:        []string{"Bundles"},
	}, s.handleUpdateBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBundle",
		Method:      http.MethodDelete,
		Path:        "/api/v1/bundles/{id}",
		Summary:     "Delete bundle",
		Description: "Deletes a bundle definition",
		Tags:        []string{"Bundles"},
	}, s.handleDeleteBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexBundles",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Rebuilds the bundle search index from stored definitions",
		Tags:        []string{"Bundles"},
	}, s.handleReindex)
}

// === DTOs ===

// CreateBundleInput contains parameters for creating a bundle.
type CreateBundleInput struct {
	Body service.BundleInput
}

// UpdateBundleInput contains parameters for replacing a bundle.
type UpdateBundleInput struct {
	ID   string `path:"id" doc:"Bundle ID"`
	Body service.BundleInput
}

// BundleOutput wraps a single bundle for Huma.
type BundleOutput struct {
	Body *domain.Bundle
}

// ListBundlesInput contains parameters for listing bundles.
type ListBundlesInput struct {
	Shop string `query:"shop" required:"true" doc:"Shop hostname, e.g. example.myshopify.com"`
}

// ListBundlesResponse contains a shop's bundles.
type ListBundlesResponse struct {
	Bundles []*domain.Bundle `json:"bundles" doc:"Bundles, newest first"`
}

// ListBundlesOutput wraps the list response for Huma.
type ListBundlesOutput struct {
	LastModified string `header:"Last-Modified" doc:"Latest bundle update of the shop"`
	Body         ListBundlesResponse
}

// SearchBundlesInput contains parameters for searching bundles.
type SearchBundlesInput struct {
	Query   string `query:"q" doc:"Search text; empty lists newest first"`
	Shop    string `query:"shop" doc:"Restrict to one shop"`
	Status  string `query:"status" doc:"draft or active"`
	Product string `query:"product_id" doc:"Only bundles containing this product"`
	Limit   int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 20)"`
	Offset  int    `query:"offset" minimum:"0" doc:"Result offset"`
}

// SearchBundlesOutput wraps search results for Huma.
type SearchBundlesOutput struct {
	Body *search.Result
}

// BundleIDInput identifies a bundle by path.
type BundleIDInput struct {
	ID string `path:"id" doc:"Bundle ID"`
}

// MessageResponse is a simple acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Result message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleCreateBundle(ctx context.Context, input *CreateBundleInput) (*BundleOutput, error) {
	b, err := s.services.Bundles.CreateBundle(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &BundleOutput{Body: b}, nil
}

func (s *Server) handleListBundles(ctx context.Context, input *ListBundlesInput) (*ListBundlesOutput, error) {
	bundles, err := s.services.Bundles.ListBundles(ctx, input.Shop)
	if err != nil {
		return nil, err
	}

	out := &ListBundlesOutput{Body: ListBundlesResponse{Bundles: bundles}}
	if modified, err := s.services.Bundles.LastModified(ctx, input.Shop); err != nil {
		s.logger.Warn("failed to read shop checkpoint", "shop", input.Shop, "error", err)
	} else if !modified.IsZero() {
		out.LastModified = modified.UTC().Format(http.TimeFormat)
	}
	return out, nil
}

func (s *Server) handleSearchBundles(ctx context.Context, input *SearchBundlesInput) (*SearchBundlesOutput, error) {
	res, err := s.services.Bundles.SearchBundles(ctx, search.Params{
		Query:      input.Query,
		ShopDomain: input.Shop,
		Status:     input.Status,
		ProductID:  input.Product,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchBundlesOutput{Body: res}, nil
}

func (s *Server) handleGetBundle(ctx context.Context, input *BundleIDInput) (*BundleOutput, error) {
	b, err := s.services.Bundles.GetBundle(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BundleOutput{Body: b}, nil
}

func (s *Server) handleUpdateBundle(ctx context.Context, input *UpdateBundleInput) (*BundleOutput, error) {
	b, err := s.services.Bundles.UpdateBundle(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BundleOutput{Body: b}, nil
}

func (s *Server) handleDeleteBundle(ctx context.Context, input *BundleIDInput) (*MessageOutput, error) {
	if err := s.services.Bundles.DeleteBundle(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Bundle deleted"}}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	if err := s.services.Bundles.Reindex(ctx); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Search index rebuilt"}}, nil
}
