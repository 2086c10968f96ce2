package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smartbundles/bundles-server/internal/cartsync"
	"github.com/smartbundles/bundles-server/internal/service"
)

func (s *Server) registerCartRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCartBundles",
		Method:      http.MethodGet,
		Path:        "/api/v1/cart/bundles",
		Summary:     "List cart bundles",
		Description: "Groups the cart's lines by bundle key and returns one summary per bundle",
		Tags:        []string{"Cart"},
	}, s.handleListCartBundles)

	huma.Register(s.api, huma.Operation{
		OperationID: "addCartBundle",
		Method:      http.MethodPost,
		Path:        "/api/v1/cart/bundles",
		Summary:     "Plan bundle add",
		Description: "Returns the cart lines to add for a bundle purchase, tagged with a fresh bundle key",
		Tags:        []string{"Cart"},
	}, s.handleAddCartBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "setCartBundleQuantity",
		Method:      http.MethodPut,
		Path:        "/api/v1/cart/bundles/{bundleKey}/quantity",
		Summary:     "Set bundle quantity",
		Description: "Sets the anchor quantity and rescales every dependent line. Zero removes the bundle.",
		Tags:        []string{"Cart"},
	}, s.handleSetCartBundleQuantity)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCartBundle",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cart/bundles/{bundleKey}",
		Summary:     "Remove bundle",
		Description: "Removes every line of a bundle from the cart",
		Tags:        []string{"Cart"},
	}, s.handleRemoveCartBundle)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCartLine",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cart/lines/{lineKey}",
		Summary:     "Remove bundle by line",
		Description: "Removes the whole bundle that contains the given cart line",
		Tags:        []string{"Cart"},
	}, s.handleRemoveCartLine)
}

// === DTOs ===

// CartTokenInput carries the storefront cart token.
type CartTokenInput struct {
	Cart string `cookie:"cart" required:"true" doc:"Storefront cart token"`
}

// CartBundlesResponse lists bundle summaries in cart order.
type CartBundlesResponse struct {
	Bundles []cartsync.Projection `json:"bundles" doc:"One summary per bundle group"`
}

// CartBundlesOutput wraps the cart bundle list for Huma.
type CartBundlesOutput struct {
	Body CartBundlesResponse
}

// AddCartBundleRequest is the body for planning a bundle add.
type AddCartBundleRequest struct {
	BundleID string `json:"bundle_id" minLength:"1" doc:"Bundle to add"`
	Quantity int    `json:"quantity,omitempty" doc:"Number of bundles (default 1)"`
}

// AddCartBundleInput wraps the add request for Huma.
type AddCartBundleInput struct {
	Body AddCartBundleRequest
}

// AddCartBundleOutput wraps the add plan for Huma.
type AddCartBundleOutput struct {
	Body *service.AddBundlePlan
}

// SetQuantityRequest is the body for changing a bundle's quantity.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" minimum:"0" maximum:"999" doc:"New anchor quantity; 0 removes the bundle"`
}

// SetQuantityInput contains parameters for changing a bundle's quantity.
type SetQuantityInput struct {
	Cart      string `cookie:"cart" required:"true" doc:"Storefront cart token"`
	BundleKey string `path:"bundleKey" doc:"Bundle correlation key"`
	Body      SetQuantityRequest
}

// BundleKeyInput identifies a bundle group in the cart.
type BundleKeyInput struct {
	Cart      string `cookie:"cart" required:"true" doc:"Storefront cart token"`
	BundleKey string `path:"bundleKey" doc:"Bundle correlation key"`
}

// LineKeyInput identifies a cart line.
type LineKeyInput struct {
	Cart    string `cookie:"cart" required:"true" doc:"Storefront cart token"`
	LineKey string `path:"lineKey" doc:"Cart line key"`
}

// MutationOutput wraps the outcome of a cart update for Huma.
type MutationOutput struct {
	Body *service.MutationOutcome
}

// === Handlers ===

func (s *Server) handleListCartBundles(ctx context.Context, input *CartTokenInput) (*CartBundlesOutput, error) {
	bundles, err := s.services.Cart.ListBundles(ctx, input.Cart)
	if err != nil {
		return nil, err
	}
	return &CartBundlesOutput{Body: CartBundlesResponse{Bundles: bundles}}, nil
}

func (s *Server) handleAddCartBundle(ctx context.Context, input *AddCartBundleInput) (*AddCartBundleOutput, error) {
	plan, err := s.services.Cart.PlanAdd(ctx, input.Body.BundleID, input.Body.Quantity)
	if err != nil {
		return nil, err
	}
	return &AddCartBundleOutput{Body: plan}, nil
}

func (s *Server) handleSetCartBundleQuantity(ctx context.Context, input *SetQuantityInput) (*MutationOutput, error) {
	out, err := s.services.Cart.SetQuantity(ctx, input.Cart, input.BundleKey, input.Body.Quantity)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: out}, nil
}

func (s *Server) handleRemoveCartBundle(ctx context.Context, input *BundleKeyInput) (*MutationOutput, error) {
	out, err := s.services.Cart.RemoveBundle(ctx, input.Cart, input.BundleKey)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: out}, nil
}

func (s *Server) handleRemoveCartLine(ctx context.Context, input *LineKeyInput) (*MutationOutput, error) {
	out, err := s.services.Cart.RemoveLine(ctx, input.Cart, input.LineKey)
	if err != nil {
		return nil, err
	}
	return &MutationOutput{Body: out}, nil
}
