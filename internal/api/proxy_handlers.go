package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/htmltext"
	"github.com/smartbundles/bundles-server/internal/service"
)

func (s *Server) registerProxyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "proxyBundle",
		Method:      http.MethodGet,
		Path:        "/proxy/bundle",
		Summary:     "Storefront bundle",
		Description: "Returns an active bundle with reconciled options for storefront rendering",
		Tags:        []string{"Storefront"},
	}, s.handleProxyBundle)
}

// ProxyBundleInput contains parameters for the storefront bundle lookup.
type ProxyBundleInput struct {
	ID string `query:"id" doc:"Bundle ID"`
}

// ProxyBundleResponse is what the storefront widget renders.
type ProxyBundleResponse struct {
	ID          string                 `json:"id" doc:"Bundle ID"`
	Title       string                 `json:"title" doc:"Bundle title"`
	Description string                 `json:"description,omitempty" doc:"Description as Markdown"`
	Options     *service.BundleOptions `json:"options" doc:"Item data and option partition"`
}

// ProxyBundleOutput wraps the storefront response for Huma.
type ProxyBundleOutput struct {
	Body ProxyBundleResponse
}

func (s *Server) handleProxyBundle(ctx context.Context, input *ProxyBundleInput) (*ProxyBundleOutput, error) {
	if input.ID == "" {
		return nil, domainerrors.Validation("missing id")
	}

	b, err := s.services.Bundles.GetBundle(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	// Drafts are invisible to shoppers.
	if b.Status != domain.BundleStatusActive {
		return nil, domainerrors.NotFoundf("bundle %s not found", input.ID)
	}

	opts, err := s.services.Options.BundleOptions(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	return &ProxyBundleOutput{
		Body: ProxyBundleResponse{
			ID:          b.ID,
			Title:       b.Title,
			Description: htmltext.ToMarkdown(b.Description),
			Options:     opts,
		},
	}, nil
}
