package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/id"
	"github.com/smartbundles/bundles-server/internal/search"
	"github.com/smartbundles/bundles-server/internal/store"
	"github.com/smartbundles/bundles-server/internal/validation"
)

// BundleIndex keeps the full-text index in step with stored bundles.
type BundleIndex interface {
	IndexBundle(ctx context.Context, b *domain.Bundle) error
	DeleteBundle(ctx context.Context, bundleID string) error
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	Reindex(ctx context.Context, bundles []*domain.Bundle) error
}

// BundleItemInput is one product of a bundle definition request.
type BundleItemInput struct {
	ProductID string `json:"product_id" validate:"notblank,max=64" doc:"Catalog product ID"`
	VariantID string `json:"variant_id,omitempty" validate:"max=64" doc:"Variant to add; empty uses the product's first variant"`
	Quantity  int    `json:"quantity,omitempty" validate:"gte=0,lte=999" doc:"Units per bundle (default 1)"`
}

// BundleInput creates or replaces a bundle definition.
type BundleInput struct {
	ShopDomain  string            `json:"shop_domain" validate:"required,shop_domain" doc:"Shop hostname"`
	Title       string            `json:"title" validate:"notblank,max=255" doc:"Bundle title"`
	Description string            `json:"description,omitempty" validate:"max=20000" doc:"Description, HTML allowed"`
	Status      string            `json:"status,omitempty" validate:"omitempty,oneof=draft active" doc:"draft or active (default draft)"`
	Items       []BundleItemInput `json:"items" validate:"min=1,max=50,dive" doc:"Products in display order; the first is the cart anchor"`
}

// BundleService manages bundle definitions and their search index.
type BundleService struct {
	store     store.BundleStore
	index     BundleIndex
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBundleService creates a new bundle service.
func NewBundleService(store store.BundleStore, index BundleIndex, validator *validation.Validator, logger *slog.Logger) *BundleService {
	return &BundleService{
		store:     store,
		index:     index,
		validator: validator,
		logger:    logger,
	}
}

// CreateBundle validates and stores a new bundle definition.
func (s *BundleService) CreateBundle(ctx context.Context, in BundleInput) (*domain.Bundle, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	bundleID, err := id.Generate(id.PrefixBundle)
	if err != nil {
		return nil, fmt.Errorf("generate bundle ID: %w", err)
	}

	now := time.Now()
	b := &domain.Bundle{
		ID:        bundleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyInput(b, in); err != nil {
		return nil, err
	}

	if err := s.store.CreateBundle(ctx, b); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("bundle already exists").WithCause(err)
		}
		return nil, fmt.Errorf("create bundle: %w", err)
	}

	s.reindexOne(ctx, b)
	s.logger.Info("bundle created", "bundle_id", b.ID, "shop", b.ShopDomain, "items", len(b.Items))
	return b, nil
}

// GetBundle returns a bundle with its items.
func (s *BundleService) GetBundle(ctx context.Context, bundleID string) (*domain.Bundle, error) {
	if strings.TrimSpace(bundleID) == "" {
		return nil, domainerrors.Validation("bundle id is required")
	}

	b, err := s.store.GetBundle(ctx, bundleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bundle %s not found", bundleID)
		}
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	return b, nil
}

// UpdateBundle replaces a bundle's fields and items. ID, shop and creation
// time are kept.
func (s *BundleService) UpdateBundle(ctx context.Context, bundleID string, in BundleInput) (*domain.Bundle, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	b, err := s.GetBundle(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(b.ShopDomain, in.ShopDomain) {
		return nil, domainerrors.Validation("shop_domain cannot change")
	}

	if err := applyInput(b, in); err != nil {
		return nil, err
	}
	b.Touch()

	if err := s.store.UpdateBundle(ctx, b); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bundle %s not found", bundleID)
		}
		return nil, fmt.Errorf("update bundle: %w", err)
	}

	s.reindexOne(ctx, b)
	s.logger.Info("bundle updated", "bundle_id", b.ID, "items", len(b.Items))
	return b, nil
}

// DeleteBundle removes a bundle definition.
func (s *BundleService) DeleteBundle(ctx context.Context, bundleID string) error {
	if err := s.store.DeleteBundle(ctx, bundleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("bundle %s not found", bundleID)
		}
		return fmt.Errorf("delete bundle: %w", err)
	}

	if err := s.index.DeleteBundle(ctx, bundleID); err != nil {
		s.logger.Warn("failed to remove bundle from search index", "bundle_id", bundleID, "error", err)
	}
	s.logger.Info("bundle deleted", "bundle_id", bundleID)
	return nil
}

// ListBundles returns a shop's bundles, newest first.
func (s *BundleService) ListBundles(ctx context.Context, shopDomain string) ([]*domain.Bundle, error) {
	shopDomain, err := s.shop(shopDomain)
	if err != nil {
		return nil, err
	}

	bundles, err := s.store.ListBundlesByShop(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	return bundles, nil
}

// LastModified returns when any of a shop's bundles last changed. Deletions
// are not tracked; a shop whose last bundle was deleted reports the zero time.
func (s *BundleService) LastModified(ctx context.Context, shopDomain string) (time.Time, error) {
	shopDomain, err := s.shop(shopDomain)
	if err != nil {
		return time.Time{}, err
	}

	t, err := s.store.ShopCheckpoint(ctx, shopDomain)
	if err != nil {
		return time.Time{}, fmt.Errorf("shop checkpoint: %w", err)
	}
	return t, nil
}

func (s *BundleService) shop(shopDomain string) (string, error) {
	shopDomain = strings.ToLower(strings.TrimSpace(shopDomain))
	if err := s.validator.Var("shop", shopDomain, "required,shop_domain"); err != nil {
		return "", err
	}
	return shopDomain, nil
}

// SearchBundles runs a full-text query over bundle definitions.
func (s *BundleService) SearchBundles(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.Status != "" && !domain.BundleStatus(params.Status).Valid() {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"status": "must be one of: draft active",
		})
	}
	return s.index.Search(ctx, params)
}

// Reindex rebuilds the search index from the store.
func (s *BundleService) Reindex(ctx context.Context) error {
	bundles, err := s.store.ListAllBundles(ctx)
	if err != nil {
		return fmt.Errorf("list bundles: %w", err)
	}
	if err := s.index.Reindex(ctx, bundles); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return nil
}

// reindexOne updates the index after a write. The store is the source of
// truth, so a failure is logged and the write still succeeds.
func (s *BundleService) reindexOne(ctx context.Context, b *domain.Bundle) {
	if err := s.index.IndexBundle(ctx, b); err != nil {
		s.logger.Warn("failed to index bundle", "bundle_id", b.ID, "error", err)
	}
}

// applyInput copies validated input onto b, generating item IDs.
func applyInput(b *domain.Bundle, in BundleInput) error {
	b.ShopDomain = strings.ToLower(strings.TrimSpace(in.ShopDomain))
	b.Title = strings.TrimSpace(in.Title)
	b.Description = strings.TrimSpace(in.Description)
	b.Status = domain.BundleStatusDraft
	if in.Status != "" {
		b.Status = domain.BundleStatus(in.Status)
	}

	items := make([]domain.BundleDefinitionItem, 0, len(in.Items))
	for i, it := range in.Items {
		itemID, err := id.Generate(id.PrefixItem)
		if err != nil {
			return fmt.Errorf("generate item ID: %w", err)
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, domain.BundleDefinitionItem{
			ID:        itemID,
			BundleID:  b.ID,
			ProductID: strings.TrimSpace(it.ProductID),
			VariantID: strings.TrimSpace(it.VariantID),
			Quantity:  qty,
			Position:  i,
		})
	}
	b.Items = items
	return nil
}
