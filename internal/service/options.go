package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/options"
	"github.com/smartbundles/bundles-server/internal/store"
)

const defaultMaxConcurrent = 4

// ItemSummary describes one bundle item for storefront rendering.
type ItemSummary struct {
	ItemID      string `json:"item_id"`
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty" doc:"Product description as Markdown"`
	Quantity    int    `json:"quantity"`
	PriceMinor  int64  `json:"price_minor"`
}

// ExcludedItem is a bundle item whose product could not be loaded.
type ExcludedItem struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// BundleOptions is a bundle's option partition plus the item data the
// storefront needs to render it.
type BundleOptions struct {
	BundleID       string                               `json:"bundle_id"`
	Title          string                               `json:"title"`
	SharedOptions  []domain.NormalizedOption            `json:"shared_options"`
	PerItemOptions map[string][]domain.NormalizedOption `json:"per_item_options"`
	Items          []ItemSummary                        `json:"items"`
	ExcludedItems  []ExcludedItem                       `json:"excluded_items"`
}

// OptionService loads product options for bundle items and reconciles them.
type OptionService struct {
	bundles       store.BundleStore
	catalog       catalog.Source
	cache         store.ProductCache
	maxConcurrent int
	logger        *slog.Logger
}

// NewOptionService creates a new option service. cache may be nil.
func NewOptionService(bundles store.BundleStore, source catalog.Source, cache store.ProductCache, maxConcurrent int, logger *slog.Logger) *OptionService {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &OptionService{
		bundles:       bundles,
		catalog:       source,
		cache:         cache,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// BundleOptions fetches every product of a bundle and partitions their
// options into shared and per-item sets. A product that cannot be fetched
// excludes its items; it never fails the call.
func (s *OptionService) BundleOptions(ctx context.Context, bundleID string) (*BundleOptions, error) {
	b, err := s.bundles.GetBundle(ctx, bundleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bundle %s not found", bundleID)
		}
		return nil, fmt.Errorf("get bundle: %w", err)
	}

	products, failures, err := s.fetchAll(ctx, b.DistinctProductIDs())
	if err != nil {
		return nil, err
	}

	result := &BundleOptions{
		BundleID:      b.ID,
		Title:         b.Title,
		Items:         make([]ItemSummary, 0, len(b.Items)),
		ExcludedItems: []ExcludedItem{},
	}

	reconcileItems := make([]domain.BundleItem, 0, len(b.Items))
	for _, item := range b.Items {
		p, ok := products[item.ProductID]
		if !ok {
			result.ExcludedItems = append(result.ExcludedItems, ExcludedItem{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Reason:    failures[item.ProductID],
			})
			continue
		}

		reconcileItems = append(reconcileItems, domain.BundleItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Options:   p.Options,
		})
		result.Items = append(result.Items, summarize(item, p))
	}

	rec := options.Reconcile(reconcileItems)
	result.SharedOptions = rec.SharedOptions
	result.PerItemOptions = rec.PerItemOptions

	s.logger.Debug("bundle options reconciled",
		"bundle_id", b.ID,
		"items", len(reconcileItems),
		"excluded", len(result.ExcludedItems),
		"shared", len(rec.SharedOptions),
	)
	return result, nil
}

// Reconcile partitions options of caller-supplied items.
func (s *OptionService) Reconcile(items []domain.BundleItem) domain.ReconciliationResult {
	return options.Reconcile(items)
}

// Product returns a catalog product, served from the cache when fresh.
func (s *OptionService) Product(ctx context.Context, productID string) (*catalog.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, productID)
		if err != nil {
			s.logger.Warn("product cache read failed", "product_id", productID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := s.catalog.FetchProduct(ctx, productID)
	if err != nil {
		// Drop the entry of a product the catalog no longer has.
		if s.cache != nil && errors.Is(err, catalog.ErrNotFound) {
			if delErr := s.cache.DeleteProduct(ctx, productID); delErr != nil {
				s.logger.Warn("product cache evict failed", "product_id", productID, "error", delErr)
			}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, p); err != nil {
			s.logger.Warn("product cache write failed", "product_id", productID, "error", err)
		}
	}
	return p, nil
}

// fetchAll loads products concurrently. Per-product failures are returned
// as reasons keyed by product ID; only cancellation aborts.
func (s *OptionService) fetchAll(ctx context.Context, productIDs []string) (map[string]*catalog.Product, map[string]string, error) {
	var (
		mu       sync.Mutex
		products = make(map[string]*catalog.Product, len(productIDs))
		failures = make(map[string]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, pid := range productIDs {
		g.Go(func() error {
			p, err := s.Product(gctx, pid)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("excluding bundle item: product unavailable", "product_id", pid, "error", err)
				mu.Lock()
				failures[pid] = exclusionReason(err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			products[pid] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return products, failures, nil
}

func exclusionReason(err error) string {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return "product not found"
	case errors.Is(err, catalog.ErrRateLimited):
		return "catalog rate limited"
	case errors.Is(err, catalog.ErrNotConfigured):
		return "catalog not configured"
	default:
		return "catalog unavailable"
	}
}

func summarize(item domain.BundleDefinitionItem, p *catalog.Product) ItemSummary {
	variantID := item.VariantID
	if variantID == "" {
		variantID = p.DefaultVariantID()
	}

	summary := ItemSummary{
		ItemID:      item.ID,
		ProductID:   item.ProductID,
		VariantID:   variantID,
		Title:       p.Title,
		Description: p.Description,
		Quantity:    item.Quantity,
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			summary.PriceMinor = v.PriceMinor
			break
		}
	}
	return summary
}
