package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/smartbundles/bundles-server/internal/cart"
	"github.com/smartbundles/bundles-server/internal/cartsync"
	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/id"
	"github.com/smartbundles/bundles-server/internal/store"
)

const (
	defaultMutationAttempts = 4
	defaultMutationTimeout  = 20 * time.Second
	maxBundleQuantity       = 999
)

// ProductLookup resolves catalog products, used to pick a default variant
// for bundle items that do not pin one.
type ProductLookup interface {
	Product(ctx context.Context, productID string) (*catalog.Product, error)
}

// CartConfig holds the cart synchronization settings.
type CartConfig struct {
	BundleKeyProperty    string
	BundleLabelProperty  string
	MinDependentQuantity int
	MutationMaxAttempts  int
	MutationTimeout      time.Duration

	// InitialRetryInterval is the first backoff delay between batch attempts.
	InitialRetryInterval time.Duration
}

// MutationOutcome reports a batch that the cart fully reflects.
type MutationOutcome struct {
	BundleKey string                    `json:"bundle_key"`
	Mutations []domain.QuantityMutation `json:"mutations"`
	Attempts  int                       `json:"attempts"`
	// Bundle is the group after the update; nil once every line is gone.
	Bundle *cartsync.Projection `json:"bundle,omitempty"`
}

// LineAddition is one cart line to add for a bundle purchase.
type LineAddition struct {
	ItemID     string            `json:"item_id"`
	ProductID  string            `json:"product_id"`
	VariantID  string            `json:"variant_id"`
	Quantity   int               `json:"quantity"`
	Properties map[string]string `json:"properties"`
}

// AddBundlePlan lists the cart lines that together form one bundle
// purchase, anchor first.
type AddBundlePlan struct {
	BundleID  string         `json:"bundle_id"`
	BundleKey string         `json:"bundle_key"`
	Title     string         `json:"title"`
	Lines     []LineAddition `json:"items"`
}

// CartService presents bundle groups of a storefront cart and keeps their
// quantities in step.
type CartService struct {
	cart     cart.Source
	bundles  store.BundleStore
	products ProductLookup
	sync     cartsync.QuantitySync
	cfg      CartConfig
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(source cart.Source, bundles store.BundleStore, products ProductLookup, cfg CartConfig, logger *slog.Logger) *CartService {
	if cfg.BundleKeyProperty == "" {
		cfg.BundleKeyProperty = "_bundle_key"
	}
	if cfg.BundleLabelProperty == "" {
		cfg.BundleLabelProperty = "Bundle"
	}
	if cfg.MutationMaxAttempts <= 0 {
		cfg.MutationMaxAttempts = defaultMutationAttempts
	}
	if cfg.MutationTimeout <= 0 {
		cfg.MutationTimeout = defaultMutationTimeout
	}
	if cfg.InitialRetryInterval <= 0 {
		cfg.InitialRetryInterval = 200 * time.Millisecond
	}

	return &CartService{
		cart:     source,
		bundles:  bundles,
		products: products,
		sync:     cartsync.QuantitySync{MinDependentQuantity: cfg.MinDependentQuantity},
		cfg:      cfg,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// ListBundles returns the display projection of every bundle group in the
// cart, in cart order.
func (s *CartService) ListBundles(ctx context.Context, token string) ([]cartsync.Projection, error) {
	lines, err := s.readCart(ctx, token)
	if err != nil {
		return nil, err
	}

	groups := cartsync.Index(lines)
	projections := make([]cartsync.Projection, 0, len(groups))
	for _, g := range groups {
		projections = append(projections, cartsync.Project(g, s.cfg.BundleLabelProperty))
	}
	return projections, nil
}

// SetQuantity changes a bundle's anchor quantity and rescales every
// dependent line to keep the group's ratios.
func (s *CartService) SetQuantity(ctx context.Context, token, bundleKey string, quantity int) (*MutationOutcome, error) {
	if quantity < 0 || quantity > maxBundleQuantity {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"quantity": fmt.Sprintf("must be between 0 and %d", maxBundleQuantity),
		})
	}

	bundleKey = strings.TrimSpace(bundleKey)
	unlock := s.locks.Lock(bundleKey)
	defer unlock()

	g, err := s.group(ctx, token, bundleKey)
	if err != nil {
		return nil, err
	}

	batch := s.sync.OnAnchorQuantityChanged(g, quantity)
	return s.apply(ctx, token, bundleKey, batch)
}

// RemoveBundle zeroes every line of a bundle group.
func (s *CartService) RemoveBundle(ctx context.Context, token, bundleKey string) (*MutationOutcome, error) {
	bundleKey = strings.TrimSpace(bundleKey)
	unlock := s.locks.Lock(bundleKey)
	defer unlock()

	g, err := s.group(ctx, token, bundleKey)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, token, bundleKey, cartsync.RemoveBundle(g))
}

// RemoveLine removes whatever bundle group contains lineKey. Removing any
// member removes the whole group.
func (s *CartService) RemoveLine(ctx context.Context, token, lineKey string) (*MutationOutcome, error) {
	lines, err := s.readCart(ctx, token)
	if err != nil {
		return nil, err
	}
	g, ok := cartsync.GroupContaining(cartsync.Index(lines), lineKey)
	if !ok {
		return nil, domainerrors.NotFoundf("cart line %s is not part of a bundle", lineKey)
	}
	return s.RemoveBundle(ctx, token, g.BundleKey)
}

// PlanAdd builds the cart lines for quantity purchases of a stored bundle.
// Every line carries a fresh bundle key; the first item is the anchor.
func (s *CartService) PlanAdd(ctx context.Context, bundleID string, quantity int) (*AddBundlePlan, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > maxBundleQuantity {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"quantity": fmt.Sprintf("must be between 1 and %d", maxBundleQuantity),
		})
	}

	b, err := s.bundles.GetBundle(ctx, bundleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("bundle %s not found", bundleID)
		}
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	if b.Status != domain.BundleStatusActive {
		return nil, domainerrors.Conflict("bundle is not active")
	}
	if len(b.Items) == 0 {
		return nil, domainerrors.Conflict("bundle has no items")
	}
	b.SortItems()

	plan := &AddBundlePlan{
		BundleID:  b.ID,
		BundleKey: id.NewBundleKey(),
		Title:     b.Title,
		Lines:     make([]LineAddition, 0, len(b.Items)),
	}

	for _, item := range b.Items {
		variantID, err := s.resolveVariant(ctx, item)
		if err != nil {
			return nil, err
		}
		plan.Lines = append(plan.Lines, LineAddition{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			VariantID: variantID,
			Quantity:  item.Quantity * quantity,
			Properties: map[string]string{
				s.cfg.BundleKeyProperty:   plan.BundleKey,
				s.cfg.BundleLabelProperty: b.Title,
			},
		})
	}

	s.logger.Info("bundle add planned", "bundle_id", b.ID, "bundle_key", plan.BundleKey, "lines", len(plan.Lines))
	return plan, nil
}

func (s *CartService) resolveVariant(ctx context.Context, item domain.BundleDefinitionItem) (string, error) {
	if item.VariantID != "" {
		return item.VariantID, nil
	}
	if s.products == nil {
		return "", domainerrors.Upstreamf("no variant configured for product %s", item.ProductID)
	}

	p, err := s.products.Product(ctx, item.ProductID)
	if err != nil {
		return "", domainerrors.Wrapf(err, domainerrors.CodeUpstream, "resolve variant for product %s", item.ProductID)
	}
	variantID := p.DefaultVariantID()
	if variantID == "" {
		return "", domainerrors.Upstreamf("product %s has no variants", item.ProductID)
	}
	return variantID, nil
}

func (s *CartService) readCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	lines, err := s.cart.ReadCart(ctx, token)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "read cart")
	}
	return lines, nil
}

func (s *CartService) group(ctx context.Context, token, bundleKey string) (domain.BundleGroup, error) {
	bundleKey = strings.TrimSpace(bundleKey)
	if bundleKey == "" {
		return domain.BundleGroup{}, domainerrors.Validation("bundle key is required")
	}

	lines, err := s.readCart(ctx, token)
	if err != nil {
		return domain.BundleGroup{}, err
	}
	g, ok := cartsync.Find(cartsync.Index(lines), bundleKey)
	if !ok {
		return domain.BundleGroup{}, domainerrors.NotFoundf("bundle %s is not in the cart", bundleKey)
	}
	return g, nil
}

// incompleteError means the cart did not reflect every mutation of a batch.
type incompleteError struct {
	failed []string
}

func (e *incompleteError) Error() string {
	return fmt.Sprintf("cart did not apply %d mutation(s)", len(e.failed))
}

// apply submits the batch, resending all of it until the cart reflects
// every mutation. Mutations are absolute quantities, so resending is safe.
func (s *CartService) apply(ctx context.Context, token, bundleKey string, batch []domain.QuantityMutation) (*MutationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MutationTimeout)
	defer cancel()

	log := s.logger.With("bundle_key", bundleKey)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialRetryInterval

	attempts := 0
	var lastFailed []string
	operation := func() (cart.MutateResult, error) {
		attempts++
		res, err := s.cart.Mutate(ctx, token, batch)
		if err != nil {
			if cart.IsPermanent(err) {
				return res, backoff.Permanent(err)
			}
			lastFailed = mutationKeys(batch)
			return res, err
		}
		if !res.Complete() {
			lastFailed = res.Failed
			return res, &incompleteError{failed: res.Failed}
		}
		return res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.cfg.MutationMaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("cart mutation batch incomplete, retrying", "attempt", attempts, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		if cart.IsPermanent(err) {
			log.Error("cart rejected mutation batch", "error", err)
			return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "cart rejected the update").
				WithDetails(map[string]any{"failed_keys": mutationKeys(batch), "attempts": attempts})
		}
		failed := slices.Clone(lastFailed)
		if len(failed) == 0 {
			failed = mutationKeys(batch)
		}
		log.Error("cart mutation batch failed", "attempts", attempts, "failed_keys", failed, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "cart update did not complete").
			WithDetails(map[string]any{"failed_keys": failed, "attempts": attempts})
	}

	outcome := &MutationOutcome{
		BundleKey: bundleKey,
		Mutations: batch,
		Attempts:  attempts,
	}
	if g, ok := cartsync.Find(cartsync.Index(res.Lines), bundleKey); ok {
		p := cartsync.Project(g, s.cfg.BundleLabelProperty)
		outcome.Bundle = &p
	}

	log.Info("cart mutation batch applied", "mutations", len(batch), "attempts", attempts)
	return outcome, nil
}

func mutationKeys(batch []domain.QuantityMutation) []string {
	keys := make([]string, len(batch))
	for i, m := range batch {
		keys[i] = m.Key
	}
	return keys
}
