package domain

import (
	"slices"
	"time"
)

// BundleStatus controls whether a bundle is offered on the storefront.
type BundleStatus string

const (
	BundleStatusDraft  BundleStatus = "draft"
	BundleStatusActive BundleStatus = "active"
)

// Valid reports whether s is a known status.
func (s BundleStatus) Valid() bool {
	return s == BundleStatusDraft || s == BundleStatusActive
}

// Bundle is a merchant-defined grouping of products sold together.
// Items are ordered by Position; the first item becomes the anchor line
// when the bundle is added to a cart.
type Bundle struct {
	ID          string                 `json:"id"`
	ShopDomain  string                 `json:"shop_domain"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Status      BundleStatus           `json:"status"`
	Items       []BundleDefinitionItem `json:"items"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// BundleDefinitionItem is one product slot in a stored bundle.
type BundleDefinitionItem struct {
	ID        string `json:"id"`
	BundleID  string `json:"bundle_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Position  int    `json:"position"`
}

// Touch updates the UpdatedAt timestamp.
func (b *Bundle) Touch() {
	b.UpdatedAt = time.Now()
}

// SortItems orders items by Position, keeping insertion order for ties.
func (b *Bundle) SortItems() {
	slices.SortStableFunc(b.Items, func(x, y BundleDefinitionItem) int {
		return x.Position - y.Position
	})
}

// DistinctProductIDs returns each product referenced by the bundle once,
// in item order.
func (b *Bundle) DistinctProductIDs() []string {
	seen := make(map[string]bool, len(b.Items))
	ids := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}
