package domain

import "math/big"

// CartLine is one line of a storefront cart. Lines belonging to the same
// bundle purchase share a BundleKey; the cart itself knows nothing about
// the grouping.
type CartLine struct {
	Key            string            `json:"key"`
	BundleKey      string            `json:"bundle_key,omitempty"`
	ProductID      string            `json:"product_id,omitempty"`
	VariantID      string            `json:"variant_id,omitempty"`
	Title          string            `json:"title,omitempty"`
	Quantity       int               `json:"quantity"`
	UnitPriceMinor int64             `json:"unit_price_minor"`
	Properties     map[string]string `json:"properties,omitempty"`
}

// BundleGroup is the set of cart lines sharing one bundle key, in cart order.
// It is derived from cart state on every read and never stored.
type BundleGroup struct {
	BundleKey string
	Anchor    CartLine
	Members   []CartLine

	// Ratios maps each member key to its quantity relative to the anchor,
	// captured when the group was built. The anchor's own ratio is 1.
	Ratios map[string]*big.Rat
}

// Dependents returns every member except the anchor.
func (g BundleGroup) Dependents() []CartLine {
	if len(g.Members) <= 1 {
		return nil
	}
	return g.Members[1:]
}

// Size returns the number of lines in the group.
func (g BundleGroup) Size() int {
	return len(g.Members)
}

// QuantityMutation sets one cart line to an absolute quantity. Applying the
// same mutation twice has no further effect.
type QuantityMutation struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}
