package domain

// ProductOption is one configurable axis of a catalog product,
// e.g. "Finish" with values ["Brass", "Chrome"].
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// NormalizedOption is a ProductOption after trimming, de-duplication and
// collated sorting. Name and values keep the casing first seen upstream;
// comparisons between options ignore case.
type NormalizedOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// BundleItem is one product's membership in a bundle, as fed to option
// reconciliation. It is rebuilt for every request.
type BundleItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Options   []ProductOption `json:"options"`
}

// ReconciliationResult partitions each item's options into those chosen once
// for the whole bundle and those chosen per item.
//
// For every item, PerItemOptions[item.ID] and SharedOptions are disjoint and
// together equal the item's normalized option set.
type ReconciliationResult struct {
	SharedOptions  []NormalizedOption            `json:"shared_options"`
	PerItemOptions map[string][]NormalizedOption `json:"per_item_options"`
}
