// Package search provides full-text search over bundle definitions using Bleve.
package search

import (
	"strings"

	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/htmltext"
)

// BundleDocument is the indexed form of a bundle definition.
type BundleDocument struct {
	ID          string   `json:"id"`
	ShopDomain  string   `json:"shop_domain"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	ProductIDs  []string `json:"product_ids,omitempty"`
	ItemCount   int      `json:"item_count"`
	CreatedAt   int64    `json:"created_at"` // Unix ms
}

// BundleToSearchDocument converts a bundle definition to its index form.
// The description is indexed as plain text so markup never matches a query.
func BundleToSearchDocument(b *domain.Bundle) *BundleDocument {
	return &BundleDocument{
		ID:          b.ID,
		ShopDomain:  strings.ToLower(b.ShopDomain),
		Title:       b.Title,
		Description: htmltext.ToPlainText(b.Description),
		Status:      string(b.Status),
		ProductIDs:  b.DistinctProductIDs(),
		ItemCount:   len(b.Items),
		CreatedAt:   b.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *BundleDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"shop_domain": d.ShopDomain,
		"title":       d.Title,
		"status":      d.Status,
		"item_count":  float64(d.ItemCount),
		"created_at":  float64(d.CreatedAt),
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.ProductIDs) > 0 {
		m["product_ids"] = d.ProductIDs
	}
	return m
}
