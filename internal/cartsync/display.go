package cartsync

import (
	"math/big"
	"strings"

	"github.com/smartbundles/bundles-server/internal/domain"
)

// DefaultTitle is shown when neither the label property nor the anchor's
// product title is available.
const DefaultTitle = "Bundle"

// SuppressedField is a per-line control hidden on dependent lines.
type SuppressedField string

const (
	SuppressPrice    SuppressedField = "price"
	SuppressQuantity SuppressedField = "quantity"
	SuppressRemove   SuppressedField = "remove"
)

// dependentSuppression is the same for every dependent: the anchor is the
// only interactive line of a group.
var dependentSuppression = []SuppressedField{SuppressPrice, SuppressQuantity, SuppressRemove}

// Projection is the summary rendered on the anchor line of a group.
type Projection struct {
	BundleKey       string                       `json:"bundle_key"`
	AnchorKey       string                       `json:"anchor_key"`
	Title           string                       `json:"title"`
	Quantity        int                          `json:"quantity"`
	UnitPriceMinor  int64                        `json:"unit_price_minor"`
	TotalPriceMinor int64                        `json:"total_price_minor"`
	DependentCount  int                          `json:"dependent_count"`
	Suppressed      map[string][]SuppressedField `json:"suppressed"`
}

// Project builds the display summary of a group. labelProperty names the
// anchor line property carrying the bundle title.
func Project(g domain.BundleGroup, labelProperty string) Projection {
	var total int64
	for _, m := range g.Members {
		total += m.UnitPriceMinor * int64(m.Quantity)
	}

	deps := g.Dependents()
	suppressed := make(map[string][]SuppressedField, len(deps))
	for _, d := range deps {
		suppressed[d.Key] = dependentSuppression
	}

	return Projection{
		BundleKey:       g.BundleKey,
		AnchorKey:       g.Anchor.Key,
		Title:           title(g.Anchor, labelProperty),
		Quantity:        g.Anchor.Quantity,
		UnitPriceMinor:  roundRat(big.NewRat(total, int64(max(g.Anchor.Quantity, 1)))).Int64(),
		TotalPriceMinor: total,
		DependentCount:  len(deps),
		Suppressed:      suppressed,
	}
}

func title(anchor domain.CartLine, labelProperty string) string {
	if labelProperty != "" {
		if label := strings.TrimSpace(anchor.Properties[labelProperty]); label != "" {
			return label
		}
	}
	if t := strings.TrimSpace(anchor.Title); t != "" {
		return t
	}
	return DefaultTitle
}
