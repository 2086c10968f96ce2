// Package cartsync treats the independent cart lines of one bundle purchase
// as a single unit: it groups lines by bundle key, keeps dependent quantities
// in ratio with the anchor line, cascades removal, and builds the summary
// shown in place of the group.
//
// Everything here is a pure function over cart line records. Applying the
// resulting mutations is the caller's job.
package cartsync

import (
	"math/big"
	"strings"

	"github.com/smartbundles/bundles-server/internal/domain"
)

// Index groups lines by bundle key. Groups appear in the order their first
// line appears; members keep cart order and the first member is the anchor.
// Lines without a bundle key are not part of any group.
func Index(lines []domain.CartLine) []domain.BundleGroup {
	var keys []string
	members := make(map[string][]domain.CartLine)

	for _, line := range lines {
		key := strings.TrimSpace(line.BundleKey)
		if key == "" {
			continue
		}
		if _, ok := members[key]; !ok {
			keys = append(keys, key)
		}
		members[key] = append(members[key], line)
	}

	groups := make([]domain.BundleGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, newGroup(key, members[key]))
	}
	return groups
}

func newGroup(bundleKey string, members []domain.CartLine) domain.BundleGroup {
	anchor := members[0]
	ratios := make(map[string]*big.Rat, len(members))
	for _, m := range members {
		ratios[m.Key] = ratio(m.Quantity, anchor.Quantity)
	}
	return domain.BundleGroup{
		BundleKey: bundleKey,
		Anchor:    anchor,
		Members:   members,
		Ratios:    ratios,
	}
}

// ratio is quantity/anchorQuantity, or 1 while the anchor sits at zero.
func ratio(quantity, anchorQuantity int) *big.Rat {
	if anchorQuantity == 0 {
		return big.NewRat(1, 1)
	}
	return big.NewRat(int64(quantity), int64(anchorQuantity))
}

// Find returns the group with the given bundle key.
func Find(groups []domain.BundleGroup, bundleKey string) (domain.BundleGroup, bool) {
	for _, g := range groups {
		if g.BundleKey == bundleKey {
			return g, true
		}
	}
	return domain.BundleGroup{}, false
}

// GroupContaining returns the group one of whose members has lineKey.
func GroupContaining(groups []domain.BundleGroup, lineKey string) (domain.BundleGroup, bool) {
	for _, g := range groups {
		for _, m := range g.Members {
			if m.Key == lineKey {
				return g, true
			}
		}
	}
	return domain.BundleGroup{}, false
}
