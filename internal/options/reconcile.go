package options

import (
	"slices"
	"strings"

	"github.com/smartbundles/bundles-server/internal/domain"
)

type keyedOption struct {
	key string
	opt domain.NormalizedOption
}

// Reconcile splits the options of a bundle's items into shared and per-item
// sets. An option is shared when every item carries it with the same value
// set; a bundle of one item has no shared options.
//
// Items repeating an ID are merged into the first occurrence. The result is
// deterministic for a given input: SharedOptions is sorted by collated name,
// and per-item lists keep each item's own order.
func Reconcile(items []domain.BundleItem) domain.ReconciliationResult {
	result := domain.ReconciliationResult{
		SharedOptions:  []domain.NormalizedOption{},
		PerItemOptions: make(map[string][]domain.NormalizedOption),
	}
	if len(items) == 0 {
		return result
	}

	c := borrow()
	defer c.release()

	var order []string
	perItem := make(map[string][]keyedOption)
	seen := make(map[string]map[string]bool)

	for _, item := range items {
		if _, ok := seen[item.ID]; !ok {
			order = append(order, item.ID)
			seen[item.ID] = make(map[string]bool)
			perItem[item.ID] = nil
		}
		for _, raw := range item.Options {
			opt, ok := c.normalize(raw)
			if !ok {
				continue
			}
			key := c.canonicalKey(opt)
			if seen[item.ID][key] {
				continue
			}
			seen[item.ID][key] = true
			perItem[item.ID] = append(perItem[item.ID], keyedOption{key: key, opt: opt})
		}
	}

	counts := make(map[string]int)
	representative := make(map[string]domain.NormalizedOption)
	for _, itemID := range order {
		for _, ko := range perItem[itemID] {
			counts[ko.key]++
			if _, ok := representative[ko.key]; !ok {
				representative[ko.key] = ko.opt
			}
		}
	}

	shared := make(map[string]bool)
	if len(order) > 1 {
		for key, n := range counts {
			if n == len(order) {
				shared[key] = true
			}
		}
	}

	sharedKeyed := make([]keyedOption, 0, len(shared))
	for key := range shared {
		sharedKeyed = append(sharedKeyed, keyedOption{key: key, opt: representative[key]})
	}
	slices.SortFunc(sharedKeyed, func(a, b keyedOption) int {
		if r := c.compare(a.opt.Name, b.opt.Name); r != 0 {
			return r
		}
		return strings.Compare(a.key, b.key)
	})
	for _, ko := range sharedKeyed {
		result.SharedOptions = append(result.SharedOptions, ko.opt)
	}

	for _, itemID := range order {
		rest := make([]domain.NormalizedOption, 0, len(perItem[itemID]))
		for _, ko := range perItem[itemID] {
			if !shared[ko.key] {
				rest = append(rest, ko.opt)
			}
		}
		result.PerItemOptions[itemID] = rest
	}

	return result
}
