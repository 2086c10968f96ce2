// Package options reconciles product option schemas across the items of a
// bundle, deciding which options are chosen once for the whole bundle and
// which are chosen per item.
package options

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/smartbundles/bundles-server/internal/domain"
)

// Casers and collators keep internal buffers and must not be shared between
// goroutines, so each call borrows one pair from the pool.
type comparer struct {
	fold cases.Caser
	coll *collate.Collator
}

var comparers = sync.Pool{
	New: func() any {
		return &comparer{
			fold: cases.Fold(),
			coll: collate.New(language.Und, collate.IgnoreCase),
		}
	},
}

func borrow() *comparer {
	return comparers.Get().(*comparer)
}

func (c *comparer) release() {
	comparers.Put(c)
}

// foldKey is the comparison form of s: case-folded with whitespace runs
// collapsed to a single space.
func (c *comparer) foldKey(s string) string {
	return c.fold.String(strings.Join(strings.Fields(s), " "))
}

// compare orders display strings by locale collation, then by folded form,
// then bytewise, so the order is total.
func (c *comparer) compare(a, b string) int {
	if r := c.coll.CompareString(a, b); r != 0 {
		return r
	}
	if r := strings.Compare(c.foldKey(a), c.foldKey(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// Normalize canonicalizes a raw option. It reports false when the option
// should be discarded: a blank name, or the platform's synthetic
// "Title: Default Title" placeholder.
func Normalize(opt domain.ProductOption) (domain.NormalizedOption, bool) {
	c := borrow()
	defer c.release()
	return c.normalize(opt)
}

func (c *comparer) normalize(opt domain.ProductOption) (domain.NormalizedOption, bool) {
	name := strings.TrimSpace(opt.Name)
	if name == "" {
		return domain.NormalizedOption{}, false
	}

	seen := make(map[string]bool, len(opt.Values))
	values := make([]string, 0, len(opt.Values))
	for _, raw := range opt.Values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		k := c.foldKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, v)
	}
	slices.SortFunc(values, c.compare)

	if c.isPlaceholder(name, values) {
		return domain.NormalizedOption{}, false
	}

	return domain.NormalizedOption{Name: name, Values: values}, true
}

func (c *comparer) isPlaceholder(name string, values []string) bool {
	squash := func(s string) string {
		return strings.Join(strings.Fields(c.fold.String(s)), "")
	}
	return len(values) == 1 &&
		squash(name) == "title" &&
		squash(values[0]) == "defaulttitle"
}

// CanonicalKey identifies a normalized option independent of casing,
// whitespace and value order. Two options are the same axis with the same
// choices exactly when their keys are equal.
func CanonicalKey(opt domain.NormalizedOption) string {
	c := borrow()
	defer c.release()
	return c.canonicalKey(opt)
}

func (c *comparer) canonicalKey(opt domain.NormalizedOption) string {
	folded := make([]string, len(opt.Values))
	for i, v := range opt.Values {
		folded[i] = c.foldKey(v)
	}
	slices.Sort(folded)

	var b strings.Builder
	b.WriteString(strconv.Quote(c.foldKey(opt.Name)))
	b.WriteString("::")
	for i, v := range folded {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(v))
	}
	return b.String()
}
