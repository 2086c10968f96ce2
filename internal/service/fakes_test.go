package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/cart"
	"github.com/smartbundles/bundles-server/internal/catalog"
	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/search"
	"github.com/smartbundles/bundles-server/internal/store/sqlite"
	"github.com/smartbundles/bundles-server/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupTestBundles creates a bundle service over a temp SQLite store and
// search index.
func setupTestBundles(t *testing.T) (*BundleService, *sqlite.Store, *search.Index) {
	t.Helper()

	dir := t.TempDir()
	st, err := sqlite.Open(dir+"/test.db", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.Open(search.Options{DataPath: dir + "/search"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return NewBundleService(st, index, validation.New(), testLogger()), st, index
}

// fakeCatalog serves products from a map and counts fetches.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	errs     map[string]error
	fetches  map[string]int
}

func newFakeCatalog(products ...*catalog.Product) *fakeCatalog {
	f := &fakeCatalog{
		products: make(map[string]*catalog.Product),
		errs:     make(map[string]error),
		fetches:  make(map[string]int),
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeCatalog) FetchProduct(_ context.Context, productID string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[productID]++
	if err := f.errs[productID]; err != nil {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, &catalog.Error{Op: "fetch", ProductID: productID, Err: catalog.ErrNotFound}
	}
	clone := *p
	return &clone, nil
}

func (f *fakeCatalog) fetchCount(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[productID]
}

// fakeCart keeps cart lines in memory. The first dropCalls calls to Mutate
// silently skip the batch's last mutation, like a storefront that loses
// part of an update.
type fakeCart struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	batches   [][]domain.QuantityMutation
	dropCalls int
	err       error
}

func (f *fakeCart) ReadCart(_ context.Context, _ string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lines), nil
}

func (f *fakeCart) Mutate(_ context.Context, _ string, batch []domain.QuantityMutation) (cart.MutateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, slices.Clone(batch))
	if f.err != nil {
		return cart.MutateResult{}, f.err
	}

	apply := batch
	if len(f.batches) <= f.dropCalls && len(batch) > 0 {
		apply = batch[:len(batch)-1]
	}
	for _, m := range apply {
		for i := range f.lines {
			if f.lines[i].Key == m.Key {
				f.lines[i].Quantity = m.Quantity
			}
		}
	}
	f.lines = slices.DeleteFunc(f.lines, func(l domain.CartLine) bool { return l.Quantity == 0 })

	current := make(map[string]int, len(f.lines))
	for _, l := range f.lines {
		current[l.Key] = l.Quantity
	}
	res := cart.MutateResult{Lines: slices.Clone(f.lines)}
	for _, m := range batch {
		if current[m.Key] == m.Quantity {
			res.Applied = append(res.Applied, m.Key)
		} else {
			res.Failed = append(res.Failed, m.Key)
		}
	}
	return res, nil
}

func (f *fakeCart) mutateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func cartLine(key, bundleKey string, qty int, price int64) domain.CartLine {
	l := domain.CartLine{Key: key, BundleKey: bundleKey, Quantity: qty, UnitPriceMinor: price, Title: "Product " + key}
	if bundleKey != "" {
		l.Properties = map[string]string{"_bundle_key": bundleKey}
	}
	return l
}

func validInput() BundleInput {
	return BundleInput{
		ShopDomain:  "shop.example.com",
		Title:       "Desk Set",
		Description: "<p>Lamp and <b>bulbs</b></p>",
		Status:      "active",
		Items: []BundleItemInput{
			{ProductID: "p-lamp", VariantID: "v-lamp-red", Quantity: 1},
			{ProductID: "p-bulb", Quantity: 2},
		},
	}
}
