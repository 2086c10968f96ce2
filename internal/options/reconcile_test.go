package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbundles/bundles-server/internal/domain"
)

func opt(name string, values ...string) domain.ProductOption {
	return domain.ProductOption{Name: name, Values: values}
}

func TestReconcile_WorkedExample(t *testing.T) {
	items := []domain.BundleItem{
		{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass", "Chrome")}},
		{ID: "B", Options: []domain.ProductOption{opt("Finish", "chrome", "BRASS"), opt("Size", "S", "M")}},
	}

	got := Reconcile(items)

	require.Len(t, got.SharedOptions, 1)
	assert.Equal(t, domain.NormalizedOption{Name: "Finish", Values: []string{"Brass", "Chrome"}}, got.SharedOptions[0])

	assert.Empty(t, got.PerItemOptions["A"])
	require.Len(t, got.PerItemOptions["B"], 1)
	assert.Equal(t, "Size", got.PerItemOptions["B"][0].Name)
	assert.ElementsMatch(t, []string{"S", "M"}, got.PerItemOptions["B"][0].Values)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name        string
		items       []domain.BundleItem
		wantShared  []string
		wantPerItem map[string][]string
	}{
		{
			name:        "empty input",
			items:       nil,
			wantShared:  []string{},
			wantPerItem: map[string][]string{},
		},
		{
			name: "single item has no shared options",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass"), opt("Size", "S")}},
			},
			wantShared:  []string{},
			wantPerItem: map[string][]string{"A": {"Finish", "Size"}},
		},
		{
			name: "different value sets are not shared",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass", "Chrome")}},
				{ID: "B", Options: []domain.ProductOption{opt("Finish", "Brass")}},
			},
			wantShared:  []string{},
			wantPerItem: map[string][]string{"A": {"Finish"}, "B": {"Finish"}},
		},
		{
			name: "item without options blocks sharing",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass")}},
				{ID: "B", Options: []domain.ProductOption{opt("Finish", "Brass")}},
				{ID: "C"},
			},
			wantShared:  []string{},
			wantPerItem: map[string][]string{"A": {"Finish"}, "B": {"Finish"}, "C": {}},
		},
		{
			name: "duplicate option within an item counts once",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass"), opt("finish ", "BRASS")}},
				{ID: "B", Options: []domain.ProductOption{opt("Finish", "Brass")}},
				{ID: "C", Options: []domain.ProductOption{opt("Size", "S")}},
			},
			wantShared:  []string{},
			wantPerItem: map[string][]string{"A": {"Finish"}, "B": {"Finish"}, "C": {"Size"}},
		},
		{
			name: "placeholder and blank options are ignored",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Title", "Default Title"), opt("Color", "Red")}},
				{ID: "B", Options: []domain.ProductOption{opt(" ", "x"), opt("color", "red")}},
			},
			wantShared:  []string{"Color"},
			wantPerItem: map[string][]string{"A": {}, "B": {}},
		},
		{
			name: "shared options sorted by name",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("size", "S"), opt("Color", "Red"), opt("Material", "Oak")}},
				{ID: "B", Options: []domain.ProductOption{opt("Material", "Oak"), opt("Size", "s"), opt("color", "RED")}},
			},
			wantShared:  []string{"Color", "Material", "size"},
			wantPerItem: map[string][]string{"A": {}, "B": {}},
		},
		{
			name: "same name with different values are distinct options",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass"), opt("Finish", "Chrome")}},
				{ID: "B", Options: []domain.ProductOption{opt("Finish", "Chrome")}},
			},
			wantShared:  []string{"Finish"},
			wantPerItem: map[string][]string{"A": {"Finish"}, "B": {}},
		},
		{
			name: "repeated item id merges into first entry",
			items: []domain.BundleItem{
				{ID: "A", Options: []domain.ProductOption{opt("Finish", "Brass")}},
				{ID: "B", Options: []domain.ProductOption{opt("Finish", "Brass")}},
				{ID: "A", Options: []domain.ProductOption{opt("Size", "S"), opt("Finish", "brass")}},
			},
			wantShared:  []string{"Finish"},
			wantPerItem: map[string][]string{"A": {"Size"}, "B": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.items)

			require.NotNil(t, got.PerItemOptions)
			assert.Equal(t, tt.wantShared, optionNames(got.SharedOptions))
			assert.Len(t, got.PerItemOptions, len(tt.wantPerItem))
			for id, want := range tt.wantPerItem {
				assert.Equal(t, want, optionNames(got.PerItemOptions[id]), "item %s", id)
			}
		})
	}
}

func TestReconcile_RepresentativeFromFirstItem(t *testing.T) {
	items := []domain.BundleItem{
		{ID: "A", Options: []domain.ProductOption{opt("finish", "brass")}},
		{ID: "B", Options: []domain.ProductOption{opt("FINISH", "BRASS")}},
	}

	got := Reconcile(items)

	require.Len(t, got.SharedOptions, 1)
	assert.Equal(t, "finish", got.SharedOptions[0].Name)
	assert.Equal(t, []string{"brass"}, got.SharedOptions[0].Values)
}

func TestReconcile_Deterministic(t *testing.T) {
	items := []domain.BundleItem{
		{ID: "A", Options: []domain.ProductOption{opt("Zeta", "1"), opt("Alpha", "x"), opt("Mid", "m")}},
		{ID: "B", Options: []domain.ProductOption{opt("Mid", "m"), opt("Zeta", "1"), opt("Alpha", "x")}},
	}

	first := Reconcile(items)
	for range 20 {
		assert.Equal(t, first, Reconcile(items))
	}
}

func optionNames(opts []domain.NormalizedOption) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
