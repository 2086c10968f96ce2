package cartsync

import (
	"math"
	"math/big"

	"github.com/smartbundles/bundles-server/internal/domain"
)

// QuantitySync recomputes dependent quantities when the anchor changes.
type QuantitySync struct {
	// MinDependentQuantity floors recomputed dependent quantities while the
	// anchor stays in the cart. An anchor set to 0 always takes every
	// dependent to 0.
	MinDependentQuantity int
}

// OnAnchorQuantityChanged returns the mutation batch that sets the anchor to
// quantity and moves each dependent to round(quantity × ratio). The anchor
// mutation always comes first; dependents already at their target are left
// out. The batch must be applied as a whole.
func (s QuantitySync) OnAnchorQuantityChanged(g domain.BundleGroup, quantity int) []domain.QuantityMutation {
	if len(g.Members) == 0 {
		return nil
	}
	quantity = max(quantity, 0)

	batch := make([]domain.QuantityMutation, 0, len(g.Members))
	batch = append(batch, domain.QuantityMutation{Key: g.Anchor.Key, Quantity: quantity})

	for _, dep := range g.Dependents() {
		r, ok := g.Ratios[dep.Key]
		if !ok || r == nil {
			r = ratio(dep.Quantity, g.Anchor.Quantity)
		}
		target := 0
		if quantity > 0 {
			target = max(scaleRound(quantity, r), s.MinDependentQuantity, 0)
		}
		if target != dep.Quantity {
			batch = append(batch, domain.QuantityMutation{Key: dep.Key, Quantity: target})
		}
	}
	return batch
}

// RemoveBundle zeroes every member of the group, whichever line the shopper
// removed. Lines already at zero are included.
func RemoveBundle(g domain.BundleGroup) []domain.QuantityMutation {
	batch := make([]domain.QuantityMutation, 0, g.Size())
	for _, m := range g.Members {
		batch = append(batch, domain.QuantityMutation{Key: m.Key, Quantity: 0})
	}
	return batch
}

var (
	maxInt = big.NewInt(math.MaxInt)
	minInt = big.NewInt(math.MinInt)
)

// scaleRound returns n × r rounded half away from zero, saturated to the
// int range.
func scaleRound(n int, r *big.Rat) int {
	q := roundRat(new(big.Rat).Mul(big.NewRat(int64(n), 1), r))
	switch {
	case q.Cmp(maxInt) > 0:
		return math.MaxInt
	case q.Cmp(minInt) < 0:
		return math.MinInt
	}
	return int(q.Int64())
}

// roundRat rounds half away from zero.
func roundRat(x *big.Rat) *big.Int {
	num := new(big.Int).Abs(x.Num())
	den := x.Denom()

	// floor((2|num| + den) / 2den)
	twice := new(big.Int).Lsh(num, 1)
	twice.Add(twice, den)
	q := twice.Quo(twice, new(big.Int).Lsh(den, 1))

	if x.Sign() < 0 {
		q.Neg(q)
	}
	return q
}
