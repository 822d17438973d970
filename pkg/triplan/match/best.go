package match

import (
	"sort"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/policy"
)

// rank orders offers by price, then by how far they stray from the original
// constraints, then by catalog order.
func rank(offers []catalog.Offer, applied []policy.Strategy, original constraint.Set) []catalog.Offer {
	type scored struct {
		offer    catalog.Offer
		distance int
	}

	items := make([]scored, len(offers))
	for i, o := range offers {
		items[i] = scored{offer: o, distance: distance(applied, original, o)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].offer.Price != items[j].offer.Price {
			return items[i].offer.Price < items[j].offer.Price
		}
		return items[i].distance < items[j].distance
	})

	out := make([]catalog.Offer, len(items))
	for i, it := range items {
		out[i] = it.offer
	}
	return out
}

func pickBest(offers []catalog.Offer, applied []policy.Strategy, original constraint.Set) catalog.Offer {
	return rank(offers, applied, original)[0]
}

// distance is the cumulative relaxation an offer needs.
func distance(applied []policy.Strategy, original constraint.Set, o catalog.Offer) int {
	total := 0
	for _, s := range applied {
		if step, ok := s.Settle(original, o); ok {
			total += step.Distance
		}
	}
	return total
}
