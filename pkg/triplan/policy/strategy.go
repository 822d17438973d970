package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
)

// Strategy loosens one relaxable constraint, one notch at a time.
//
// Relax receives the current working set and returns a copy loosened by one
// more notch along with the step describing that notch. It returns false when
// the targeted constraint cannot be loosened further (or is absent, or not
// relaxable). Strategies hold no state; all progress lives in the set.
//
// Settle reports the net loosening a chosen offer actually needed relative to
// the original request, or false when the offer satisfies the original value.
type Strategy interface {
	Type() constraint.Rationale
	Relax(s constraint.Set) (constraint.Set, constraint.Step, bool)
	Settle(original constraint.Set, o catalog.Offer) (constraint.Step, bool)
}

func relaxable(s constraint.Set, name string) (constraint.Constraint, bool) {
	c, ok := s.Get(name)
	if !ok || c.Tier != constraint.Relaxable {
		return constraint.Constraint{}, false
	}
	return c, true
}

// DateShiftStrategy widens the date window by one day per notch.
type DateShiftStrategy struct {
	MaxDays int
	// Both shifts earlier as well as later; otherwise only later days are tried.
	Both bool
}

func (d DateShiftStrategy) Type() constraint.Rationale { return constraint.DateShift }

func (d DateShiftStrategy) Relax(s constraint.Set) (constraint.Set, constraint.Step, bool) {
	c, ok := relaxable(s, constraint.Date)
	if !ok || c.Value.Date.IsZero() {
		return s, constraint.Step{}, false
	}

	next := c.Value.After + 1
	if d.Both && c.Value.Before+1 > next {
		next = c.Value.Before + 1
	}
	if next > d.MaxDays {
		return s, constraint.Step{}, false
	}

	original := c.Describe()
	c.Value.After = next
	if d.Both {
		c.Value.Before = next
	}

	return s.With(c), constraint.Step{
		Constraint: constraint.Date,
		Rationale:  constraint.DateShift,
		Original:   original,
		Relaxed:    c.Describe(),
		Label:      d.label(next),
		Distance:   next,
	}, true
}

func (d DateShiftStrategy) label(days int) string {
	if d.Both {
		return fmt.Sprintf("±%d", days)
	}
	return fmt.Sprintf("+%d", days)
}

func (d DateShiftStrategy) Settle(original constraint.Set, o catalog.Offer) (constraint.Step, bool) {
	c, ok := original.Get(constraint.Date)
	if !ok || c.Value.Date.IsZero() {
		return constraint.Step{}, false
	}
	shift := ShiftDays(c.Value.Date, o)
	if shift == 0 {
		return constraint.Step{}, false
	}

	distance := shift
	if distance < 0 {
		distance = -distance
	}
	return constraint.Step{
		Constraint: constraint.Date,
		Rationale:  constraint.DateShift,
		Original:   catalog.FormatDate(c.Value.Date),
		Relaxed:    catalog.FormatDate(catalog.AddDays(c.Value.Date, shift)),
		Label:      fmt.Sprintf("%+d", shift),
		Distance:   distance,
	}, true
}

// ShiftDays returns the smallest signed day shift from day at which the offer
// is available: 0 when it already covers day, positive when it starts later,
// negative when its availability ended earlier.
func ShiftDays(day time.Time, o catalog.Offer) int {
	if o.Covers(day, day) {
		return 0
	}
	if o.Date.After(day) {
		return catalog.DaysBetween(day, o.Date)
	}
	end, _ := o.End()
	return -catalog.DaysBetween(end, day)
}

// NearbyStrategy accepts one more nearby location per notch, in list order.
// The original location is never re-tried.
type NearbyStrategy struct {
	Candidates []string
}

func (n NearbyStrategy) Type() constraint.Rationale { return constraint.NearbyLocation }

func (n NearbyStrategy) Relax(s constraint.Set) (constraint.Set, constraint.Step, bool) {
	c, ok := relaxable(s, constraint.Location)
	if !ok || c.Value.Text == "" {
		return s, constraint.Step{}, false
	}

	accepted := c.Value.Places()
	for _, cand := range n.Candidates {
		if containsFold(accepted, cand) {
			continue
		}
		original := c.Describe()
		c.Value.Alternatives = append(c.Value.Alternatives, cand)
		return s.With(c), constraint.Step{
			Constraint: constraint.Location,
			Rationale:  constraint.NearbyLocation,
			Original:   original,
			Relaxed:    c.Describe(),
			Label:      cand,
			Distance:   len(c.Value.Alternatives),
		}, true
	}
	return s, constraint.Step{}, false
}

func (n NearbyStrategy) Settle(original constraint.Set, o catalog.Offer) (constraint.Step, bool) {
	c, ok := original.Get(constraint.Location)
	if !ok || strings.EqualFold(c.Value.Text, o.Place()) {
		return constraint.Step{}, false
	}

	rank := len(n.Candidates) + 1
	for i, cand := range n.Candidates {
		if strings.EqualFold(cand, o.Place()) {
			rank = i + 1
			break
		}
	}
	return constraint.Step{
		Constraint: constraint.Location,
		Rationale:  constraint.NearbyLocation,
		Original:   c.Value.Text,
		Relaxed:    o.Place(),
		Label:      o.Place(),
		Distance:   rank,
	}, true
}

// BudgetTierStrategy raises the price ceiling to the next tier per notch.
// Tier 1 is the request budget; configured ceilings are tiers 2, 3, ...
// Ceilings come either from absolute Steps or from Factors of the budget.
type BudgetTierStrategy struct {
	Steps   []int
	Factors []float64
}

func (b BudgetTierStrategy) Type() constraint.Rationale { return constraint.BudgetTier }

// ceilings returns the tier ceilings for a budget, in tier order.
func (b BudgetTierStrategy) ceilings(budget int) []int {
	if len(b.Steps) > 0 {
		return b.Steps
	}
	out := make([]int, 0, len(b.Factors))
	for _, f := range b.Factors {
		out = append(out, int(float64(budget)*f))
	}
	return out
}

func (b BudgetTierStrategy) Relax(s constraint.Set) (constraint.Set, constraint.Step, bool) {
	c, ok := relaxable(s, constraint.Budget)
	if !ok || c.Value.Amount <= 0 {
		return s, constraint.Step{}, false
	}

	current := c.Value.MaxPrice()
	for i, ceiling := range b.ceilings(c.Value.Amount) {
		if ceiling <= current {
			continue
		}
		original := c.Describe()
		c.Value.Ceiling = ceiling
		return s.With(c), constraint.Step{
			Constraint: constraint.Budget,
			Rationale:  constraint.BudgetTier,
			Original:   original,
			Relaxed:    c.Describe(),
			Label:      tierLabel(i),
			Distance:   i + 1,
		}, true
	}
	return s, constraint.Step{}, false
}

func (b BudgetTierStrategy) Settle(original constraint.Set, o catalog.Offer) (constraint.Step, bool) {
	c, ok := original.Get(constraint.Budget)
	if !ok || c.Value.Amount <= 0 || o.Price <= c.Value.MaxPrice() {
		return constraint.Step{}, false
	}

	ceilings := b.ceilings(c.Value.Amount)
	if len(ceilings) == 0 {
		return constraint.Step{}, false
	}
	tier := len(ceilings) - 1
	for i, ceiling := range ceilings {
		if o.Price <= ceiling {
			tier = i
			break
		}
	}
	return constraint.Step{
		Constraint: constraint.Budget,
		Rationale:  constraint.BudgetTier,
		Original:   fmt.Sprintf("%d", c.Value.Amount),
		Relaxed:    fmt.Sprintf("%d", ceilings[tier]),
		Label:      tierLabel(tier),
		Distance:   tier + 1,
	}, true
}

func tierLabel(i int) string {
	return fmt.Sprintf("tier-%d", i+2)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
