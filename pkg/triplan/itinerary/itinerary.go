package itinerary

import (
	"crypto/rand"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/explain"
	"github.com/cognicore/triplan/pkg/triplan/match"
)

// Status summarises an itinerary for presentation
type Status string

const (
	StatusOK         Status = "OK"
	StatusOverBudget Status = "OverBudget"
	StatusInfeasible Status = "Infeasible"
)

// Itinerary is the composed result of one planning request.
// It is built once and never modified.
type Itinerary struct {
	ID string
	// Legs holds exactly three results: flight, hotel, taxi.
	Legs     []match.LegResult
	Feasible bool
	Status   Status
	// TotalCost sums the chosen offers' prices.
	TotalCost int
	// Budget is the request budget, 0 when none was given.
	Budget      int
	Explanation []string
}

// Assemble packages three leg results. It performs no matching.
func Assemble(flight, hotel, taxi match.LegResult) Itinerary {
	it := Itinerary{
		Legs:     []match.LegResult{flight, hotel, taxi},
		Feasible: true,
	}
	for _, leg := range it.Legs {
		if !leg.Found() {
			it.Feasible = false
			continue
		}
		it.TotalCost += leg.Chosen.Price
	}
	for _, leg := range it.Legs {
		it.Explanation = append(it.Explanation, explain.Explain(leg)...)
	}
	it.Status = status(it.Feasible, it.TotalCost, 0)
	return it
}

func status(feasible bool, total, budget int) Status {
	switch {
	case !feasible:
		return StatusInfeasible
	case budget > 0 && total > budget:
		return StatusOverBudget
	default:
		return StatusOK
	}
}

// Builder stamps assembled itineraries with monotonic IDs
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewBuilder creates a new itinerary builder
func NewBuilder() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Build assembles the legs and applies the request budget to the status.
func (b *Builder) Build(budget int, flight, hotel, taxi match.LegResult) Itinerary {
	it := Assemble(flight, hotel, taxi)
	b.mu.Lock()
	it.ID = ulid.MustNew(ulid.Now(), b.entropy).String()
	b.mu.Unlock()
	it.Budget = budget
	it.Status = status(it.Feasible, it.TotalCost, budget)
	return it
}

// Leg returns the result for a service kind
func (it Itinerary) Leg(kind catalog.Kind) (match.LegResult, bool) {
	for _, leg := range it.Legs {
		if leg.Kind == kind {
			return leg, true
		}
	}
	return match.LegResult{}, false
}

// LegSummary is the flat form of one leg
type LegSummary struct {
	Kind     string   `json:"kind"`
	OfferID  string   `json:"offer_id,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Place    string   `json:"place,omitempty"`
	Date     string   `json:"date,omitempty"`
	Price    int      `json:"price,omitempty"`
	Exact    bool     `json:"exact"`
	Steps    []string `json:"steps"`
}

// Summary is the flat serialisation handed to renderers
type Summary struct {
	ID          string       `json:"id"`
	Feasible    bool         `json:"feasible"`
	Status      Status       `json:"status"`
	TotalCost   int          `json:"total_cost"`
	Budget      int          `json:"budget,omitempty"`
	Legs        []LegSummary `json:"legs"`
	Explanation string       `json:"explanation"`
}

// Summary flattens the itinerary
func (it Itinerary) Summary() Summary {
	s := Summary{
		ID:          it.ID,
		Feasible:    it.Feasible,
		Status:      it.Status,
		TotalCost:   it.TotalCost,
		Budget:      it.Budget,
		Legs:        make([]LegSummary, 0, len(it.Legs)),
		Explanation: strings.Join(it.Explanation, "\n"),
	}
	for _, leg := range it.Legs {
		ls := LegSummary{
			Kind:  leg.Kind.String(),
			Exact: leg.Exact,
			Steps: make([]string, 0, len(leg.Steps)),
		}
		for _, step := range leg.Steps {
			ls.Steps = append(ls.Steps, step.String())
		}
		if o := leg.Chosen; o != nil {
			ls.OfferID = o.ID
			ls.Provider = o.Provider
			ls.Place = o.Place()
			ls.Date = catalog.FormatDate(o.Date)
			ls.Price = o.Price
		}
		s.Legs = append(s.Legs, ls)
	}
	return s
}
