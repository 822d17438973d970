package match

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/metrics"
	"github.com/cognicore/triplan/pkg/triplan/policy"
)

// LegResult is the outcome of matching one leg
type LegResult struct {
	Kind catalog.Kind
	// Chosen is nil when every strategy was exhausted without a match.
	Chosen *catalog.Offer
	// Steps are the relaxations the chosen offer needed, in policy order.
	// Without a match they list the widest loosening every strategy attempted.
	Steps []constraint.Step
	// Exact is true iff Steps is empty.
	Exact bool
	// Constraints is the set the leg was matched against, before relaxation.
	Constraints constraint.Set
	// Tried is the number of strategies the policy lists for the kind.
	Tried int
	// Strategies counts the policy strategies that loosened at least once.
	Strategies int
	// Queries counts catalog lookups made for this leg.
	Queries int
}

// Found reports whether an offer was chosen
func (r LegResult) Found() bool { return r.Chosen != nil }

// Matcher runs exact matching and policy-ordered relaxation for one leg
type Matcher struct {
	catalog catalog.Catalog
	policy  *policy.Policy
	log     zerolog.Logger
}

// Options configures a Matcher
type Options struct {
	Catalog catalog.Catalog
	Policy  *policy.Policy
	Logger  *zerolog.Logger
}

// New creates a Matcher. A nil policy means policy.Default().
func New(opts Options) *Matcher {
	p := opts.Policy
	if p == nil {
		p = policy.Default()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Matcher{
		catalog: opts.Catalog,
		policy:  p,
		log:     log.With().Str("component", "matcher").Logger(),
	}
}

// Match resolves one leg.
//
// The exact constraint set is tried first. Failing that, each strategy of the
// kind's policy is advanced one notch at a time until a query returns offers
// or the strategy is exhausted, in which case its widest loosening is kept and
// the next strategy builds on top of it. A leg that exhausts every strategy is
// a no-match, not an error; only catalog access failures are returned as errors.
func (m *Matcher) Match(ctx context.Context, cs constraint.Set) (LegResult, error) {
	kind := cs.Kind()
	strategies := m.policy.Strategies(kind)
	result := LegResult{Kind: kind, Constraints: cs, Tried: len(strategies)}
	log := m.log.With().Str("leg", kind.String()).Logger()

	offers, err := m.query(ctx, kind, cs, &result)
	if err != nil {
		return LegResult{}, err
	}
	if len(offers) > 0 {
		best := pickBest(offers, nil, cs)
		result.Chosen = &best
		result.Exact = true
		log.Debug().Str("offer", best.ID).Int("price", best.Price).Msg("exact match")
		metrics.ObserveLeg(kind.String(), metrics.OutcomeExact, 0)
		return result, nil
	}

	working := cs
	var applied []policy.Strategy
	var widest []constraint.Step

	for _, strategy := range strategies {
		loosened := false
		var last constraint.Step
		for {
			next, step, ok := strategy.Relax(working)
			if !ok {
				log.Debug().Str("strategy", string(strategy.Type())).Msg("strategy exhausted")
				break
			}
			if !loosened {
				loosened = true
				applied = append(applied, strategy)
				result.Strategies++
			}
			working, last = next, step
			metrics.ObserveStep(kind.String(), string(step.Rationale))

			offers, err := m.query(ctx, kind, working, &result)
			if err != nil {
				return LegResult{}, err
			}
			log.Debug().
				Str("step", step.String()).
				Str("constraints", working.String()).
				Int("offers", len(offers)).
				Msg("relaxed query")
			if len(offers) == 0 {
				continue
			}

			best := pickBest(offers, applied, cs)
			result.Chosen = &best
			result.Steps = settle(applied, cs, best)
			result.Exact = len(result.Steps) == 0
			log.Debug().Str("offer", best.ID).Int("steps", len(result.Steps)).Msg("relaxed match")
			metrics.ObserveLeg(kind.String(), metrics.OutcomeRelaxed, len(result.Steps))
			return result, nil
		}
		if loosened {
			widest = append(widest, last)
		}
	}

	result.Steps = widest
	log.Debug().Int("strategies", result.Strategies).Msg("no match")
	metrics.ObserveLeg(kind.String(), metrics.OutcomeNoMatch, len(widest))
	return result, nil
}

// Candidates lists every offer matching the exact constraint set, best first.
func (m *Matcher) Candidates(ctx context.Context, cs constraint.Set) ([]catalog.Offer, error) {
	var scratch LegResult
	offers, err := m.query(ctx, cs.Kind(), cs, &scratch)
	if err != nil {
		return nil, err
	}
	return rank(offers, nil, cs), nil
}

func (m *Matcher) query(ctx context.Context, kind catalog.Kind, cs constraint.Set, r *LegResult) ([]catalog.Offer, error) {
	if m.catalog == nil {
		return nil, fmt.Errorf("matcher: nil catalog")
	}
	r.Queries++
	offers, err := catalog.Collect(m.catalog.Find(ctx, kind, cs.Filter()))
	if err != nil {
		return nil, fmt.Errorf("find %s offers: %w", kind, err)
	}
	return offers, nil
}

// settle turns the applied strategies into the net steps the offer needed.
func settle(applied []policy.Strategy, original constraint.Set, o catalog.Offer) []constraint.Step {
	var steps []constraint.Step
	for _, s := range applied {
		if step, ok := s.Settle(original, o); ok {
			steps = append(steps, step)
		}
	}
	return steps
}
