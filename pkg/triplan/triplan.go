package triplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
	"github.com/cognicore/triplan/pkg/triplan/itinerary"
	"github.com/cognicore/triplan/pkg/triplan/match"
	"github.com/cognicore/triplan/pkg/triplan/metrics"
	"github.com/cognicore/triplan/pkg/triplan/places"
	"github.com/cognicore/triplan/pkg/triplan/policy"
)

// Planner composes flight, hotel and taxi legs into an itinerary
type Planner struct {
	matcher *match.Matcher
	policy  *policy.Policy
	places  *places.Gazetteer
	builder *itinerary.Builder
	log     zerolog.Logger
}

// Options configures a Planner
type Options struct {
	Catalog catalog.Catalog
	// Policy defaults to policy.Default() when nil.
	Policy *policy.Policy
	// Places canonicalises request city names; defaults to places.Default().
	Places *places.Gazetteer
	Logger *zerolog.Logger
}

// New creates a Planner with the given dependencies
func New(opts Options) (*Planner, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: planner needs a catalog", internalerr.ErrInvalidConfig)
	}
	if opts.Policy == nil {
		opts.Policy = policy.Default()
	}
	if opts.Places == nil {
		opts.Places = places.Default()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Planner{
		matcher: match.New(match.Options{Catalog: opts.Catalog, Policy: opts.Policy, Logger: &log}),
		policy:  opts.Policy,
		places:  opts.Places,
		builder: itinerary.NewBuilder(),
		log:     log.With().Str("component", "planner").Logger(),
	}, nil
}

// Policy returns the relaxation policy in use
func (p *Planner) Policy() *policy.Policy {
	return p.policy
}

// Normalize rewrites the request's cities to their canonical spelling so
// they compare equal to catalog places.
func (p *Planner) Normalize(req Request) Request {
	req.Origin = p.places.Canonical(req.Origin)
	req.Destination = p.places.Canonical(req.Destination)
	req.Date = strings.TrimSpace(req.Date)
	return req
}

// state is a position in the leg sequence
type state int

const (
	matchingFlight state = iota
	matchingHotel
	matchingTaxi
	done
)

func (s state) kind() catalog.Kind {
	switch s {
	case matchingHotel:
		return catalog.Hotel
	case matchingTaxi:
		return catalog.Taxi
	}
	return catalog.Flight
}

// Plan matches the legs strictly in order, threading each chosen offer into
// the next leg's constraints. A leg without a match does not stop planning;
// later legs fall back to the last known anchor and the itinerary is marked
// infeasible. Earlier legs are never re-opened.
//
// Catalog failures and cancellation abort the request without an itinerary.
func (p *Planner) Plan(ctx context.Context, req Request) (*itinerary.Itinerary, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		metrics.ObservePlan("invalid", time.Since(start))
		return nil, err
	}
	req = p.Normalize(req)

	log := p.log.With().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Str("date", req.Date).
		Int("budget", req.Budget).
		Logger()
	log.Info().Msg("planning trip")

	results := make([]match.LegResult, 0, 3)
	for st := matchingFlight; st != done; st++ {
		if err := ctx.Err(); err != nil {
			metrics.ObservePlan("error", time.Since(start))
			return nil, err
		}

		cs, err := seed(st, req, results)
		if err != nil {
			metrics.ObservePlan("error", time.Since(start))
			return nil, err
		}
		res, err := p.matcher.Match(ctx, cs)
		if err != nil {
			metrics.ObservePlan("error", time.Since(start))
			log.Error().Err(err).Str("leg", st.kind().String()).Msg("planning aborted")
			return nil, err
		}
		if !res.Found() {
			log.Warn().Str("leg", st.kind().String()).Int("tried", res.Tried).Int("strategies", res.Strategies).Msg("no match for leg")
		}
		results = append(results, res)
	}

	it := p.builder.Build(req.Budget, results[0], results[1], results[2])
	metrics.ObservePlan(string(it.Status), time.Since(start))
	log.Info().
		Str("itinerary", it.ID).
		Str("status", string(it.Status)).
		Int("total", it.TotalCost).
		Dur("took", time.Since(start)).
		Msg("trip planned")
	return &it, nil
}

// Candidates lists every offer satisfying a leg's exact constraints, best first.
func (p *Planner) Candidates(ctx context.Context, cs constraint.Set) ([]catalog.Offer, error) {
	return p.matcher.Candidates(ctx, cs)
}

// seed builds the constraint set for the leg in state st from the request and
// the legs matched so far.
func seed(st state, req Request, prior []match.LegResult) (constraint.Set, error) {
	switch st {
	case matchingFlight:
		return req.FlightConstraints()
	case matchingHotel:
		return hotelConstraints(req, prior[0])
	case matchingTaxi:
		return taxiConstraints(req, prior[0], prior[1])
	}
	return constraint.Set{}, fmt.Errorf("no leg for state %d", st)
}

// hotelConstraints anchors the stay at the flight's destination and arrival
// day. Both stay relaxable so a later check-in or a nearby city is a
// first-class choice.
func hotelConstraints(req Request, flight match.LegResult) (constraint.Set, error) {
	location := strings.TrimSpace(req.Destination)
	date := req.travelDate()
	if flight.Found() {
		location = flight.Chosen.Destination
		date = flight.Chosen.ArrivalDate()
	}
	cs := []constraint.Constraint{
		{Name: constraint.Location, Tier: constraint.Relaxable, Value: constraint.Value{Text: location}},
		{Name: constraint.Date, Tier: constraint.Relaxable, Value: constraint.Value{Date: date}},
	}
	return constraint.NewSet(catalog.Hotel, append(cs, req.budget()...)...)
}

// taxiConstraints picks the taxi up wherever the traveller ends up: the
// chosen hotel, else the flight's destination, else the departure city.
func taxiConstraints(req Request, flight, hotel match.LegResult) (constraint.Set, error) {
	var location string
	var date time.Time
	switch {
	case hotel.Found():
		location = hotel.Chosen.Location
		date = checkIn(hotel)
	case flight.Found():
		location = flight.Chosen.Destination
		date = flight.Chosen.ArrivalDate()
	default:
		location = strings.TrimSpace(req.Origin)
		date = req.travelDate()
	}
	cs := []constraint.Constraint{
		{Name: constraint.Location, Tier: constraint.Derived, Value: constraint.Value{Text: location}},
		{Name: constraint.Date, Tier: constraint.Derived, Value: constraint.Value{Date: date}},
	}
	return constraint.NewSet(catalog.Taxi, append(cs, req.budget()...)...)
}

// checkIn is the first day of the hotel's window the chosen offer covers.
func checkIn(hotel match.LegResult) time.Time {
	c, ok := hotel.Constraints.Get(constraint.Date)
	if !ok || c.Value.Date.IsZero() {
		return hotel.Chosen.Date
	}
	return catalog.AddDays(c.Value.Date, policy.ShiftDays(c.Value.Date, *hotel.Chosen))
}
