package triplan

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/memcatalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
	"github.com/cognicore/triplan/pkg/triplan/itinerary"
	"github.com/cognicore/triplan/pkg/triplan/match"
	"github.com/cognicore/triplan/pkg/triplan/places"
)

const budget = 10000

var day = func() time.Time {
	d, _ := catalog.ParseDate("2025-11-05")
	return d
}()

func flight(id, from, to string, shift, price int) catalog.Offer {
	return catalog.Offer{ID: id, Kind: catalog.Flight, Origin: from, Destination: to, Date: catalog.AddDays(day, shift), Price: price, Available: true}
}

func hotel(id, city string, shift, price int) catalog.Offer {
	return catalog.Offer{ID: id, Kind: catalog.Hotel, Location: city, Date: catalog.AddDays(day, shift), Price: price, Available: true}
}

func taxi(id, city string, price int) catalog.Offer {
	return catalog.Offer{ID: id, Kind: catalog.Taxi, Location: city, Price: price, Available: true}
}

func request() Request {
	return Request{Origin: "Delhi", Destination: "Mumbai", Date: "2025-11-05", Budget: budget}
}

func plan(t *testing.T, req Request, offers ...catalog.Offer) *itinerary.Itinerary {
	t.Helper()
	p, err := New(Options{Catalog: memcatalog.New(offers...)})
	require.NoError(t, err)
	it, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, it)
	return it
}

func leg(t *testing.T, it *itinerary.Itinerary, kind catalog.Kind) match.LegResult {
	t.Helper()
	res, ok := it.Leg(kind)
	require.True(t, ok)
	return res
}

func steps(res match.LegResult) []string {
	out := make([]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		out = append(out, s.String())
	}
	return out
}

func derivedLocation(t *testing.T, res match.LegResult) string {
	t.Helper()
	c, ok := res.Constraints.Get(constraint.Location)
	require.True(t, ok)
	assert.Equal(t, constraint.Derived, c.Tier)
	return c.Value.Text
}

// assertCommon checks what must hold for every itinerary
func assertCommon(t *testing.T, it *itinerary.Itinerary) {
	t.Helper()
	require.Len(t, it.Legs, 3)
	feasible := true
	for i, kind := range catalog.Kinds {
		res := it.Legs[i]
		assert.Equal(t, kind, res.Kind)
		assert.Equal(t, len(res.Steps) == 0 && res.Found(), res.Exact)
		feasible = feasible && res.Found()
	}
	assert.Equal(t, feasible, it.Feasible)
	for _, s := range it.Legs[2].Steps {
		assert.NotEqual(t, constraint.NearbyLocation, s.Rationale, "taxis never relax location")
	}
}

func TestScenarioAllExact(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("H1", "Mumbai", 0, 3000),
		taxi("T1", "Mumbai", 700),
	)
	assertCommon(t, it)

	assert.True(t, it.Feasible)
	assert.Equal(t, itinerary.StatusOK, it.Status)
	for _, res := range it.Legs {
		assert.True(t, res.Exact, res.Kind.String())
		assert.Empty(t, res.Steps)
	}
	assert.Equal(t, 8700, it.TotalCost)
	assert.NotEmpty(t, it.ID)
}

func TestScenarioHotelDateShift(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("HB", "Mumbai", 2, 3000),
		taxi("TG", "Gurugram", 500),
		taxi("T1", "Mumbai", 700),
	)
	assertCommon(t, it)

	h := leg(t, it, catalog.Hotel)
	assert.False(t, h.Exact)
	assert.Equal(t, []string{"DateShift(+2)"}, steps(h))

	tx := leg(t, it, catalog.Taxi)
	assert.Equal(t, "Mumbai", derivedLocation(t, tx))
	require.True(t, tx.Found())
	assert.Equal(t, "T1", tx.Chosen.ID)

	c, ok := tx.Constraints.Get(constraint.Date)
	require.True(t, ok)
	assert.Equal(t, catalog.AddDays(day, 2), c.Value.Date, "taxi runs on the check-in day")
}

func TestScenarioNearbyHotel(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("HG", "Gurugram", 0, 2600),
		taxi("T1", "Mumbai", 700),
		taxi("TG", "Gurugram", 1000),
	)
	assertCommon(t, it)

	h := leg(t, it, catalog.Hotel)
	assert.Equal(t, []string{"NearbyLocation(Gurugram)"}, steps(h))

	tx := leg(t, it, catalog.Taxi)
	assert.Equal(t, "Gurugram", derivedLocation(t, tx), "pickup follows the hotel, not the request")
	require.True(t, tx.Found())
	assert.Equal(t, "TG", tx.Chosen.ID)
	assert.True(t, it.Feasible)
}

func TestScenarioStackedRelaxation(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("HX", "Mumbai", 0, 20000),
		hotel("HG", "Gurugram", 0, 16000),
		hotel("HN", "Noida", 1, 14000),
		hotel("HD", "Mumbai", 1, 12000),
		taxi("T1", "Mumbai", 700),
	)
	assertCommon(t, it)

	h := leg(t, it, catalog.Hotel)
	require.True(t, h.Found())
	assert.Equal(t, "HD", h.Chosen.ID)
	assert.Equal(t, []string{"DateShift(+1)", "BudgetTier(tier-2)"}, steps(h))
	assert.Equal(t, itinerary.StatusOverBudget, it.Status)
}

func TestScenarioNoTaxi(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("H1", "Mumbai", 0, 3000),
		taxi("T1", "Delhi", 700),
	)
	assertCommon(t, it)

	assert.True(t, leg(t, it, catalog.Flight).Found())
	assert.True(t, leg(t, it, catalog.Hotel).Found())
	tx := leg(t, it, catalog.Taxi)
	assert.False(t, tx.Found())
	assert.False(t, it.Feasible)
	assert.Equal(t, itinerary.StatusInfeasible, it.Status)
	assert.Contains(t, it.Explanation, "taxi: no match found after exhausting 1 strategy")
}

func TestUndatedUnbudgetedCatalogIsExact(t *testing.T) {
	req := request()
	req.Budget = 0
	it := plan(t, req,
		catalog.Offer{ID: "F", Kind: catalog.Flight, Origin: "Delhi", Destination: "Mumbai", Price: 5000, Available: true},
		catalog.Offer{ID: "H", Kind: catalog.Hotel, Location: "Mumbai", Price: 3000, Available: true},
		taxi("T", "Mumbai", 700),
	)
	assertCommon(t, it)

	assert.True(t, it.Feasible)
	for _, res := range it.Legs {
		assert.True(t, res.Exact)
		assert.Empty(t, res.Steps)
	}
	_, hasBudget := leg(t, it, catalog.Hotel).Constraints.Get(constraint.Budget)
	assert.False(t, hasBudget)
}

func TestFlightDateShiftMovesHotelAnchor(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", -1, 5000),
		hotel("H1", "Mumbai", -1, 3000),
		taxi("T1", "Mumbai", 700),
	)
	assertCommon(t, it)

	assert.Equal(t, []string{"DateShift(-1)"}, steps(leg(t, it, catalog.Flight)))
	h := leg(t, it, catalog.Hotel)
	assert.True(t, h.Exact, "hotel is anchored on the actual arrival day")
	c, _ := h.Constraints.Get(constraint.Date)
	assert.Equal(t, catalog.AddDays(day, -1), c.Value.Date)
}

func TestOvernightFlightIsMatchedOnDeparture(t *testing.T) {
	overnight := flight("F1", "Delhi", "Mumbai", -1, 5000)
	overnight.Until = day

	it := plan(t, request(), overnight, hotel("H1", "Mumbai", 0, 3000), taxi("T1", "Mumbai", 700))
	assertCommon(t, it)

	f := leg(t, it, catalog.Flight)
	require.True(t, f.Found())
	assert.False(t, f.Exact, "leaving the day before is not the requested date")
	assert.Equal(t, []string{"DateShift(-1)"}, steps(f))

	h := leg(t, it, catalog.Hotel)
	assert.True(t, h.Exact, "hotel is anchored on the landing day")
	c, _ := h.Constraints.Get(constraint.Date)
	assert.Equal(t, day, c.Value.Date)
}

func TestFlightShiftStaysWithinMaxDays(t *testing.T) {
	early := flight("F1", "Delhi", "Mumbai", -3, 5000)
	early.Until = catalog.AddDays(day, -1)

	it := plan(t, request(), early, hotel("H1", "Mumbai", 0, 3000), taxi("T1", "Mumbai", 700))
	assertCommon(t, it)

	f := leg(t, it, catalog.Flight)
	assert.False(t, f.Found(), "departing three days early is beyond a two-day shift")
	require.NotEmpty(t, f.Steps)
	assert.Equal(t, constraint.DateShift, f.Steps[0].Rationale)
	assert.Equal(t, 2, f.Steps[0].Distance)
	assert.Equal(t, itinerary.StatusInfeasible, it.Status)
}

func TestUnbudgetedTaxiNoMatchExplained(t *testing.T) {
	req := request()
	req.Budget = 0
	it := plan(t, req, flight("F1", "Delhi", "Mumbai", 0, 5000), hotel("H1", "Mumbai", 0, 3000))
	assertCommon(t, it)

	assert.False(t, leg(t, it, catalog.Taxi).Found())
	assert.Contains(t, it.Explanation, "taxi: no match found after exhausting 1 strategy (none could loosen its constraints)")
}

func TestFailedLegsFallBackToLastAnchor(t *testing.T) {
	t.Run("no flight", func(t *testing.T) {
		it := plan(t, request(),
			hotel("H1", "Mumbai", 0, 3000),
			taxi("T1", "Mumbai", 700),
		)
		assertCommon(t, it)

		assert.False(t, leg(t, it, catalog.Flight).Found())
		h := leg(t, it, catalog.Hotel)
		assert.True(t, h.Exact, "hotel falls back to the requested destination and date")
		assert.True(t, leg(t, it, catalog.Taxi).Found())
		assert.False(t, it.Feasible)
	})

	t.Run("no hotel", func(t *testing.T) {
		it := plan(t, request(),
			flight("F1", "Delhi", "Mumbai", 0, 5000),
			taxi("T1", "Mumbai", 700),
		)
		assertCommon(t, it)
		tx := leg(t, it, catalog.Taxi)
		assert.Equal(t, "Mumbai", derivedLocation(t, tx))
		assert.True(t, tx.Found())
	})

	t.Run("nothing but a taxi at home", func(t *testing.T) {
		it := plan(t, request(), taxi("T1", "Delhi", 700))
		assertCommon(t, it)
		tx := leg(t, it, catalog.Taxi)
		assert.Equal(t, "Delhi", derivedLocation(t, tx))
		assert.True(t, tx.Found())
		assert.False(t, it.Feasible)
		assert.Contains(t, it.Explanation, "taxi: location Delhi taken from the previous leg")
	})
}

func TestInvalidRequests(t *testing.T) {
	p, err := New(Options{Catalog: memcatalog.New()})
	require.NoError(t, err)

	for name, req := range map[string]Request{
		"missing origin":      {Destination: "Mumbai", Date: "2025-11-05"},
		"missing destination": {Origin: "Delhi", Date: "2025-11-05"},
		"blank origin":        {Origin: "  ", Destination: "Mumbai", Date: "2025-11-05"},
		"missing date":        {Origin: "Delhi", Destination: "Mumbai"},
		"bad date":            {Origin: "Delhi", Destination: "Mumbai", Date: "05/11/2025"},
		"negative budget":     {Origin: "Delhi", Destination: "Mumbai", Date: "2025-11-05", Budget: -1},
	} {
		t.Run(name, func(t *testing.T) {
			it, err := p.Plan(context.Background(), req)
			assert.ErrorIs(t, err, internalerr.ErrInvalidRequest)
			assert.Nil(t, it)
		})
	}
}

func TestNewRequiresCatalog(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestCancelledPlanReturnsNothing(t *testing.T) {
	p, err := New(Options{Catalog: memcatalog.New(flight("F1", "Delhi", "Mumbai", 0, 5000))})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it, err := p.Plan(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, it)
}

// failingCatalog serves flights but fails on every other kind
type failingCatalog struct {
	*memcatalog.Catalog
}

func (c failingCatalog) Find(ctx context.Context, kind catalog.Kind, f catalog.Filter) iter.Seq2[catalog.Offer, error] {
	if kind == catalog.Flight {
		return c.Catalog.Find(ctx, kind, f)
	}
	return func(yield func(catalog.Offer, error) bool) {
		yield(catalog.Offer{}, fmt.Errorf("%w: connection reset", internalerr.ErrCatalogAccess))
	}
}

func TestCatalogFailureAbortsPlan(t *testing.T) {
	p, err := New(Options{Catalog: failingCatalog{memcatalog.New(flight("F1", "Delhi", "Mumbai", 0, 5000))}})
	require.NoError(t, err)

	it, err := p.Plan(context.Background(), request())
	assert.ErrorIs(t, err, internalerr.ErrCatalogAccess)
	assert.Nil(t, it, "no partial itinerary")
}

func TestCandidates(t *testing.T) {
	p, err := New(Options{Catalog: memcatalog.New(
		flight("F1", "Delhi", "Mumbai", 0, 7000),
		flight("F2", "Delhi", "Mumbai", 0, 5000),
		flight("F3", "Delhi", "Pune", 0, 1000),
	)})
	require.NoError(t, err)

	cs, err := request().FlightConstraints()
	require.NoError(t, err)
	got, err := p.Candidates(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "F2", got[0].ID)

	_, err = Request{Origin: "Delhi"}.FlightConstraints()
	assert.ErrorIs(t, err, internalerr.ErrInvalidRequest)
}

func TestExplanationCoversEveryLeg(t *testing.T) {
	it := plan(t, request(),
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("HB", "Mumbai", 2, 3000),
		taxi("T1", "Mumbai", 700),
	)

	var flightLines, hotelLines, taxiLines int
	for _, line := range it.Explanation {
		switch {
		case strings.HasPrefix(line, "flight:"):
			flightLines++
		case strings.HasPrefix(line, "hotel:"):
			hotelLines++
		case strings.HasPrefix(line, "taxi:"):
			taxiLines++
		}
	}
	assert.Equal(t, 1, flightLines)
	assert.Equal(t, 2, hotelLines)
	assert.Equal(t, 3, taxiLines)
	assert.Equal(t, "flight:", it.Explanation[0][:7], "legs are explained in order")
}

func TestPlanCanonicalisesCityNames(t *testing.T) {
	req := request()
	req.Origin = "new delhi"
	req.Destination = " Bombay "
	it := plan(t, req,
		flight("F1", "Delhi", "Mumbai", 0, 5000),
		hotel("H1", "Mumbai", 0, 3000),
		taxi("T1", "Mumbai", 700),
	)

	assert.True(t, it.Feasible)
	assert.True(t, leg(t, it, catalog.Flight).Exact)
	assert.Contains(t, it.Explanation, "taxi: location Mumbai taken from the previous leg")
}

func TestCustomPlacesReplaceDefaults(t *testing.T) {
	g := places.New()
	g.Add("Mumbai", "Bom Bahia")
	p, err := New(Options{
		Catalog: memcatalog.New(flight("F1", "Delhi", "Mumbai", 0, 5000)),
		Places:  g,
	})
	require.NoError(t, err)

	req := request()
	req.Destination = "bom bahia"
	assert.Equal(t, "Mumbai", p.Normalize(req).Destination)

	req.Destination = "Bombay"
	it, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, leg(t, it, catalog.Flight).Found(), "Bombay is unknown to this gazetteer")
}
