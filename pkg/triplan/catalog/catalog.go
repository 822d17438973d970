package catalog

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
)

// Kind identifies the type of service an offer provides
type Kind int

const (
	Flight Kind = iota
	Hotel
	Taxi
)

// Kinds lists every service kind in itinerary order
var Kinds = []Kind{Flight, Hotel, Taxi}

func (k Kind) String() string {
	switch k {
	case Flight:
		return "flight"
	case Hotel:
		return "hotel"
	case Taxi:
		return "taxi"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name, case-insensitively
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flight":
		return Flight, nil
	case "hotel":
		return Hotel, nil
	case "taxi":
		return Taxi, nil
	}
	return 0, fmt.Errorf("unknown service kind %q", s)
}

// DateLayout is the calendar date format used across catalogs and requests
const DateLayout = "2006-01-02"

// Offer is one bookable unit loaded from a catalog. Offers are values and
// are never mutated after loading.
type Offer struct {
	ID       string
	Kind     Kind
	Provider string // airline, hotel chain or taxi operator

	Origin      string // flights only
	Destination string // flights only
	Location    string // hotels and taxis

	// Date is the service date (flight departure, hotel available-from).
	// A zero Date means the offer is bookable on any day.
	Date time.Time
	// Until is the flight arrival date or the last night a hotel is
	// available. Zero means same-day for flights and open-ended for hotels.
	// A flight is only ever bookable on its departure Date.
	Until time.Time

	Price     int
	Rating    float64
	Available bool
}

// Place returns the location a traveller ends up at after using the offer.
func (o Offer) Place() string {
	if o.Kind == Flight {
		return o.Destination
	}
	return o.Location
}

// End returns the last day of the offer's availability span and whether the
// span is bounded. A dated flight's span is its departure day alone.
func (o Offer) End() (time.Time, bool) {
	if o.Date.IsZero() {
		return time.Time{}, false
	}
	if o.Kind == Flight {
		return o.Date, true
	}
	if !o.Until.IsZero() {
		return o.Until, true
	}
	if o.Kind == Hotel {
		return time.Time{}, false
	}
	return o.Date, true
}

// ArrivalDate returns the day the traveller can continue from the offer.
func (o Offer) ArrivalDate() time.Time {
	if o.Kind == Flight && !o.Until.IsZero() {
		return o.Until
	}
	return o.Date
}

// Covers reports whether the offer's availability span overlaps [from, to].
// Zero bounds are unbounded.
func (o Offer) Covers(from, to time.Time) bool {
	if o.Date.IsZero() {
		return true
	}
	if !to.IsZero() && o.Date.After(to) {
		return false
	}
	if end, bounded := o.End(); bounded && !from.IsZero() && end.Before(from) {
		return false
	}
	return true
}

// Filter is a conjunction of attribute comparisons over offers.
// Empty fields do not constrain.
type Filter struct {
	Origin    string
	Locations []string // destination for flights, location otherwise
	DateFrom  time.Time
	DateTo    time.Time
	MaxPrice  int
}

// Match is the pure predicate form of the filter. Unavailable offers never match.
func (f Filter) Match(o Offer) bool {
	if !o.Available {
		return false
	}
	if f.Origin != "" && !strings.EqualFold(o.Origin, f.Origin) {
		return false
	}
	if len(f.Locations) > 0 && !containsFold(f.Locations, o.Place()) {
		return false
	}
	if !o.Covers(f.DateFrom, f.DateTo) {
		return false
	}
	if f.MaxPrice > 0 && o.Price > f.MaxPrice {
		return false
	}
	return true
}

// Catalog is the queryable source of offers.
//
// Find returns a lazy, finite sequence of offers of the given kind matching the
// filter, in catalog order. Ranging over the sequence again re-runs the query.
// An empty sequence is a normal outcome; a non-nil error is yielded only when
// the catalog itself cannot be read, and wraps internalerr.ErrCatalogAccess.
type Catalog interface {
	Find(ctx context.Context, kind Kind, f Filter) iter.Seq2[Offer, error]
}

// Collect drains a sequence, stopping at the first error.
func Collect(seq iter.Seq2[Offer, error]) ([]Offer, error) {
	var out []Offer
	for o, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD, or "any" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "any"
	}
	return t.Format(DateLayout)
}

// AddDays shifts a calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
