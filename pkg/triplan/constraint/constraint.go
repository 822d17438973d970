package constraint

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
)

// Tier says how a constraint may be treated during matching
type Tier int

const (
	// Exact constraints must hold as given.
	Exact Tier = iota
	// Relaxable constraints may be loosened by the relaxation policy.
	Relaxable
	// Derived constraints are computed from a previous leg's outcome and always hold exactly.
	Derived
)

func (t Tier) String() string {
	switch t {
	case Exact:
		return "exact"
	case Relaxable:
		return "relaxable"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Constraint names
const (
	Origin      = "origin"
	Destination = "destination"
	Location    = "location"
	Date        = "date"
	Budget      = "budget"
)

// Value carries a constraint's original requirement together with any
// loosening applied to it. Loosening only ever widens: more alternative
// locations, a wider date window, a higher price ceiling.
type Value struct {
	// Text is the required location or origin.
	Text string
	// Alternatives are additional accepted locations, in preference order.
	Alternatives []string

	// Date is the requested day; Before/After widen it into a window.
	Date   time.Time
	Before int
	After  int

	// Amount is the requested price ceiling; Ceiling is the loosened one (0 = Amount).
	Amount  int
	Ceiling int
}

// Places returns the accepted locations, original first.
func (v Value) Places() []string {
	if v.Text == "" {
		return nil
	}
	out := make([]string, 0, 1+len(v.Alternatives))
	out = append(out, v.Text)
	return append(out, v.Alternatives...)
}

// Window returns the inclusive accepted date range.
func (v Value) Window() (time.Time, time.Time) {
	if v.Date.IsZero() {
		return time.Time{}, time.Time{}
	}
	return catalog.AddDays(v.Date, -v.Before), catalog.AddDays(v.Date, v.After)
}

// MaxPrice returns the effective price ceiling.
func (v Value) MaxPrice() int {
	if v.Ceiling > 0 {
		return v.Ceiling
	}
	return v.Amount
}

func (v Value) clone() Value {
	if v.Alternatives != nil {
		v.Alternatives = append([]string(nil), v.Alternatives...)
	}
	return v
}

// Constraint is a named requirement on a leg
type Constraint struct {
	Name  string
	Tier  Tier
	Value Value
}

// Describe renders the constraint's current requirement for humans.
func (c Constraint) Describe() string {
	switch c.Name {
	case Date:
		from, to := c.Value.Window()
		if from.Equal(to) {
			return catalog.FormatDate(from)
		}
		return catalog.FormatDate(from) + ".." + catalog.FormatDate(to)
	case Budget:
		return fmt.Sprintf("<= %d", c.Value.MaxPrice())
	default:
		return strings.Join(c.Value.Places(), "|")
	}
}

// Set is the group of constraints applied to one leg. Names are unique;
// sets are values and With returns a modified copy.
type Set struct {
	kind  catalog.Kind
	items map[string]Constraint
}

// NewSet builds a constraint set for a leg, rejecting duplicate names.
func NewSet(kind catalog.Kind, cs ...Constraint) (Set, error) {
	s := Set{kind: kind, items: make(map[string]Constraint, len(cs))}
	for _, c := range cs {
		if c.Name == "" {
			return Set{}, fmt.Errorf("constraint without name")
		}
		if _, dup := s.items[c.Name]; dup {
			return Set{}, fmt.Errorf("duplicate constraint %q", c.Name)
		}
		c.Value = c.Value.clone()
		s.items[c.Name] = c
	}
	return s, nil
}

// Kind returns the service kind the set applies to.
func (s Set) Kind() catalog.Kind { return s.kind }

// Get returns a constraint by name.
func (s Set) Get(name string) (Constraint, bool) {
	c, ok := s.items[name]
	if ok {
		c.Value = c.Value.clone()
	}
	return c, ok
}

// With returns a copy of the set with c added or replaced.
func (s Set) With(c Constraint) Set {
	out := Set{kind: s.kind, items: make(map[string]Constraint, len(s.items)+1)}
	for name, existing := range s.items {
		out.items[name] = existing
	}
	c.Value = c.Value.clone()
	out.items[c.Name] = c
	return out
}

// Names returns the constraint names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of constraints.
func (s Set) Len() int { return len(s.items) }

// Filter projects the set onto a catalog filter.
func (s Set) Filter() catalog.Filter {
	var f catalog.Filter
	if c, ok := s.items[Origin]; ok {
		f.Origin = c.Value.Text
	}
	place := Location
	if s.kind == catalog.Flight {
		place = Destination
	}
	if c, ok := s.items[place]; ok {
		f.Locations = c.Value.Places()
	}
	if c, ok := s.items[Date]; ok {
		f.DateFrom, f.DateTo = c.Value.Window()
	}
	if c, ok := s.items[Budget]; ok {
		f.MaxPrice = c.Value.MaxPrice()
	}
	return f
}

// String renders the set in name order.
func (s Set) String() string {
	parts := make([]string, 0, len(s.items))
	for _, name := range s.Names() {
		c := s.items[name]
		parts = append(parts, fmt.Sprintf("%s[%s]=%s", name, c.Tier, c.Describe()))
	}
	return strings.Join(parts, " ")
}
