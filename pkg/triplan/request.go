package triplan

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

var validate = validator.New()

// Request is a planning request as it arrives at the boundary
type Request struct {
	Origin      string `json:"origin" yaml:"origin" validate:"required"`
	Destination string `json:"destination" yaml:"destination" validate:"required"`
	// Date is the travel date, YYYY-MM-DD.
	Date string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	// Budget is an optional per-leg price ceiling. Zero disables budget relaxation.
	Budget int `json:"budget,omitempty" yaml:"budget,omitempty" validate:"gte=0"`
}

// Validate checks the request before any matching starts
func (r Request) Validate() error {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.Date = strings.TrimSpace(r.Date)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidRequest, err)
	}
	return nil
}

// travelDate returns the parsed date of a validated request.
func (r Request) travelDate() time.Time {
	d, _ := catalog.ParseDate(r.Date)
	return d
}

// FlightConstraints seeds the flight leg: origin and destination must hold,
// the date and budget may be relaxed.
func (r Request) FlightConstraints() (constraint.Set, error) {
	if err := r.Validate(); err != nil {
		return constraint.Set{}, err
	}
	cs := []constraint.Constraint{
		{Name: constraint.Origin, Tier: constraint.Exact, Value: constraint.Value{Text: strings.TrimSpace(r.Origin)}},
		{Name: constraint.Destination, Tier: constraint.Exact, Value: constraint.Value{Text: strings.TrimSpace(r.Destination)}},
		{Name: constraint.Date, Tier: constraint.Relaxable, Value: constraint.Value{Date: r.travelDate()}},
	}
	return constraint.NewSet(catalog.Flight, append(cs, r.budget()...)...)
}

func (r Request) budget() []constraint.Constraint {
	if r.Budget <= 0 {
		return nil
	}
	return []constraint.Constraint{
		{Name: constraint.Budget, Tier: constraint.Relaxable, Value: constraint.Value{Amount: r.Budget}},
	}
}
