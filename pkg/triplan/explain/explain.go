package explain

import (
	"fmt"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/match"
)

// Explain projects a leg result onto human-readable statements: derived
// inputs first, then one statement per relaxation step, then a terminal
// statement saying how the leg ended.
func Explain(r match.LegResult) []string {
	leg := r.Kind.String()
	var out []string

	for _, name := range r.Constraints.Names() {
		c, _ := r.Constraints.Get(name)
		if c.Tier == constraint.Derived {
			out = append(out, fmt.Sprintf("%s: %s %s taken from the previous leg", leg, name, c.Describe()))
		}
	}

	for _, step := range r.Steps {
		if r.Found() {
			out = append(out, fmt.Sprintf("%s: relaxed %s from %s to %s (%s)",
				leg, step.Constraint, step.Original, step.Relaxed, step))
		} else {
			out = append(out, fmt.Sprintf("%s: widened %s from %s to %s (%s) without success",
				leg, step.Constraint, step.Original, step.Relaxed, step))
		}
	}

	switch {
	case !r.Found():
		line := fmt.Sprintf("%s: no match found after exhausting %d %s",
			leg, r.Tried, plural(r.Tried, "strategy", "strategies"))
		switch {
		case r.Tried == 0:
			line += " (none configured)"
		case r.Strategies == 0:
			line += " (none could loosen its constraints)"
		}
		out = append(out, line)
	case r.Exact:
		out = append(out, fmt.Sprintf("%s: exact match %s", leg, Offer(*r.Chosen)))
	default:
		out = append(out, fmt.Sprintf("%s: matched %s after %d %s",
			leg, Offer(*r.Chosen), len(r.Steps), plural(len(r.Steps), "relaxation", "relaxations")))
	}
	return out
}

// Offer describes an offer in one line
func Offer(o catalog.Offer) string {
	var where string
	if o.Kind == catalog.Flight {
		where = fmt.Sprintf("%s -> %s", o.Origin, o.Destination)
	} else {
		where = "in " + o.Location
	}
	desc := o.ID
	if o.Provider != "" {
		desc += " (" + o.Provider + ")"
	}
	if !o.Date.IsZero() {
		where += " on " + catalog.FormatDate(o.Date)
	}
	return fmt.Sprintf("%s %s at %d", desc, where, o.Price)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
