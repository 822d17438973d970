// Package factcatalog serves offers described as facts, mirroring how the
// travel knowledge graph records services as subject/relation/object triples:
//
//	type(Flight1, flight)
//	departure(Flight1, Chennai)
//	arrival(Flight1, Delhi)
//	provider(Flight1, IndiGo)
//	date(Flight1, 2025-11-05)
//	price(Flight1, 6500)
//
// Hotels use location/date/until/rating, taxis use location (or city).
// An offer is available unless available(X, false) is asserted.
package factcatalog

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/facts"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Relations understood by the catalog
const (
	RelType      = "type"
	RelDeparture = "departure"
	RelArrival   = "arrival"
	RelLocation  = "location"
	RelCity      = "city"
	RelProvider  = "provider"
	RelDate      = "date"
	RelUntil     = "until"
	RelPrice     = "price"
	RelRating    = "rating"
	RelAvailable = "available"
)

// Catalog answers catalog queries directly from a fact base.
// Offers are materialised on every query, so malformed facts surface as
// catalog access failures at query time.
type Catalog struct {
	kb *facts.Engine
}

// New wraps a fact base
func New(kb *facts.Engine) *Catalog {
	return &Catalog{kb: kb}
}

// Find implements catalog.Catalog
func (c *Catalog) Find(ctx context.Context, kind catalog.Kind, f catalog.Filter) iter.Seq2[catalog.Offer, error] {
	return func(yield func(catalog.Offer, error) bool) {
		for _, subject := range c.kb.Subjects(RelType, kind.String()) {
			if err := ctx.Err(); err != nil {
				yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
				return
			}
			o, err := c.offer(subject, kind)
			if err != nil {
				yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
				return
			}
			if !f.Match(o) {
				continue
			}
			if !yield(o, nil) {
				return
			}
		}
	}
}

// Offers materialises every offer in the fact base, in catalog order
func (c *Catalog) Offers() ([]catalog.Offer, error) {
	var out []catalog.Offer
	for _, kind := range catalog.Kinds {
		for _, subject := range c.kb.Subjects(RelType, kind.String()) {
			o, err := c.offer(subject, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *Catalog) offer(subject string, kind catalog.Kind) (catalog.Offer, error) {
	o := catalog.Offer{
		ID:        subject,
		Kind:      kind,
		Available: !c.kb.Query(RelAvailable, subject, "false"),
	}
	o.Provider, _ = c.kb.First(RelProvider, subject)

	switch kind {
	case catalog.Flight:
		o.Origin, _ = c.kb.First(RelDeparture, subject)
		o.Destination, _ = c.kb.First(RelArrival, subject)
		if o.Origin == "" || o.Destination == "" {
			return o, fmt.Errorf("flight %s: missing departure or arrival", subject)
		}
	default:
		loc, ok := c.kb.First(RelLocation, subject)
		if !ok {
			loc, ok = c.kb.First(RelCity, subject)
		}
		if !ok {
			return o, fmt.Errorf("%s %s: missing location", kind, subject)
		}
		o.Location = loc
	}

	raw, ok := c.kb.First(RelPrice, subject)
	if !ok {
		return o, fmt.Errorf("%s %s: missing price", kind, subject)
	}
	price, err := strconv.Atoi(raw)
	if err != nil {
		return o, fmt.Errorf("%s %s: bad price %q", kind, subject, raw)
	}
	o.Price = price

	if raw, ok := c.kb.First(RelDate, subject); ok {
		if o.Date, err = catalog.ParseDate(raw); err != nil {
			return o, fmt.Errorf("%s %s: %w", kind, subject, err)
		}
	}
	if raw, ok := c.kb.First(RelUntil, subject); ok {
		if o.Until, err = catalog.ParseDate(raw); err != nil {
			return o, fmt.Errorf("%s %s: %w", kind, subject, err)
		}
	}
	if raw, ok := c.kb.First(RelRating, subject); ok {
		if o.Rating, err = strconv.ParseFloat(raw, 64); err != nil {
			return o, fmt.Errorf("%s %s: bad rating %q", kind, subject, raw)
		}
	}
	return o, nil
}

// Export renders offers as fact text readable by facts.Engine.Load
func Export(offers []catalog.Offer) string {
	var b strings.Builder
	for _, o := range offers {
		id := sanitize(o.ID)
		writeFact(&b, RelType, id, o.Kind.String())
		if o.Kind == catalog.Flight {
			writeFact(&b, RelDeparture, id, o.Origin)
			writeFact(&b, RelArrival, id, o.Destination)
		} else {
			writeFact(&b, RelLocation, id, o.Location)
		}
		writeFact(&b, RelProvider, id, o.Provider)
		if !o.Date.IsZero() {
			writeFact(&b, RelDate, id, o.Date.Format(catalog.DateLayout))
		}
		if !o.Until.IsZero() {
			writeFact(&b, RelUntil, id, o.Until.Format(catalog.DateLayout))
		}
		writeFact(&b, RelPrice, id, strconv.Itoa(o.Price))
		if o.Rating > 0 {
			writeFact(&b, RelRating, id, strconv.FormatFloat(o.Rating, 'f', -1, 64))
		}
		if !o.Available {
			writeFact(&b, RelAvailable, id, "false")
		}
	}
	return b.String()
}

func writeFact(b *strings.Builder, relation, subject, object string) {
	if object == "" {
		return
	}
	fmt.Fprintf(b, "%s(%s, %s).\n", relation, subject, sanitize(object))
}

func sanitize(s string) string {
	return strings.NewReplacer(",", " ", "(", " ", ")", " ", "%", " ").Replace(s)
}
