package memcatalog

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Catalog is an in-memory implementation of catalog.Catalog.
// Catalog order is insertion order; re-upserting an ID keeps its position.
type Catalog struct {
	mu     sync.RWMutex
	offers []catalog.Offer
	index  map[string]int
}

// New creates an in-memory catalog holding the given offers.
func New(offers ...catalog.Offer) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, o := range offers {
		c.Upsert(o)
	}
	return c
}

// Upsert inserts or replaces an offer, keyed by ID. Offers without an ID get
// one derived from their kind and position.
func (c *Catalog) Upsert(o catalog.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.ID == "" {
		o.ID = fmt.Sprintf("%s-%d", o.Kind, len(c.offers)+1)
	}
	if pos, ok := c.index[o.ID]; ok {
		c.offers[pos] = o
		return
	}
	c.index[o.ID] = len(c.offers)
	c.offers = append(c.offers, o)
}

// Get returns an offer by ID.
func (c *Catalog) Get(id string) (catalog.Offer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[id]
	if !ok {
		return catalog.Offer{}, fmt.Errorf("offer %s: %w", id, internalerr.ErrNotFound)
	}
	return c.offers[pos], nil
}

// Len returns the number of offers held.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.offers)
}

// All returns every offer in catalog order.
func (c *Catalog) All() []catalog.Offer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Offer, len(c.offers))
	copy(out, c.offers)
	return out
}

// Find implements catalog.Catalog. Each range takes a fresh snapshot.
func (c *Catalog) Find(ctx context.Context, kind catalog.Kind, f catalog.Filter) iter.Seq2[catalog.Offer, error] {
	return func(yield func(catalog.Offer, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
			return
		}
		for _, o := range c.snapshot(kind, f) {
			if !yield(o, nil) {
				return
			}
		}
	}
}

func (c *Catalog) snapshot(kind catalog.Kind, f catalog.Filter) []catalog.Offer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []catalog.Offer
	for _, o := range c.offers {
		if o.Kind == kind && f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}
