package places

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Gazetteer maps place-name variants to one canonical spelling:
// - Renamed cities (Bombay → Mumbai, Gurgaon → Gurugram)
// - Long forms and codes (New Delhi, DEL → Delhi)
//
// Lookups are case-insensitive. Canonical names keep the case they were
// registered with, since they end up in itineraries and explanations.
// A nil Gazetteer leaves every name unchanged.
type Gazetteer struct {
	// lower-case canonical -> all variants, canonical first
	groups map[string][]string

	// lower-case variant -> canonical display form
	reverse map[string]string
}

// New creates an empty gazetteer.
func New() *Gazetteer {
	return &Gazetteer{
		groups:  make(map[string][]string),
		reverse: make(map[string]string),
	}
}

// Default returns the built-in aliases for the cities the bundled catalog covers.
func Default() *Gazetteer {
	g := New()
	g.Add("Delhi", "New Delhi", "NCT Delhi", "DEL")
	g.Add("Mumbai", "Bombay", "BOM")
	g.Add("Chennai", "Madras", "MAA")
	g.Add("Gurugram", "Gurgaon")
	g.Add("Kolkata", "Calcutta", "CCU")
	g.Add("Bengaluru", "Bangalore", "BLR")
	return g
}

// File is the YAML layout of a gazetteer:
//
//	places:
//	  - canonical: Mumbai
//	    variants: [Bombay, BOM]
type File struct {
	Places []struct {
		Canonical string   `yaml:"canonical"`
		Variants  []string `yaml:"variants"`
	} `yaml:"places"`
}

// Parse decodes a YAML gazetteer. A variant claimed by two places is rejected.
func Parse(data []byte) (*Gazetteer, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	g := New()
	for i, entry := range file.Places {
		canonical := strings.TrimSpace(entry.Canonical)
		if canonical == "" {
			return nil, fmt.Errorf("%w: place %d has no canonical name", internalerr.ErrInvalidConfig, i+1)
		}
		for _, v := range append([]string{canonical}, entry.Variants...) {
			key := strings.ToLower(strings.TrimSpace(v))
			if owner, ok := g.reverse[key]; ok && !strings.EqualFold(owner, canonical) {
				return nil, fmt.Errorf("%w: %q is listed under both %s and %s", internalerr.ErrInvalidConfig, v, owner, canonical)
			}
		}
		g.Add(canonical, entry.Variants...)
	}
	return g, nil
}

// Load reads a YAML gazetteer file
func Load(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Add registers a place and its variants. Re-adding a place replaces its
// previous variants.
func (g *Gazetteer) Add(canonical string, variants ...string) {
	canonical = strings.TrimSpace(canonical)
	key := strings.ToLower(canonical)

	if old, exists := g.groups[key]; exists {
		for _, v := range old {
			delete(g.reverse, v)
		}
	}

	group := []string{key}
	seen := map[string]bool{key: true}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		group = append(group, v)
		seen[v] = true
	}

	g.groups[key] = group
	for _, v := range group {
		g.reverse[v] = canonical
	}
}

// Canonical returns the canonical spelling of a place, or the trimmed name
// itself when it is unknown.
func (g *Gazetteer) Canonical(name string) string {
	name = strings.TrimSpace(name)
	if g == nil {
		return name
	}
	if canonical, ok := g.reverse[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// Variants lists every known lower-case spelling of a place, canonical first.
func (g *Gazetteer) Variants(name string) []string {
	key := strings.ToLower(strings.TrimSpace(name))
	if g == nil {
		return []string{key}
	}
	if canonical, ok := g.reverse[key]; ok {
		return g.groups[strings.ToLower(canonical)]
	}
	return []string{key}
}

// Len returns the number of places registered.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.groups)
}

// Offer rewrites an offer's places to their canonical spelling.
func (g *Gazetteer) Offer(o catalog.Offer) catalog.Offer {
	if o.Origin != "" {
		o.Origin = g.Canonical(o.Origin)
	}
	if o.Destination != "" {
		o.Destination = g.Canonical(o.Destination)
	}
	if o.Location != "" {
		o.Location = g.Canonical(o.Location)
	}
	return o
}

// Offers rewrites every offer in place and returns the slice.
func (g *Gazetteer) Offers(offers []catalog.Offer) []catalog.Offer {
	for i := range offers {
		offers[i] = g.Offer(offers[i])
	}
	return offers
}
