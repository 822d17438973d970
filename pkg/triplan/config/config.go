package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// OfferRecord is the YAML form of a catalog offer
type OfferRecord struct {
	ID          string  `yaml:"id" json:"id"`
	Kind        string  `yaml:"kind" json:"kind"`
	Provider    string  `yaml:"provider,omitempty" json:"provider,omitempty"`
	Origin      string  `yaml:"origin,omitempty" json:"origin,omitempty"`
	Destination string  `yaml:"destination,omitempty" json:"destination,omitempty"`
	Location    string  `yaml:"location,omitempty" json:"location,omitempty"`
	Date        string  `yaml:"date,omitempty" json:"date,omitempty"`
	Until       string  `yaml:"until,omitempty" json:"until,omitempty"`
	Price       int     `yaml:"price" json:"price"`
	Rating      float64 `yaml:"rating,omitempty" json:"rating,omitempty"`
	// Available defaults to true when omitted.
	Available *bool `yaml:"available,omitempty" json:"available,omitempty"`
}

// Offer converts the record into a catalog offer
func (r OfferRecord) Offer() (catalog.Offer, error) {
	kind, err := catalog.ParseKind(r.Kind)
	if err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %q: %w", r.ID, err)
	}
	date, err := catalog.ParseDate(r.Date)
	if err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %q: %w", r.ID, err)
	}
	until, err := catalog.ParseDate(r.Until)
	if err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %q: %w", r.ID, err)
	}
	if r.Price < 0 {
		return catalog.Offer{}, fmt.Errorf("offer %q: negative price %d", r.ID, r.Price)
	}

	o := catalog.Offer{
		ID:          r.ID,
		Kind:        kind,
		Provider:    r.Provider,
		Origin:      r.Origin,
		Destination: r.Destination,
		Location:    r.Location,
		Date:        date,
		Until:       until,
		Price:       r.Price,
		Rating:      r.Rating,
		Available:   r.Available == nil || *r.Available,
	}
	switch kind {
	case catalog.Flight:
		if o.Origin == "" || o.Destination == "" {
			return catalog.Offer{}, fmt.Errorf("offer %q: flight needs origin and destination", r.ID)
		}
	default:
		if o.Location == "" {
			return catalog.Offer{}, fmt.Errorf("offer %q: %s needs a location", r.ID, kind)
		}
	}
	if !until.IsZero() && !date.IsZero() && until.Before(date) {
		return catalog.Offer{}, fmt.Errorf("offer %q: until %s is before date %s", r.ID, r.Until, r.Date)
	}
	return o, nil
}

// Record converts an offer back into its YAML form
func Record(o catalog.Offer) OfferRecord {
	r := OfferRecord{
		ID:          o.ID,
		Kind:        o.Kind.String(),
		Provider:    o.Provider,
		Origin:      o.Origin,
		Destination: o.Destination,
		Location:    o.Location,
		Price:       o.Price,
		Rating:      o.Rating,
	}
	if !o.Date.IsZero() {
		r.Date = catalog.FormatDate(o.Date)
	}
	if !o.Until.IsZero() {
		r.Until = catalog.FormatDate(o.Until)
	}
	if !o.Available {
		no := false
		r.Available = &no
	}
	return r
}

// CatalogFile is the catalog seed layout
type CatalogFile struct {
	Offers []OfferRecord `yaml:"offers"`
}

// ParseCatalog decodes a YAML catalog seed
func ParseCatalog(data []byte) ([]catalog.Offer, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	offers := make([]catalog.Offer, 0, len(file.Offers))
	seen := make(map[string]bool, len(file.Offers))
	for _, rec := range file.Offers {
		o, err := rec.Offer()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
		}
		if o.ID != "" {
			if seen[o.ID] {
				return nil, fmt.Errorf("%w: duplicate offer id %q", internalerr.ErrInvalidConfig, o.ID)
			}
			seen[o.ID] = true
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// LoadCatalog loads offers from a YAML file
func LoadCatalog(path string) ([]catalog.Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// MarshalCatalog renders offers as a YAML catalog seed
func MarshalCatalog(offers []catalog.Offer) ([]byte, error) {
	file := CatalogFile{Offers: make([]OfferRecord, 0, len(offers))}
	for _, o := range offers {
		file.Offers = append(file.Offers, Record(o))
	}
	return yaml.Marshal(file)
}
