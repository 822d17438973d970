package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/factcatalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/memcatalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/sqlite"
	"github.com/cognicore/triplan/pkg/triplan/facts"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
	"github.com/cognicore/triplan/pkg/triplan/places"
	"github.com/cognicore/triplan/pkg/triplan/policy"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed returns the bundled demo catalog
func Seed() []catalog.Offer {
	offers, err := ParseCatalog(seedYAML)
	if err != nil {
		panic(err)
	}
	return offers
}

// Loader loads all configuration files and constructs components
type Loader struct {
	PolicyPath  string
	CatalogPath string
	FactsPath   string
	DBPath      string
	// PlacesPath replaces the built-in place-name aliases.
	PlacesPath string
	// UseSeed falls back to the bundled demo catalog when no source is set.
	UseSeed bool
}

// Components holds all loaded configuration components
type Components struct {
	Policy  *policy.Policy
	Places  *places.Gazetteer
	Catalog catalog.Catalog

	closer func() error
}

// Close releases the catalog's resources, if any
func (c *Components) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Load reads all configuration files and returns initialized components.
//
// With DBPath set the SQLite catalog is used, seeded with any offers from
// CatalogPath and FactsPath. Otherwise FactsPath yields a fact-backed catalog
// and CatalogPath an in-memory one; the two cannot be combined without a DB.
// Offers read from files have their places canonicalised on the way in; a
// live fact catalog is served as written.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	comp := &Components{}

	// Load policy
	if l.PolicyPath != "" {
		p, err := policy.Load(l.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		comp.Policy = p
	} else {
		comp.Policy = policy.Default()
	}

	// Load place names
	if l.PlacesPath != "" {
		g, err := places.Load(l.PlacesPath)
		if err != nil {
			return nil, fmt.Errorf("load places: %w", err)
		}
		comp.Places = g
	} else {
		comp.Places = places.Default()
	}

	// Load seed offers
	var offers []catalog.Offer
	if l.CatalogPath != "" {
		loaded, err := LoadCatalog(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		offers = comp.Places.Offers(loaded)
	}
	var kb *facts.Engine
	if l.FactsPath != "" {
		engine, err := LoadFacts(l.FactsPath)
		if err != nil {
			return nil, fmt.Errorf("load facts: %w", err)
		}
		kb = engine
	}

	switch {
	case l.DBPath != "":
		db, err := sqlite.OpenSQLite(ctx, l.DBPath)
		if err != nil {
			return nil, err
		}
		if kb != nil {
			fromFacts, err := factcatalog.New(kb).Offers()
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("load facts: %w", err)
			}
			offers = append(offers, comp.Places.Offers(fromFacts)...)
		}
		if len(offers) > 0 {
			if err := db.UpsertOffers(ctx, offers); err != nil {
				db.Close()
				return nil, fmt.Errorf("seed catalog: %w", err)
			}
		}
		comp.Catalog = db
		comp.closer = db.Close

	case kb != nil:
		if l.CatalogPath != "" {
			return nil, fmt.Errorf("%w: facts and catalog files need a database to be combined", internalerr.ErrInvalidConfig)
		}
		comp.Catalog = factcatalog.New(kb)

	case l.CatalogPath != "":
		comp.Catalog = memcatalog.New(offers...)

	case l.UseSeed:
		comp.Catalog = memcatalog.New(comp.Places.Offers(Seed())...)

	default:
		comp.Catalog = memcatalog.New()
	}

	return comp, nil
}

// LoadFacts reads a fact file into a new engine
func LoadFacts(path string) (*facts.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kb := facts.New()
	if err := kb.Load(string(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return kb, nil
}
