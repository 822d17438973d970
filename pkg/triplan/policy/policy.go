package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Parameters holds the recognised strategy parameters. Which fields apply
// depends on the descriptor type.
type Parameters struct {
	MaxDays    int       `yaml:"maxDays,omitempty" json:"maxDays,omitempty"`
	Direction  string    `yaml:"direction,omitempty" json:"direction,omitempty"`
	Candidates []string  `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Steps      []int     `yaml:"steps,omitempty" json:"steps,omitempty"`
	Factors    []float64 `yaml:"factors,omitempty" json:"factors,omitempty"`
}

// Descriptor configures one strategy
type Descriptor struct {
	Type       constraint.Rationale `yaml:"type" json:"type"`
	Parameters Parameters           `yaml:"parameters" json:"parameters"`
}

// Config is the policy file layout: an ordered strategy list per service kind
type Config struct {
	Flight []Descriptor `yaml:"flight" json:"flight"`
	Hotel  []Descriptor `yaml:"hotel" json:"hotel"`
	Taxi   []Descriptor `yaml:"taxi" json:"taxi"`
}

func (c Config) forKind(k catalog.Kind) []Descriptor {
	switch k {
	case catalog.Flight:
		return c.Flight
	case catalog.Hotel:
		return c.Hotel
	case catalog.Taxi:
		return c.Taxi
	}
	return nil
}

// Direction values for DateShift
const (
	DirectionForward = "forward"
	DirectionBoth    = "both"
)

// Policy maps each service kind to its ordered strategies.
// A Policy is validated on construction and read-only afterwards.
type Policy struct {
	cfg        Config
	strategies map[catalog.Kind][]Strategy
}

// DefaultConfig is the built-in policy: flights may move a couple
// of days either way, hotels may check in up to two days late or in the NCR
// satellite cities, and every leg may climb two budget tiers.
func DefaultConfig() Config {
	tiers := Descriptor{Type: constraint.BudgetTier, Parameters: Parameters{Factors: []float64{1.25, 1.5}}}
	return Config{
		Flight: []Descriptor{
			{Type: constraint.DateShift, Parameters: Parameters{MaxDays: 2, Direction: DirectionBoth}},
			tiers,
		},
		Hotel: []Descriptor{
			{Type: constraint.DateShift, Parameters: Parameters{MaxDays: 2, Direction: DirectionForward}},
			{Type: constraint.NearbyLocation, Parameters: Parameters{Candidates: []string{"Gurugram", "Noida", "Ghaziabad", "Faridabad"}}},
			tiers,
		},
		Taxi: []Descriptor{tiers},
	}
}

// Default returns the policy built from DefaultConfig
func Default() *Policy {
	p, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// New validates a config and builds the policy
func New(cfg Config) (*Policy, error) {
	p := &Policy{cfg: cfg, strategies: make(map[catalog.Kind][]Strategy)}
	for _, kind := range catalog.Kinds {
		seen := make(map[constraint.Rationale]bool)
		for i, d := range cfg.forKind(kind) {
			if seen[d.Type] {
				return nil, fmt.Errorf("%w: %s strategy %d: duplicate %s", internalerr.ErrInvalidPolicy, kind, i+1, d.Type)
			}
			seen[d.Type] = true

			s, err := build(kind, d)
			if err != nil {
				return nil, fmt.Errorf("%w: %s strategy %d: %v", internalerr.ErrInvalidPolicy, kind, i+1, err)
			}
			p.strategies[kind] = append(p.strategies[kind], s)
		}
	}
	return p, nil
}

// Parse decodes and validates a YAML policy. Unknown keys are rejected.
func Parse(data []byte) (*Policy, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidPolicy, err)
	}
	return New(cfg)
}

// Load reads a YAML policy file
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Strategies returns the ordered strategies for a kind
func (p *Policy) Strategies(kind catalog.Kind) []Strategy {
	return p.strategies[kind]
}

// Config returns the descriptors the policy was built from
func (p *Policy) Config() Config {
	return p.cfg
}

func build(kind catalog.Kind, d Descriptor) (Strategy, error) {
	params := d.Parameters
	switch d.Type {
	case constraint.DateShift:
		if kind == catalog.Taxi {
			return nil, fmt.Errorf("DateShift does not apply to taxi legs")
		}
		if params.MaxDays < 1 {
			return nil, fmt.Errorf("DateShift.maxDays must be >= 1, got %d", params.MaxDays)
		}
		if len(params.Candidates) > 0 || len(params.Steps) > 0 || len(params.Factors) > 0 {
			return nil, fmt.Errorf("DateShift accepts only maxDays and direction")
		}
		both := kind == catalog.Flight
		switch strings.ToLower(params.Direction) {
		case "":
		case DirectionForward:
			both = false
		case DirectionBoth:
			both = true
		default:
			return nil, fmt.Errorf("DateShift.direction %q: want %s or %s", params.Direction, DirectionForward, DirectionBoth)
		}
		return DateShiftStrategy{MaxDays: params.MaxDays, Both: both}, nil

	case constraint.NearbyLocation:
		if kind != catalog.Hotel {
			return nil, fmt.Errorf("NearbyLocation does not apply to %s legs", kind)
		}
		if len(params.Candidates) == 0 {
			return nil, fmt.Errorf("NearbyLocation.candidates must not be empty")
		}
		if params.MaxDays != 0 || params.Direction != "" || len(params.Steps) > 0 || len(params.Factors) > 0 {
			return nil, fmt.Errorf("NearbyLocation accepts only candidates")
		}
		var cands []string
		for _, c := range params.Candidates {
			c = strings.TrimSpace(c)
			if c == "" {
				return nil, fmt.Errorf("NearbyLocation.candidates contains an empty location")
			}
			if containsFold(cands, c) {
				return nil, fmt.Errorf("NearbyLocation.candidates lists %q twice", c)
			}
			cands = append(cands, c)
		}
		return NearbyStrategy{Candidates: cands}, nil

	case constraint.BudgetTier:
		if params.MaxDays != 0 || params.Direction != "" || len(params.Candidates) > 0 {
			return nil, fmt.Errorf("BudgetTier accepts only steps or factors")
		}
		if (len(params.Steps) == 0) == (len(params.Factors) == 0) {
			return nil, fmt.Errorf("BudgetTier needs exactly one of steps or factors")
		}
		for i, s := range params.Steps {
			if s <= 0 {
				return nil, fmt.Errorf("BudgetTier.steps[%d] must be positive", i)
			}
			if i > 0 && s <= params.Steps[i-1] {
				return nil, fmt.Errorf("BudgetTier.steps must be strictly increasing")
			}
		}
		for i, f := range params.Factors {
			if f <= 1 {
				return nil, fmt.Errorf("BudgetTier.factors[%d] must be greater than 1", i)
			}
			if i > 0 && f <= params.Factors[i-1] {
				return nil, fmt.Errorf("BudgetTier.factors must be strictly increasing")
			}
		}
		return BudgetTierStrategy{Steps: params.Steps, Factors: params.Factors}, nil
	}
	return nil, fmt.Errorf("unknown strategy type %q", d.Type)
}
