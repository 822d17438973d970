package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/constraint"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

func TestDefaultPolicyOrder(t *testing.T) {
	p := Default()

	types := func(kind catalog.Kind) []constraint.Rationale {
		var out []constraint.Rationale
		for _, s := range p.Strategies(kind) {
			out = append(out, s.Type())
		}
		return out
	}
	assert.Equal(t, []constraint.Rationale{constraint.DateShift, constraint.BudgetTier}, types(catalog.Flight))
	assert.Equal(t, []constraint.Rationale{constraint.DateShift, constraint.NearbyLocation, constraint.BudgetTier}, types(catalog.Hotel))
	assert.Equal(t, []constraint.Rationale{constraint.BudgetTier}, types(catalog.Taxi))

	flightShift := p.Strategies(catalog.Flight)[0].(DateShiftStrategy)
	assert.True(t, flightShift.Both)
	hotelShift := p.Strategies(catalog.Hotel)[0].(DateShiftStrategy)
	assert.False(t, hotelShift.Both)
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`
hotel:
  - type: NearbyLocation
    parameters:
      candidates: [Gurugram, Noida]
  - type: DateShift
    parameters:
      maxDays: 3
  - type: BudgetTier
    parameters:
      steps: [4000, 6000]
taxi:
  - type: BudgetTier
    parameters:
      factors: [1.5]
`))
	require.NoError(t, err)

	assert.Empty(t, p.Strategies(catalog.Flight))
	hotel := p.Strategies(catalog.Hotel)
	require.Len(t, hotel, 3)
	assert.Equal(t, NearbyStrategy{Candidates: []string{"Gurugram", "Noida"}}, hotel[0])
	assert.Equal(t, DateShiftStrategy{MaxDays: 3}, hotel[1])
	assert.Equal(t, BudgetTierStrategy{Steps: []int{4000, 6000}}, hotel[2])
	assert.Equal(t, 3, p.Config().Hotel[1].Parameters.MaxDays)
}

func TestParseEmptyDocument(t *testing.T) {
	p, err := Parse(nil)
	require.NoError(t, err)
	for _, kind := range catalog.Kinds {
		assert.Empty(t, p.Strategies(kind))
	}
}

func TestParseRejectsInvalidPolicies(t *testing.T) {
	tests := map[string]string{
		"unknown type": `
flight:
  - type: Teleport`,
		"unknown key": `
flight:
  - type: DateShift
    parameters: {maxDays: 2, hops: 1}`,
		"unknown kind": `
train:
  - type: DateShift
    parameters: {maxDays: 2}`,
		"nearby on flight": `
flight:
  - type: NearbyLocation
    parameters: {candidates: [Pune]}`,
		"nearby on taxi": `
taxi:
  - type: NearbyLocation
    parameters: {candidates: [Pune]}`,
		"date shift on taxi": `
taxi:
  - type: DateShift
    parameters: {maxDays: 1}`,
		"zero max days": `
hotel:
  - type: DateShift
    parameters: {maxDays: 0}`,
		"bad direction": `
hotel:
  - type: DateShift
    parameters: {maxDays: 1, direction: backward}`,
		"duplicate strategy": `
hotel:
  - type: DateShift
    parameters: {maxDays: 1}
  - type: DateShift
    parameters: {maxDays: 2}`,
		"empty candidates": `
hotel:
  - type: NearbyLocation`,
		"duplicate candidates": `
hotel:
  - type: NearbyLocation
    parameters: {candidates: [Noida, noida]}`,
		"blank candidate": `
hotel:
  - type: NearbyLocation
    parameters: {candidates: [Noida, " "]}`,
		"decreasing steps": `
hotel:
  - type: BudgetTier
    parameters: {steps: [6000, 4000]}`,
		"negative step": `
hotel:
  - type: BudgetTier
    parameters: {steps: [-1]}`,
		"factor below one": `
hotel:
  - type: BudgetTier
    parameters: {factors: [0.9]}`,
		"steps and factors": `
hotel:
  - type: BudgetTier
    parameters: {steps: [5000], factors: [1.5]}`,
		"no tiers": `
hotel:
  - type: BudgetTier`,
		"foreign parameter": `
hotel:
  - type: BudgetTier
    parameters: {steps: [5000], maxDays: 2}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, internalerr.ErrInvalidPolicy)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
flight:
  - type: DateShift
    parameters:
      maxDays: 1
      direction: forward
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DateShiftStrategy{MaxDays: 1, Both: false}, p.Strategies(catalog.Flight)[0])

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
