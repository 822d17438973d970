package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/triplan/pkg/triplan/config"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
	"github.com/cognicore/triplan/pkg/triplan/itinerary"
)

// run executes the CLI with a clean environment and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"TRIPLAN_POLICY", "TRIPLAN_CATALOG", "TRIPLAN_FACTS", "TRIPLAN_DB", "TRIPLAN_PLACES"} {
		t.Setenv(key, "")
	}
	t.Setenv("TRIPLAN_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	out, err := run(t, "plan", "--from", "Chennai", "--to", "Delhi", "--date", "2025-11-05", "--budget", "10000", "--candidates")
	require.NoError(t, err)

	assert.Contains(t, out, "2 flight candidates")
	assert.Contains(t, out, ": OK (total 9900, budget 10000)")
	assert.Contains(t, out, "hotel  Hotel2 in Delhi on 2025-11-05 at 2500")
	assert.Contains(t, out, "Why:")
	assert.Contains(t, out, "  - taxi: location Delhi taken from the previous leg")
}

func TestPlanCommandJSON(t *testing.T) {
	out, err := run(t, "plan", "--from", "Chennai", "--to", "Pune", "--date", "2025-11-05", "--json")
	require.NoError(t, err)

	var s itinerary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, itinerary.StatusInfeasible, s.Status)
	assert.Empty(t, s.Legs[0].OfferID)
}

func TestPlanCommandInvalidRequest(t *testing.T) {
	_, err := run(t, "plan", "--from", "Chennai", "--date", "2025-11-05")
	assert.ErrorIs(t, err, internalerr.ErrInvalidRequest)
}

func TestCheckPolicyCommand(t *testing.T) {
	out, err := run(t, "check-policy")
	require.NoError(t, err)
	assert.Equal(t, "flight: DateShift BudgetTier\nhotel: DateShift NearbyLocation BudgetTier\ntaxi: BudgetTier\npolicy ok\n", out)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("taxi:\n  - type: NearbyLocation\n    parameters: {candidates: [Pune]}\n"), 0o644))
	_, err = run(t, "check-policy", path)
	assert.ErrorIs(t, err, internalerr.ErrInvalidPolicy)
}

func TestSeedCommand(t *testing.T) {
	_, err := run(t, "seed")
	assert.Error(t, err, "seeding needs a database")

	db := filepath.Join(t.TempDir(), "triplan.db")
	out, err := run(t, "--db", db, "seed")
	require.NoError(t, err)
	n := len(config.Seed())
	assert.Equal(t, fmt.Sprintf("seeded %d offers (%d in catalog)\n", n, n), out)

	out, err = run(t, "--db", db, "plan", "--from", "Chennai", "--to", "Delhi", "--date", "2025-11-05")
	require.NoError(t, err)
	assert.Contains(t, out, "flight Flight1 (IndiGo) Chennai -> Delhi")
}

func TestExportFactsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("offers: [{id: T1, kind: taxi, location: Delhi, price: 900}]\n"), 0o644))

	out, err := run(t, "export-facts", path)
	require.NoError(t, err)
	assert.Equal(t, "type(T1, taxi).\nlocation(T1, Delhi).\nprice(T1, 900).\n", out)

	out, err = run(t, "export-facts")
	require.NoError(t, err)
	assert.Contains(t, out, "type(Flight1, flight).")
}

func TestPlacesFlag(t *testing.T) {
	out, err := run(t, "plan", "--from", "Madras", "--to", "new delhi", "--date", "2025-11-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Flight1 (IndiGo) Chennai -> Delhi")

	_, err = run(t, "--places", filepath.Join(t.TempDir(), "missing.yaml"), "plan", "--from", "Chennai", "--to", "Delhi", "--date", "2025-11-05")
	assert.Error(t, err)
}
