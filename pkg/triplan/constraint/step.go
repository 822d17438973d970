package constraint

import "fmt"

// Rationale tags the kind of loosening a step applied
type Rationale string

const (
	DateShift      Rationale = "DateShift"
	NearbyLocation Rationale = "NearbyLocation"
	BudgetTier     Rationale = "BudgetTier"
)

// Step records one loosening applied while matching a leg
type Step struct {
	Constraint string    `json:"constraint"`
	Rationale  Rationale `json:"rationale"`
	Original   string    `json:"original"`
	Relaxed    string    `json:"relaxed"`
	// Label is the short form shown in traces: "+2", "Gurugram", "tier-2".
	Label string `json:"label"`
	// Distance is how far the step moved from the request: days shifted,
	// rank in the nearby list, or tiers above the budget. Never negative.
	Distance int `json:"distance"`
}

func (s Step) String() string {
	return fmt.Sprintf("%s(%s)", s.Rationale, s.Label)
}
