package domain

const (
	// DefaultModel is used when a request omits the target model.
	DefaultModel = "flux-dev"

	// minUnits is charged for models absent from the table.
	minUnits = 1
)

// StaticCostTable maps model identifiers to credit costs.
type StaticCostTable struct {
	units map[string]int
}

// NewStaticCostTable creates the production cost table.
func NewStaticCostTable() *StaticCostTable {
	return &StaticCostTable{
		units: map[string]int{
			"flux-schnell": 1,
			"flux-dev":     2,
			"flux-pro":     5,
		},
	}
}

// UnitsFor returns the credit cost for a model. Absence means minimum cost,
// not an error.
func (t *StaticCostTable) UnitsFor(model string) int {
	if units, exists := t.units[model]; exists {
		return units
	}
	return minUnits
}
