package domain

// =============================================================================
// Demand
// =============================================================================

// DemandEntry is one period's demand for a product and the penalty rates
// for missing it in either direction.
type DemandEntry struct {
	PeriodID      string  `json:"period_id"`
	Demand        float64 `json:"demand"`
	CostAboveGoal float64 `json:"cost_above_goal"`
	CostBelowGoal float64 `json:"cost_below_goal"`
}

// Demand is the per-period demand series of a product (or product group).
type Demand struct {
	Product   string        `json:"product"`
	ValueProd float64       `json:"value_prod"`
	Periods   []DemandEntry `json:"periods"`
}

// Entry returns the demand entry for a period.
func (d Demand) Entry(periodID string) (DemandEntry, bool) {
	for _, e := range d.Periods {
		if e.PeriodID == periodID {
			return e, true
		}
	}
	return DemandEntry{}, false
}

// =============================================================================
// Distances
// =============================================================================

// Distance is the movement distance between two tasks.
type Distance struct {
	FromTaskID string  `json:"from"`
	ToTaskID   string  `json:"to"`
	Km         float64 `json:"km"`
}

type distanceKey struct{ from, to string }

// DistanceMatrix is a sparse directed lookup of task-to-task distances.
type DistanceMatrix struct {
	km map[distanceKey]float64
}

// NewDistanceMatrix indexes a distance list. Later duplicates win.
func NewDistanceMatrix(distances []Distance) DistanceMatrix {
	m := DistanceMatrix{km: make(map[distanceKey]float64, len(distances))}
	for _, d := range distances {
		m.km[distanceKey{d.FromTaskID, d.ToTaskID}] = d.Km
	}
	return m
}

// Lookup returns the distance from one task to another. A missing pair
// returns 0 and false.
func (m DistanceMatrix) Lookup(from, to string) (float64, bool) {
	km, ok := m.km[distanceKey{from, to}]
	return km, ok
}
