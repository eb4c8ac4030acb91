package domain

// =============================================================================
// Periods and Months
// =============================================================================

// Period is an atomic time bucket. The order of a []Period defines the horizon.
type Period struct {
	ID          string  `json:"id"`
	LengthHours float64 `json:"length_h"`
}

// Boundary is the cumulative end hour of a period. A boundary list starts
// with a zero entry whose PeriodID is empty.
type Boundary struct {
	PeriodID string  `json:"id"`
	Total    float64 `json:"total"`
}

// Month groups a contiguous run of periods.
type Month struct {
	ID        string   `json:"id"`
	PeriodIDs []string `json:"periods"`
}
