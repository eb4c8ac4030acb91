package domain

// =============================================================================
// Team
// =============================================================================

// Team is a resource track that runs tasks one at a time.
type Team struct {
	ID                          string  `json:"id"`
	Color                       string  `json:"color,omitempty"`
	MaxWheelingDistKm           float64 `json:"max_wheeling_dist_km"`
	FixMovingCostWithoutTrailer float64 `json:"fix_moving_cost_without_trailer"`
	FixMovingCostWithTrailer    float64 `json:"fix_moving_cost_with_trailer"`
	TrailerAverageSpeed         float64 `json:"trailer_average_speed"`
	TrailerCost                 float64 `json:"trailer_cost"`
}

// NeedsTrailer reports whether a move of km kilometres exceeds the
// team's wheeling range.
func (t Team) NeedsTrailer(km float64) bool {
	return km > t.MaxWheelingDistKm
}
