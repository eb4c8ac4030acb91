package validation

// =============================================================================
// Request Validation Functions
// =============================================================================

// ValidatePlaceFields validates required fields for a place request.
// Returns the field name and error message if validation fails.
// Returns empty strings if all fields are valid.
func ValidatePlaceFields(teamID string) (field, message string) {
	if teamID == "" {
		return "team_id", "team_id is required"
	}
	return "", ""
}

// ValidateMoveFields validates required fields for a move request.
//
// Example:
//
//	start := 40.0
//	field, msg := ValidateMoveFields("T1", &start)
//	if field != "" {
//	    // Handle validation error
//	}
func ValidateMoveFields(teamID string, startHour *float64) (field, message string) {
	if teamID == "" {
		return "team_id", "team_id is required"
	}
	if startHour == nil {
		return "start_hour", "start_hour is required"
	}
	return "", ""
}

// ValidateCreatePlanFields validates required fields for plan creation.
func ValidateCreatePlanFields(name string) (field, message string) {
	if name == "" {
		return "name", "name is required"
	}
	return "", ""
}
