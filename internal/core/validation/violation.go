package validation

import "fmt"

// Kind classifies a Violation.
type Kind string

const (
	KindOverlap           Kind = "overlap"
	KindInvalidPeriod     Kind = "invalid_period"
	KindOutsideHorizon    Kind = "outside_horizon"
	KindDisallowedTeam    Kind = "disallowed_team"
	KindUnknownTeam       Kind = "unknown_team"
	KindDuplicateID       Kind = "duplicate_id"
	KindBadPeriodLength   Kind = "bad_period_length"
	KindMalformedMonth    Kind = "malformed_month"
	KindUnknownPeriod     Kind = "unknown_period"
	KindDuplicateDemand   Kind = "duplicate_demand"
	KindNegativeDuration  Kind = "negative_duration"
	KindUnknownCostTarget Kind = "unknown_cost_team"
)

// Violation is one broken rule. TaskID and OtherID are set when the rule
// concerns tasks; for plan-level rules TaskID holds the offending id.
type Violation struct {
	Kind    Kind   `json:"kind"`
	TaskID  string `json:"task_id,omitempty"`
	OtherID string `json:"other_id,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// HasKind reports whether any violation has the given kind.
func HasKind(violations []Violation, kind Kind) bool {
	for _, v := range violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}
