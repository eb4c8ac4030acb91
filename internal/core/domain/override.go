package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Team Override
// =============================================================================

// ErrInvalidOverride is returned when an override value is neither a number
// nor the disallow marker.
var ErrInvalidOverride = errors.New("override must be a duration in hours or \"x\"")

// DisallowMarker is the external spelling of a disallowed override.
// Parsing is case-insensitive.
const DisallowMarker = "x"

// OverrideKind tags the variant held by an Override.
type OverrideKind int

const (
	// OverrideNone is the zero value; it never appears in SpecialTeams.
	OverrideNone OverrideKind = iota
	// OverrideFixed replaces the task's default duration for one team.
	OverrideFixed
	// OverrideDisallowed forbids assigning the task to one team.
	OverrideDisallowed
)

// Override is a per-team replacement of a task's duration, or a refusal.
// Construct it with FixedDuration or Disallowed.
type Override struct {
	kind  OverrideKind
	hours float64
}

// FixedDuration returns an override that replaces the default duration.
func FixedDuration(hours float64) Override {
	return Override{kind: OverrideFixed, hours: hours}
}

// Disallowed returns an override that forbids the team.
func Disallowed() Override {
	return Override{kind: OverrideDisallowed}
}

// Kind reports which variant the override holds.
func (o Override) Kind() OverrideKind {
	return o.kind
}

// IsDisallowed reports whether the override forbids the team.
func (o Override) IsDisallowed() bool {
	return o.kind == OverrideDisallowed
}

// Duration returns the replacement duration and true for fixed overrides.
func (o Override) Duration() (float64, bool) {
	if o.kind != OverrideFixed {
		return 0, false
	}
	return o.hours, true
}

// String renders the override the same way it is parsed.
func (o Override) String() string {
	switch o.kind {
	case OverrideFixed:
		return strconv.FormatFloat(o.hours, 'f', -1, 64)
	case OverrideDisallowed:
		return DisallowMarker
	default:
		return ""
	}
}

// ParseOverride accepts a decimal number of hours or the disallow marker.
func ParseOverride(s string) (Override, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, DisallowMarker) {
		return Disallowed(), nil
	}
	hours, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Override{}, fmt.Errorf("%w: %q", ErrInvalidOverride, s)
	}
	if hours < 0 {
		return Override{}, fmt.Errorf("%w: negative duration %q", ErrInvalidOverride, s)
	}
	return FixedDuration(hours), nil
}

// MarshalJSON encodes fixed overrides as numbers and disallowed ones as "x".
func (o Override) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case OverrideFixed:
		return json.Marshal(o.hours)
	case OverrideDisallowed:
		return json.Marshal(DisallowMarker)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts either a JSON number or a string.
func (o *Override) UnmarshalJSON(data []byte) error {
	var hours float64
	if err := json.Unmarshal(data, &hours); err == nil {
		if hours < 0 {
			return fmt.Errorf("%w: negative duration %v", ErrInvalidOverride, hours)
		}
		*o = FixedDuration(hours)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOverride, string(data))
	}
	parsed, err := ParseOverride(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
