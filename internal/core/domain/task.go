package domain

import (
	"maps"
	"math"
	"slices"
)

// MinTaskDuration is the smallest number of hours a task can occupy.
const MinTaskDuration = 1.0

// =============================================================================
// Task
// =============================================================================

// HarvestCost is the cost of running a task with one particular team.
type HarvestCost struct {
	TeamID        string  `json:"team_id"`
	HarvesterCost float64 `json:"harvester_cost"`
	ForwarderCost float64 `json:"forwarder_cost"`
	TravelingCost float64 `json:"traveling_cost"`
}

// Total returns the sum of the three cost components.
func (c HarvestCost) Total() float64 {
	return c.HarvesterCost + c.ForwarderCost + c.TravelingCost
}

// Task is an indivisible unit of work placed on a team's timeline.
// A task with an empty TeamID is unassigned and occupies no interval.
type Task struct {
	ID              string              `json:"id"`
	TeamID          string              `json:"team_id,omitempty"`
	StartHour       float64             `json:"start_hour"`
	DefaultDuration float64             `json:"default_duration"`
	DefaultSetup    float64             `json:"default_setup"`
	SpecialTeams    map[string]Override `json:"special_teams,omitempty"`
	InvalidPeriods  []string            `json:"invalid_periods,omitempty"`
	Production      map[string]float64  `json:"production,omitempty"`
	HarvestCosts    []HarvestCost       `json:"harvest_costs,omitempty"`
}

// IsAssigned reports whether the task sits on a team.
func (t Task) IsAssigned() bool {
	return t.TeamID != ""
}

// EffectiveDuration returns the hours the task occupies on the given team:
// the team's fixed override (or the default duration), plus non-negative
// setup, never less than MinTaskDuration.
func (t Task) EffectiveDuration(teamID string) float64 {
	d := t.DefaultDuration
	if o, ok := t.SpecialTeams[teamID]; ok {
		if hours, fixed := o.Duration(); fixed {
			d = hours
		}
	}
	d += math.Max(0, t.DefaultSetup)
	if d < MinTaskDuration {
		return MinTaskDuration
	}
	return d
}

// IsDisallowed reports whether the task may never run on the given team.
func (t Task) IsDisallowed(teamID string) bool {
	o, ok := t.SpecialTeams[teamID]
	return ok && o.IsDisallowed()
}

// Duration is EffectiveDuration on the currently assigned team.
func (t Task) Duration() float64 {
	return t.EffectiveDuration(t.TeamID)
}

// End returns StartHour + Duration.
func (t Task) End() float64 {
	return t.StartHour + t.Duration()
}

// OccupiedInterval returns [StartHour, End) on the assigned team.
func (t Task) OccupiedInterval() (start, end float64) {
	return t.StartHour, t.End()
}

// IsInvalidPeriod reports whether the task is banned from the given period.
func (t Task) IsInvalidPeriod(periodID string) bool {
	return slices.Contains(t.InvalidPeriods, periodID)
}

// CostFor returns the harvest cost entry for a team.
func (t Task) CostFor(teamID string) (HarvestCost, bool) {
	for _, c := range t.HarvestCosts {
		if c.TeamID == teamID {
			return c, true
		}
	}
	return HarvestCost{}, false
}

// Unassigned returns a copy of the task with no team.
func (t Task) Unassigned() Task {
	c := t.Clone()
	c.TeamID = ""
	c.StartHour = 0
	return c
}

// WithPlacement returns a copy of the task placed on teamID at start.
func (t Task) WithPlacement(teamID string, start float64) Task {
	c := t.Clone()
	c.TeamID = teamID
	c.StartHour = start
	return c
}

// Clone returns a deep copy.
func (t Task) Clone() Task {
	c := t
	c.SpecialTeams = maps.Clone(t.SpecialTeams)
	c.InvalidPeriods = slices.Clone(t.InvalidPeriods)
	c.Production = maps.Clone(t.Production)
	c.HarvestCosts = slices.Clone(t.HarvestCosts)
	return c
}

// Equal reports structural equality. Nil and empty collections are equal.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.TeamID == o.TeamID &&
		t.StartHour == o.StartHour &&
		t.DefaultDuration == o.DefaultDuration &&
		t.DefaultSetup == o.DefaultSetup &&
		maps.Equal(t.SpecialTeams, o.SpecialTeams) &&
		slices.Equal(t.InvalidPeriods, o.InvalidPeriods) &&
		maps.Equal(t.Production, o.Production) &&
		slices.Equal(t.HarvestCosts, o.HarvestCosts)
}
