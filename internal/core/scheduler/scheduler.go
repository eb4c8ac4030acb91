// Package scheduler provides the pure placement and reflow algorithms that
// keep every team's timeline free of overlaps.
// This is part of the Functional Core - all functions are pure with no I/O.
package scheduler

import (
	"errors"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/timeline"
)

// =============================================================================
// Scheduler Errors
// =============================================================================

var (
	// ErrNoSlotAvailable is returned when no gap on the team fits the task.
	// The task stays unassigned; this is not a defect.
	ErrNoSlotAvailable = errors.New("no slot available for this task")

	// ErrDisallowedAssignment is returned when the task's override forbids
	// the team. Callers must check IsDisallowed before searching.
	ErrDisallowedAssignment = errors.New("task is not allowed on this team")

	// ErrTeamRequired is returned when a placement names no team.
	ErrTeamRequired = errors.New("team is required for placement")

	// ErrTaskNotFound is returned when an operation names an unknown task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnassignedTask is returned when an operation needs a placed task.
	ErrUnassignedTask = errors.New("task is not assigned to a team")
)

// Gap rejection reasons reported in PlaceResult.RejectedGaps.
const (
	RejectTooShort      = "too_short"
	RejectInvalidPeriod = "invalid_period"
)

// =============================================================================
// Placement Request
// =============================================================================

// PlaceRequest contains everything needed to place one task on one team.
type PlaceRequest struct {
	// Task is the task being placed. Its current TeamID is ignored.
	Task domain.Task

	// TeamID is the destination team.
	TeamID string

	// Siblings are the tasks already on the team. The task itself is
	// skipped if present.
	Siblings []domain.Task

	// Periods define the horizon and the invalid-period windows.
	Periods []domain.Period
}

// =============================================================================
// Placement Result
// =============================================================================

// PlaceResult describes a successful or failed placement search.
type PlaceResult struct {
	TaskID string
	TeamID string

	// Start is the earliest feasible start hour; zero when no slot exists
	Start float64

	// Duration is the task's effective duration on the team
	Duration float64

	// GapsConsidered is the number of free gaps scanned
	GapsConsidered int

	// RejectedGaps tracks why gaps were skipped
	RejectedGaps map[string]int
}

// End returns Start + Duration.
func (r *PlaceResult) End() float64 {
	return r.Start + r.Duration
}

// Task returns a copy of the task placed at the result's position.
func (r *PlaceResult) Task(t domain.Task) domain.Task {
	return t.WithPlacement(r.TeamID, r.Start)
}

// =============================================================================
// Placement Algorithm
// =============================================================================

// Place finds the earliest start for a task on a team.
//
// Algorithm:
// 1. Refuse disallowed teams with ErrDisallowedAssignment
// 2. Build the free gaps between the siblings' occupied intervals
// 3. Skip gaps shorter than the task's effective duration
// 4. Inside each remaining gap, step past invalid-period windows
// 5. Return the first start that fits, or ErrNoSlotAvailable
func Place(req PlaceRequest) (*PlaceResult, error) {
	result := &PlaceResult{
		TaskID:       req.Task.ID,
		TeamID:       req.TeamID,
		Duration:     req.Task.EffectiveDuration(req.TeamID),
		RejectedGaps: make(map[string]int),
	}

	if req.TeamID == "" {
		return result, ErrTeamRequired
	}
	if req.Task.IsDisallowed(req.TeamID) {
		return result, ErrDisallowedAssignment
	}

	boundaries := timeline.PeriodBoundaries(req.Periods)
	start, err := scanGaps(req.Task, req.TeamID, req.Siblings, timeline.Horizon(boundaries).End, boundaries, result)
	if err != nil {
		return result, err
	}
	result.Start = start
	return result, nil
}

// FindEarliestStart returns the smallest hour h such that
// [h, h+EffectiveDuration) overlaps no sibling and none of the task's
// invalid periods, and ends no later than totalHours.
//
// The caller must already have checked task.IsDisallowed(teamID); this
// function does not.
func FindEarliestStart(task domain.Task, teamID string, siblings []domain.Task, totalHours float64, periods []domain.Period) (float64, error) {
	stats := &PlaceResult{RejectedGaps: make(map[string]int)}
	return scanGaps(task, teamID, siblings, totalHours, timeline.PeriodBoundaries(periods), stats)
}
