package validation

import (
	"fmt"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/scheduler"
	"github.com/artpar/harvestplan/internal/core/timeline"
)

// =============================================================================
// Schedule Validation
// =============================================================================

// ValidateSchedule checks every assigned task against the placement rules:
// the team must exist and be allowed, the occupied interval must lie inside
// the horizon, avoid the task's banned periods, and not overlap any other
// task on the same team.
func ValidateSchedule(plan *domain.Plan) []Violation {
	var violations []Violation
	boundaries := timeline.PeriodBoundaries(plan.Periods)
	total := timeline.TotalHours(plan.Periods)

	for _, task := range plan.Tasks {
		if !task.IsAssigned() {
			continue
		}
		if _, ok := plan.Team(task.TeamID); !ok {
			violations = append(violations, Violation{
				Kind:    KindUnknownTeam,
				TaskID:  task.ID,
				Message: fmt.Sprintf("task %s is assigned to unknown team %s", task.ID, task.TeamID),
			})
		}
		if task.IsDisallowed(task.TeamID) {
			violations = append(violations, Violation{
				Kind:    KindDisallowedTeam,
				TaskID:  task.ID,
				Message: fmt.Sprintf("task %s may not run on team %s", task.ID, task.TeamID),
			})
		}

		start, end := task.OccupiedInterval()
		if start < 0 || end > total {
			violations = append(violations, Violation{
				Kind:    KindOutsideHorizon,
				TaskID:  task.ID,
				Message: fmt.Sprintf("task %s occupies [%g, %g) outside [0, %g)", task.ID, start, end, total),
			})
		}
		if scheduler.OverlapsInvalidPeriod(task, start, end-start, boundaries) {
			violations = append(violations, Violation{
				Kind:    KindInvalidPeriod,
				TaskID:  task.ID,
				Message: fmt.Sprintf("task %s overlaps a banned period", task.ID),
			})
		}
	}

	for _, team := range teamIDs(plan.Tasks) {
		onTeam := domain.TasksOnTeam(plan.Tasks, team)
		for i := 1; i < len(onTeam); i++ {
			// sorted by start, so any overlap shows up with the latest-ending predecessor
			prev := latestEnding(onTeam[:i])
			cur := onTeam[i]
			if cur.StartHour < prev.End() {
				violations = append(violations, Violation{
					Kind:    KindOverlap,
					TaskID:  prev.ID,
					OtherID: cur.ID,
					Message: fmt.Sprintf("tasks %s and %s overlap on team %s", prev.ID, cur.ID, team),
				})
			}
		}
	}
	return violations
}

func latestEnding(tasks []domain.Task) domain.Task {
	best := tasks[0]
	for _, t := range tasks[1:] {
		if t.End() > best.End() {
			best = t
		}
	}
	return best
}

// teamIDs returns the distinct assigned team ids in first-seen order.
func teamIDs(tasks []domain.Task) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.IsAssigned() && !seen[t.TeamID] {
			seen[t.TeamID] = true
			ids = append(ids, t.TeamID)
		}
	}
	return ids
}
