// Package domain contains the core domain types of a harvest plan.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Plan Errors
// =============================================================================

var (
	ErrPlanNameRequired = errors.New("plan name is required")
	ErrPlanNameTooLong  = errors.New("plan name must be at most 100 characters")
)

// =============================================================================
// Plan
// =============================================================================

// Plan is the full set of collections the scheduling core works on.
// The core never stores a Plan; the shell loads one per request.
type Plan struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Periods       []Period          `json:"periods"`
	Months        []Month           `json:"months"`
	Teams         []Team            `json:"teams"`
	Tasks         []Task            `json:"tasks"`
	Demands       []Demand          `json:"demands"`
	Distances     []Distance        `json:"distances"`
	ProductGroups map[string]string `json:"product_groups,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// GeneratePlanID returns a new plan reference ID.
func GeneratePlanID() string {
	return "plan_" + uuid.New().String()[:8]
}

// NewPlan creates an empty plan with a generated ID.
func NewPlan(name string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlanNameRequired
	}
	if len(name) > 100 {
		return nil, ErrPlanNameTooLong
	}
	now := time.Now()
	return &Plan{
		ID:        GeneratePlanID(),
		Name:      name,
		Slug:      Slugify(name),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TotalHours returns the horizon length.
func (p *Plan) TotalHours() float64 {
	total := 0.0
	for _, period := range p.Periods {
		total += period.LengthHours
	}
	return total
}

// Task returns the task with the given ID.
func (p *Plan) Task(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Team returns the team with the given ID.
func (p *Plan) Team(id string) (Team, bool) {
	for _, t := range p.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Month returns the month with the given ID.
func (p *Plan) Month(id string) (Month, bool) {
	for _, m := range p.Months {
		if m.ID == id {
			return m, true
		}
	}
	return Month{}, false
}

// TasksOnTeam returns the team's tasks sorted by start hour.
func (p *Plan) TasksOnTeam(teamID string) []Task {
	return TasksOnTeam(p.Tasks, teamID)
}

// TasksOnTeam filters tasks assigned to teamID and sorts them by start
// hour. Ties keep their input order.
func TasksOnTeam(tasks []Task, teamID string) []Task {
	var result []Task
	for _, t := range tasks {
		if teamID != "" && t.TeamID == teamID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartHour < result[j].StartHour
	})
	return result
}

// ReplaceTasks returns a copy of the plan's task slice with the given
// tasks substituted by ID. Tasks not present in the plan are ignored.
func (p *Plan) ReplaceTasks(updated []Task) []Task {
	byID := make(map[string]Task, len(updated))
	for _, t := range updated {
		byID[t.ID] = t
	}
	result := make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		if u, ok := byID[t.ID]; ok {
			result[i] = u.Clone()
			continue
		}
		result[i] = t.Clone()
	}
	return result
}
