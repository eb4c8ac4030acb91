package resources

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artpar/harvestplan/internal/core/domain"
	corescheduler "github.com/artpar/harvestplan/internal/core/scheduler"
	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/artpar/harvestplan/internal/shell/planner"
	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/manyminds/api2go"
)

// =============================================================================
// Task JSON:API Model
// =============================================================================

// Task wraps domain.Task to implement JSON:API interfaces.
type Task struct {
	ID              string                     `json:"-"`
	PlanID          string                     `json:"plan_id"`
	TeamID          string                     `json:"team_id,omitempty"`
	StartHour       float64                    `json:"start_hour"`
	EndHour         *float64                   `json:"end_hour,omitempty"`
	DefaultDuration float64                    `json:"default_duration"`
	DefaultSetup    float64                    `json:"default_setup"`
	SpecialTeams    map[string]domain.Override `json:"special_teams,omitempty"`
	InvalidPeriods  []string                   `json:"invalid_periods,omitempty"`
	Production      map[string]float64         `json:"production,omitempty"`
	HarvestCosts    []domain.HarvestCost       `json:"harvest_costs,omitempty"`
}

// GetID returns the task ID for JSON:API.
func (t Task) GetID() string {
	return t.ID
}

// SetID sets the task ID for JSON:API.
func (t *Task) SetID(id string) error {
	t.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (t Task) GetName() string {
	return "tasks"
}

// TaskFromDomain converts a domain.Task to a JSON:API Task.
// EndHour is only set for assigned tasks.
func TaskFromDomain(planID string, t domain.Task) Task {
	out := Task{
		ID:              t.ID,
		PlanID:          planID,
		TeamID:          t.TeamID,
		StartHour:       t.StartHour,
		DefaultDuration: t.DefaultDuration,
		DefaultSetup:    t.DefaultSetup,
		SpecialTeams:    t.SpecialTeams,
		InvalidPeriods:  t.InvalidPeriods,
		Production:      t.Production,
		HarvestCosts:    t.HarvestCosts,
	}
	if t.IsAssigned() {
		end := t.End()
		out.EndHour = &end
	}
	return out
}

// =============================================================================
// Action Requests
// =============================================================================

// PlaceRequest is the body of a place action.
type PlaceRequest struct {
	TeamID string `json:"team_id"`
}

// MoveRequest is the body of a move action.
type MoveRequest struct {
	TeamID    string   `json:"team_id"`
	StartHour *float64 `json:"start_hour"`
}

// =============================================================================
// TaskResource - Read Operations and Actions
// =============================================================================

// TaskResource implements the api2go resource interface for tasks and the
// place, move and unassign actions.
type TaskResource struct {
	Store   store.Store
	Planner *planner.Service
}

// NewTaskResource creates a new task resource handler.
func NewTaskResource(s store.Store, p *planner.Service) *TaskResource {
	return &TaskResource{Store: s, Planner: p}
}

// FindAll returns the tasks of a plan, optionally only those on one team.
// GET /api/v1/tasks?plan={plan}[&team={team}]
func (r TaskResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	planID := planParam(req)
	if planID == "" {
		return httpError(http.StatusBadRequest, "plan query parameter is required")
	}

	ctx := req.PlainRequest.Context()
	if _, err := r.Store.GetPlan(ctx, planID); err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Plan not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	meta := map[string]interface{}{"plan": planID}
	var (
		tasks []domain.Task
		err   error
	)
	// A team's sequence is returned whole, in start order.
	if team, ok := req.QueryParams["team"]; ok && len(team) > 0 && team[0] != "" {
		tasks, err = r.Store.ListTasksByTeam(ctx, planID, team[0])
		meta["team"] = team[0]
	} else {
		opts := listOptions(req)
		tasks, err = r.Store.ListTasks(ctx, planID, opts)
		meta["limit"] = opts.Limit
		meta["offset"] = opts.Offset
	}
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, TaskFromDomain(planID, t))
	}
	meta["total"] = len(result)

	return &Response{
		Code: http.StatusOK,
		Res:  result,
		Meta: meta,
	}, nil
}

// FindOne returns a single task.
// GET /api/v1/tasks/{id}?plan={plan}
func (r TaskResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	planID := planParam(req)
	if planID == "" {
		return httpError(http.StatusBadRequest, "plan query parameter is required")
	}

	task, err := r.Store.GetTask(req.PlainRequest.Context(), planID, id)
	if err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Task not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TaskFromDomain(planID, *task),
	}, nil
}

// Create is not supported; tasks arrive by scenario import.
func (r TaskResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Tasks")
}

// Update is not supported; use the place, move and unassign actions.
func (r TaskResource) Update(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Tasks")
}

// Delete is not supported.
func (r TaskResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Tasks")
}

// =============================================================================
// Custom Actions
// =============================================================================

// PlaceTask places a task at the earliest feasible start on a team.
// POST /api/v1/plans/{plan}/tasks/{id}/place
func (r TaskResource) PlaceTask(planID, id string, req *http.Request) (api2go.Responder, error) {
	var body PlaceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return httpError(http.StatusBadRequest, "Invalid request body")
	}
	if field, msg := validation.ValidatePlaceFields(body.TeamID); field != "" {
		return httpError(http.StatusBadRequest, msg)
	}

	outcome, err := r.Planner.PlaceTask(req.Context(), planID, id, body.TeamID)
	if err != nil {
		return plannerError(err)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  outcome,
	}, nil
}

// MoveTask drops a task on a team at a start hour and reflows that team.
// POST /api/v1/plans/{plan}/tasks/{id}/move
func (r TaskResource) MoveTask(planID, id string, req *http.Request) (api2go.Responder, error) {
	var body MoveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return httpError(http.StatusBadRequest, "Invalid request body")
	}
	if field, msg := validation.ValidateMoveFields(body.TeamID, body.StartHour); field != "" {
		return httpError(http.StatusBadRequest, msg)
	}

	outcome, err := r.Planner.MoveTask(req.Context(), planID, id, body.TeamID, *body.StartHour)
	if err != nil {
		return plannerError(err)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  outcome,
		Meta: map[string]interface{}{
			"evicted": len(outcome.Evicted),
		},
	}, nil
}

// UnassignTask removes a task from its team.
// POST /api/v1/plans/{plan}/tasks/{id}/unassign
func (r TaskResource) UnassignTask(planID, id string, req *http.Request) (api2go.Responder, error) {
	ctx := req.Context()
	if err := r.Planner.UnassignTask(ctx, planID, id); err != nil {
		return plannerError(err)
	}

	task, err := r.Store.GetTask(ctx, planID, id)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TaskFromDomain(planID, *task),
	}, nil
}

// plannerError maps planning errors to HTTP statuses.
func plannerError(err error) (api2go.Responder, error) {
	switch {
	case errors.Is(err, corescheduler.ErrNoSlotAvailable):
		return httpError(http.StatusConflict, err.Error())
	case errors.Is(err, corescheduler.ErrUnassignedTask):
		return httpError(http.StatusConflict, err.Error())
	case errors.Is(err, corescheduler.ErrDisallowedAssignment):
		return httpError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, corescheduler.ErrTeamRequired):
		return httpError(http.StatusBadRequest, err.Error())
	case errors.Is(err, corescheduler.ErrTaskNotFound),
		errors.Is(err, planner.ErrTeamNotFound),
		errors.Is(err, planner.ErrMonthNotFound):
		return httpError(http.StatusNotFound, err.Error())
	case isNotFound(err):
		return httpError(http.StatusNotFound, "Plan not found")
	}
	return &Response{Code: http.StatusInternalServerError}, err
}
