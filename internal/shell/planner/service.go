// Package planner provides the planning service for task placement with I/O.
// This is part of the Imperative Shell - it loads plans, calls the pure
// scheduling and allocation core, and commits the results.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/harvestplan/internal/core/allocation"
	"github.com/artpar/harvestplan/internal/core/domain"
	corescheduler "github.com/artpar/harvestplan/internal/core/scheduler"
	"github.com/artpar/harvestplan/internal/core/timeline"
	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/artpar/harvestplan/internal/shell/store"
)

// =============================================================================
// Service Errors
// =============================================================================

var (
	// ErrTeamNotFound is returned when an operation names a team the plan
	// does not have.
	ErrTeamNotFound = errors.New("team not found")

	// ErrMonthNotFound is returned when a cost report names an unknown month.
	ErrMonthNotFound = errors.New("month not found")
)

// =============================================================================
// Planning Service
// =============================================================================

// Service provides planning operations on stored plans.
// Every mutating call runs inside a single store transaction.
type Service struct {
	store       store.Store
	sweepFactor int
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSweepFactor sets the reflow sweep budget multiplier.
func WithSweepFactor(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.sweepFactor = n
		}
	}
}

// NewService creates a new planning service.
func NewService(s store.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		store:       s,
		sweepFactor: corescheduler.DefaultSweepFactor,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// =============================================================================
// Results
// =============================================================================

// PlaceOutcome describes a committed placement.
type PlaceOutcome struct {
	TaskID         string  `json:"task_id"`
	TeamID         string  `json:"team_id"`
	Start          float64 `json:"start_hour"`
	End            float64 `json:"end_hour"`
	GapsConsidered int     `json:"gaps_considered"`
}

// MoveOutcome describes a committed move and the reflow it caused.
type MoveOutcome struct {
	TaskID   string               `json:"task_id"`
	TeamID   string               `json:"team_id"`
	Retained []corescheduler.Slot `json:"retained"`
	Evicted  []string             `json:"evicted"`
	Sweeps   int                  `json:"sweeps"`
}

// =============================================================================
// Placement Operations
// =============================================================================

// PlaceTask puts a task at the earliest feasible start on a team.
//
// The algorithm:
// 1. Load the plan inside a transaction
// 2. Refuse unknown tasks and teams
// 3. Run the pure placement search against the team's other tasks
// 4. Commit the new position
func (s *Service) PlaceTask(ctx context.Context, planID, taskID, teamID string) (*PlaceOutcome, error) {
	var outcome *PlaceOutcome

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		plan, task, err := loadTask(ctx, tx, planID, taskID)
		if err != nil {
			return err
		}
		if _, ok := plan.Team(teamID); !ok && teamID != "" {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}

		result, err := corescheduler.Place(corescheduler.PlaceRequest{
			Task:     task,
			TeamID:   teamID,
			Siblings: plan.TasksOnTeam(teamID),
			Periods:  plan.Periods,
		})
		if err != nil {
			s.logger.Debug("placement rejected",
				"plan_id", planID,
				"task_id", taskID,
				"team_id", teamID,
				"gaps_considered", result.GapsConsidered,
				"rejected_gaps", result.RejectedGaps,
			)
			return err
		}

		if err := tx.UpdateTaskPlacement(ctx, planID, result.Task(task)); err != nil {
			return fmt.Errorf("failed to save placement: %w", err)
		}

		outcome = &PlaceOutcome{
			TaskID:         taskID,
			TeamID:         teamID,
			Start:          result.Start,
			End:            result.End(),
			GapsConsidered: result.GapsConsidered,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task placed", "plan_id", planID, "task_id", taskID, "team_id", teamID, "start_hour", outcome.Start)
	return outcome, nil
}

// MoveTask drops a task on a team at startHour and reflows that team.
// Tasks pushed past the horizon are unassigned. Either every position
// change is committed or none is.
func (s *Service) MoveTask(ctx context.Context, planID, taskID, teamID string, startHour float64) (*MoveOutcome, error) {
	var outcome *MoveOutcome

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		plan, task, err := loadTask(ctx, tx, planID, taskID)
		if err != nil {
			return err
		}
		if teamID == "" {
			return corescheduler.ErrTeamRequired
		}
		if _, ok := plan.Team(teamID); !ok {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		if task.IsDisallowed(teamID) {
			return corescheduler.ErrDisallowedAssignment
		}

		moved := task.WithPlacement(teamID, startHour)
		working := replaceTask(plan.Tasks, moved)
		result := corescheduler.Reflow(
			domain.TasksOnTeam(working, teamID),
			taskID,
			startHour,
			plan.TotalHours(),
			corescheduler.WithSweepFactor(s.sweepFactor),
		)
		updated := corescheduler.ApplyReflow(working, result)

		if err := commitChanges(ctx, tx, planID, plan.Tasks, updated); err != nil {
			return err
		}

		outcome = &MoveOutcome{
			TaskID:   taskID,
			TeamID:   teamID,
			Retained: result.Retained,
			Evicted:  result.Evicted,
			Sweeps:   result.Sweeps,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("move failed", "plan_id", planID, "task_id", taskID, "team_id", teamID, "error", err)
		return nil, err
	}

	if len(outcome.Evicted) > 0 {
		s.logger.Info("tasks evicted by reflow",
			"plan_id", planID,
			"task_id", taskID,
			"team_id", teamID,
			"evicted", outcome.Evicted,
		)
	}
	return outcome, nil
}

// UnassignTask removes a task from its team.
func (s *Service) UnassignTask(ctx context.Context, planID, taskID string) error {
	return s.store.WithTx(ctx, func(tx store.Store) error {
		task, err := tx.GetTask(ctx, planID, taskID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", corescheduler.ErrTaskNotFound, taskID)
			}
			return err
		}
		if !task.IsAssigned() {
			return corescheduler.ErrUnassignedTask
		}
		return tx.UpdateTaskPlacement(ctx, planID, task.Unassigned())
	})
}

// =============================================================================
// Reporting Operations
// =============================================================================

// Production returns production per period. When grouped is true products
// are folded into the plan's product groups.
func (s *Service) Production(ctx context.Context, planID string, grouped bool) (allocation.Table, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	var groups map[string]string
	if grouped {
		groups = plan.ProductGroups
	}
	return allocation.ProductionByPeriod(plan.Tasks, timeline.PeriodBoundaries(plan.Periods), groups, nil), nil
}

// Demand returns demand per period.
func (s *Service) Demand(ctx context.Context, planID string) (allocation.Table, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return allocation.DemandByPeriod(plan.Demands), nil
}

// Balance returns the running inventory balance of every demanded product.
func (s *Service) Balance(ctx context.Context, planID string) (map[string][]float64, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	production := allocation.ProductionByPeriod(plan.Tasks, timeline.PeriodBoundaries(plan.Periods), plan.ProductGroups, nil)
	return allocation.InventoryBalance(production, plan.Demands, plan.Periods), nil
}

// Costs returns the cost breakdown of a plan, scoped to a month when
// monthID is not empty.
func (s *Service) Costs(ctx context.Context, planID, monthID string) (*allocation.Breakdown, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	in := allocation.CostInput{
		Tasks:         plan.Tasks,
		Teams:         plan.Teams,
		Demands:       plan.Demands,
		Periods:       plan.Periods,
		Distances:     domain.NewDistanceMatrix(plan.Distances),
		ProductGroups: plan.ProductGroups,
	}

	if monthID != "" {
		month, ok := plan.Month(monthID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMonthNotFound, monthID)
		}
		if _, ok := timeline.MonthWindow(month, timeline.PeriodBoundaries(plan.Periods)); !ok {
			s.logger.Warn("month references unknown periods",
				"plan_id", planID,
				"month_id", monthID,
				"periods", month.PeriodIDs,
			)
		}
		in.Month = &month
	}

	b := allocation.CostBreakdown(in)
	return &b, nil
}

// PeriodCosts returns the prorated harvesting costs per period.
func (s *Service) PeriodCosts(ctx context.Context, planID string) (map[string]allocation.Components, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return allocation.CostsByPeriod(plan.Tasks, timeline.PeriodBoundaries(plan.Periods)), nil
}

// Validate returns every plan and schedule violation.
func (s *Service) Validate(ctx context.Context, planID string) ([]validation.Violation, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	violations := validation.ValidatePlan(plan)
	violations = append(violations, validation.ValidateSchedule(plan)...)
	if violations == nil {
		violations = []validation.Violation{}
	}
	return violations, nil
}

// =============================================================================
// Helpers
// =============================================================================

func loadTask(ctx context.Context, tx store.Store, planID, taskID string) (*domain.Plan, domain.Task, error) {
	plan, err := tx.GetPlan(ctx, planID)
	if err != nil {
		return nil, domain.Task{}, err
	}
	task, ok := plan.Task(taskID)
	if !ok {
		return nil, domain.Task{}, fmt.Errorf("%w: %s", corescheduler.ErrTaskNotFound, taskID)
	}
	return plan, task, nil
}

// replaceTask returns a copy of tasks with the task of the same id swapped.
func replaceTask(tasks []domain.Task, t domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i := range tasks {
		if tasks[i].ID == t.ID {
			out[i] = t
			continue
		}
		out[i] = tasks[i]
	}
	return out
}

// commitChanges writes every task whose placement differs from before.
func commitChanges(ctx context.Context, tx store.Store, planID string, before, after []domain.Task) error {
	for i := range after {
		if before[i].TeamID == after[i].TeamID && before[i].StartHour == after[i].StartHour {
			continue
		}
		if err := tx.UpdateTaskPlacement(ctx, planID, after[i]); err != nil {
			return fmt.Errorf("failed to save task %s: %w", after[i].ID, err)
		}
	}
	return nil
}
