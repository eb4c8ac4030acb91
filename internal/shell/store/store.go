package store

import (
	"context"

	"github.com/artpar/harvestplan/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for harvest plans.
type Store interface {
	// Plan operations. CreatePlan and GetPlan handle the whole aggregate;
	// ListPlans returns headers only (no periods, teams or tasks).
	CreatePlan(ctx context.Context, plan *domain.Plan) error
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, plan *domain.Plan) error
	ReplacePlan(ctx context.Context, plan *domain.Plan) error
	DeletePlan(ctx context.Context, id string) error
	ListPlans(ctx context.Context, opts ListOptions) ([]domain.Plan, error)

	// Team operations
	GetTeam(ctx context.Context, planID, teamID string) (*domain.Team, error)
	ListTeams(ctx context.Context, planID string) ([]domain.Team, error)

	// Task operations
	GetTask(ctx context.Context, planID, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, planID string, opts ListOptions) ([]domain.Task, error)
	ListTasksByTeam(ctx context.Context, planID, teamID string) ([]domain.Task, error)
	UpdateTaskPlacement(ctx context.Context, planID string, task domain.Task) error

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
