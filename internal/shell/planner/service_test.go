package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/harvestplan/internal/core/domain"
	corescheduler "github.com/artpar/harvestplan/internal/core/scheduler"
	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testPlan has two 40h periods, one month per period and two teams.
// T1 runs A=[0,20) and B=[20,40); C and D are unassigned.
func testPlan(t *testing.T) *domain.Plan {
	t.Helper()
	plan, err := domain.NewPlan("Service Test")
	require.NoError(t, err)

	plan.Periods = []domain.Period{{ID: "P1", LengthHours: 40}, {ID: "P2", LengthHours: 40}}
	plan.Months = []domain.Month{
		{ID: "M1", PeriodIDs: []string{"P1"}},
		{ID: "M2", PeriodIDs: []string{"P2"}},
		{ID: "BAD", PeriodIDs: []string{"P9"}},
	}
	plan.Teams = []domain.Team{
		{ID: "T1", MaxWheelingDistKm: 10, FixMovingCostWithoutTrailer: 5},
		{ID: "T2"},
	}
	plan.Tasks = []domain.Task{
		{
			ID: "A", TeamID: "T1", StartHour: 0, DefaultDuration: 20,
			Production:   map[string]float64{"spruce": 100},
			HarvestCosts: []domain.HarvestCost{{TeamID: "T1", HarvesterCost: 200}},
		},
		{ID: "B", TeamID: "T1", StartHour: 20, DefaultDuration: 20},
		{
			ID: "C", DefaultDuration: 40,
			SpecialTeams:   map[string]domain.Override{"T2": domain.Disallowed()},
			InvalidPeriods: []string{"P1"},
		},
		{ID: "D", DefaultDuration: 50, InvalidPeriods: []string{"P1"}},
	}
	plan.Demands = []domain.Demand{{
		Product: "spruce",
		Periods: []domain.DemandEntry{{PeriodID: "P1", Demand: 60, CostAboveGoal: 2, CostBelowGoal: 5}},
	}}
	plan.Distances = []domain.Distance{{FromTaskID: "A", ToTaskID: "B", Km: 4}}
	return plan
}

func setupService(t *testing.T) (*Service, store.Store, *domain.Plan) {
	t.Helper()
	s := testStore(t)
	plan := testPlan(t)
	require.NoError(t, s.CreatePlan(context.Background(), plan))
	return NewService(s, nil), s, plan
}

func taskAt(t *testing.T, s store.Store, planID, taskID string) domain.Task {
	t.Helper()
	task, err := s.GetTask(context.Background(), planID, taskID)
	require.NoError(t, err)
	return *task
}

// failingStore fails UpdateTaskPlacement after `after` successful calls
// inside a transaction.
type failingStore struct {
	store.Store
	after int
}

func (f *failingStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(&failingTx{Store: tx, remaining: f.after})
	})
}

type failingTx struct {
	store.Store
	remaining int
}

func (f *failingTx) UpdateTaskPlacement(ctx context.Context, planID string, task domain.Task) error {
	if f.remaining == 0 {
		return errors.New("disk full")
	}
	f.remaining--
	return f.Store.UpdateTaskPlacement(ctx, planID, task)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewService(t *testing.T) {
	svc := NewService(testStore(t), nil)
	assert.NotNil(t, svc.logger)
	assert.Equal(t, corescheduler.DefaultSweepFactor, svc.sweepFactor)

	svc = NewService(testStore(t), nil, WithSweepFactor(4), WithSweepFactor(0))
	assert.Equal(t, 4, svc.sweepFactor)
}

// =============================================================================
// PlaceTask Tests
// =============================================================================

func TestPlaceTask_AfterSiblings(t *testing.T) {
	svc, s, plan := setupService(t)

	outcome, err := svc.PlaceTask(context.Background(), plan.ID, "C", "T1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, outcome.Start)
	assert.Equal(t, 80.0, outcome.End)

	c := taskAt(t, s, plan.ID, "C")
	assert.Equal(t, "T1", c.TeamID)
	assert.Equal(t, 40.0, c.StartHour)
}

func TestPlaceTask_NoSlot(t *testing.T) {
	svc, s, plan := setupService(t)

	_, err := svc.PlaceTask(context.Background(), plan.ID, "D", "T2")
	assert.ErrorIs(t, err, corescheduler.ErrNoSlotAvailable)
	assert.False(t, taskAt(t, s, plan.ID, "D").IsAssigned())
}

func TestPlaceTask_Disallowed(t *testing.T) {
	svc, _, plan := setupService(t)

	_, err := svc.PlaceTask(context.Background(), plan.ID, "C", "T2")
	assert.ErrorIs(t, err, corescheduler.ErrDisallowedAssignment)
}

func TestPlaceTask_UnknownReferences(t *testing.T) {
	svc, _, plan := setupService(t)
	ctx := context.Background()

	_, err := svc.PlaceTask(ctx, plan.ID, "Z", "T1")
	assert.ErrorIs(t, err, corescheduler.ErrTaskNotFound)

	_, err = svc.PlaceTask(ctx, plan.ID, "C", "T9")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = svc.PlaceTask(ctx, plan.ID, "C", "")
	assert.ErrorIs(t, err, corescheduler.ErrTeamRequired)

	_, err = svc.PlaceTask(ctx, "plan_missing", "C", "T1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// =============================================================================
// MoveTask Tests
// =============================================================================

func TestMoveTask_PushesNeighbour(t *testing.T) {
	svc, s, plan := setupService(t)

	outcome, err := svc.MoveTask(context.Background(), plan.ID, "A", "T1", 30)
	require.NoError(t, err)
	assert.Empty(t, outcome.Evicted)

	a := taskAt(t, s, plan.ID, "A")
	b := taskAt(t, s, plan.ID, "B")
	assert.Equal(t, 30.0, a.StartHour)
	assert.Equal(t, 50.0, b.StartHour)
}

func TestMoveTask_EvictsPastHorizon(t *testing.T) {
	svc, s, plan := setupService(t)
	ctx := context.Background()

	// T1 becomes A=[0,20) B=[20,40) C=[40,80)
	_, err := svc.PlaceTask(ctx, plan.ID, "C", "T1")
	require.NoError(t, err)

	outcome, err := svc.MoveTask(ctx, plan.ID, "A", "T1", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, outcome.Evicted)

	assert.Equal(t, 30.0, taskAt(t, s, plan.ID, "A").StartHour)
	assert.Equal(t, 50.0, taskAt(t, s, plan.ID, "B").StartHour)
	assert.False(t, taskAt(t, s, plan.ID, "C").IsAssigned())
}

func TestMoveTask_AcrossTeams(t *testing.T) {
	svc, s, plan := setupService(t)

	outcome, err := svc.MoveTask(context.Background(), plan.ID, "B", "T2", 10)
	require.NoError(t, err)
	assert.Equal(t, "T2", outcome.TeamID)

	b := taskAt(t, s, plan.ID, "B")
	assert.Equal(t, "T2", b.TeamID)
	assert.Equal(t, 10.0, b.StartHour)
	assert.Equal(t, 0.0, taskAt(t, s, plan.ID, "A").StartHour)
}

func TestMoveTask_Rejections(t *testing.T) {
	svc, _, plan := setupService(t)
	ctx := context.Background()

	_, err := svc.MoveTask(ctx, plan.ID, "C", "T2", 0)
	assert.ErrorIs(t, err, corescheduler.ErrDisallowedAssignment)

	_, err = svc.MoveTask(ctx, plan.ID, "C", "T9", 0)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = svc.MoveTask(ctx, plan.ID, "C", "", 0)
	assert.ErrorIs(t, err, corescheduler.ErrTeamRequired)
}

func TestMoveTask_AtomicOnFailure(t *testing.T) {
	s := testStore(t)
	plan := testPlan(t)
	ctx := context.Background()
	require.NoError(t, s.CreatePlan(ctx, plan))

	// A moves and B is pushed: the second write fails.
	svc := NewService(&failingStore{Store: s, after: 1}, nil)

	_, err := svc.MoveTask(ctx, plan.ID, "A", "T1", 30)
	require.Error(t, err)

	assert.Equal(t, 0.0, taskAt(t, s, plan.ID, "A").StartHour)
	assert.Equal(t, 20.0, taskAt(t, s, plan.ID, "B").StartHour)
}

// =============================================================================
// UnassignTask Tests
// =============================================================================

func TestUnassignTask(t *testing.T) {
	svc, s, plan := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.UnassignTask(ctx, plan.ID, "A"))
	assert.False(t, taskAt(t, s, plan.ID, "A").IsAssigned())

	err := svc.UnassignTask(ctx, plan.ID, "A")
	assert.ErrorIs(t, err, corescheduler.ErrUnassignedTask)

	err = svc.UnassignTask(ctx, plan.ID, "Z")
	assert.ErrorIs(t, err, corescheduler.ErrTaskNotFound)
}

// =============================================================================
// Reporting Tests
// =============================================================================

func TestProductionAndDemand(t *testing.T) {
	svc, _, plan := setupService(t)
	ctx := context.Background()

	production, err := svc.Production(ctx, plan.ID, false)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, production.Get("P1", "spruce"), 1e-9)

	demand, err := svc.Demand(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, demand.Get("P1", "spruce"))

	balance, err := svc.Balance(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 40}, balance["spruce"])
}

func TestCosts(t *testing.T) {
	svc, _, plan := setupService(t)
	ctx := context.Background()

	b, err := svc.Costs(ctx, plan.ID, "")
	require.NoError(t, err)
	assert.InDelta(t, 200.0, b.Harvester, 1e-9)
	assert.InDelta(t, 20.0, b.Wheeling, 1e-9)
	assert.InDelta(t, 220.0, b.Total, 1e-9)
	// balance 40, less 60 demanded leaves -20
	assert.InDelta(t, 20.0*5, b.DemandCost, 1e-9)

	b, err = svc.Costs(ctx, plan.ID, "M2")
	require.NoError(t, err)
	assert.Zero(t, b.Harvester)

	b, err = svc.Costs(ctx, plan.ID, "BAD")
	require.NoError(t, err)
	assert.True(t, b.Window.IsZero())

	_, err = svc.Costs(ctx, plan.ID, "M9")
	assert.ErrorIs(t, err, ErrMonthNotFound)
}

func TestPeriodCosts(t *testing.T) {
	svc, _, plan := setupService(t)

	costs, err := svc.PeriodCosts(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, costs["P1"].Harvester, 1e-9)
}

func TestValidate(t *testing.T) {
	svc, _, plan := setupService(t)

	violations, err := svc.Validate(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, validation.KindMalformedMonth, violations[0].Kind)
}
