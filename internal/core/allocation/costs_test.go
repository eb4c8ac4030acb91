package allocation

import (
	"testing"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func withCost(task domain.Task, harvester, forwarder, traveling float64) domain.Task {
	task.HarvestCosts = append(task.HarvestCosts, domain.HarvestCost{
		TeamID:        task.TeamID,
		HarvesterCost: harvester,
		ForwarderCost: forwarder,
		TravelingCost: traveling,
	})
	return task
}

func makeTeam(id string) domain.Team {
	return domain.Team{
		ID:                          id,
		MaxWheelingDistKm:           10,
		FixMovingCostWithoutTrailer: 5,
		FixMovingCostWithTrailer:    200,
		TrailerAverageSpeed:         50,
		TrailerCost:                 100,
	}
}

// =============================================================================
// CostsByPeriod Tests
// =============================================================================

func TestCostsByPeriod_ProratesHarvesterCost(t *testing.T) {
	boundaries := timeline.PeriodBoundaries(makePeriods(40, 40))
	tasks := []domain.Task{withCost(makePlaced("A", "T1", 30, 40), 400, 0, 0)}

	costs := CostsByPeriod(tasks, boundaries)

	require.Len(t, costs, 2)
	assert.InDelta(t, 100.0, costs["P1"].Harvester, 1e-9)
	assert.InDelta(t, 300.0, costs["P2"].Harvester, 1e-9)
	assert.InDelta(t, 400.0, costs["P1"].Total()+costs["P2"].Total(), 1e-9)
}

func TestCostsByPeriod_IgnoresOtherTeamsCost(t *testing.T) {
	boundaries := timeline.PeriodBoundaries(makePeriods(40))
	task := makePlaced("A", "T1", 0, 10)
	task.HarvestCosts = []domain.HarvestCost{{TeamID: "T2", HarvesterCost: 50}}

	assert.Empty(t, CostsByPeriod([]domain.Task{task}, boundaries))
}

// =============================================================================
// MoveCost Tests
// =============================================================================

func TestMoveCost(t *testing.T) {
	team := makeTeam("T1")

	mode, cost := MoveCost(team, 8)
	assert.Equal(t, MovementWheeling, mode)
	assert.Equal(t, 40.0, cost)

	mode, cost = MoveCost(team, 10)
	assert.Equal(t, MovementWheeling, mode)
	assert.Equal(t, 50.0, cost)

	mode, cost = MoveCost(team, 25)
	assert.Equal(t, MovementTrailer, mode)
	assert.Equal(t, 200.0+25.0/50.0*100.0, cost)
}

func TestMoveCost_ZeroTrailerSpeed(t *testing.T) {
	team := makeTeam("T1")
	team.TrailerAverageSpeed = 0

	mode, cost := MoveCost(team, 25)
	assert.Equal(t, MovementTrailer, mode)
	assert.Equal(t, 200.0, cost)
}

func TestTeamMovements_ConsecutiveByStart(t *testing.T) {
	tasks := []domain.Task{
		makePlaced("C", "T1", 50, 10),
		makePlaced("A", "T1", 0, 10),
		makePlaced("B", "T1", 20, 10),
		makePlaced("X", "T2", 5, 10),
	}
	distances := domain.NewDistanceMatrix([]domain.Distance{
		{FromTaskID: "A", ToTaskID: "B", Km: 4},
		{FromTaskID: "B", ToTaskID: "C", Km: 30},
	})

	movements := TeamMovements(makeTeam("T1"), tasks, distances)

	require.Len(t, movements, 2)
	assert.Equal(t, Movement{TeamID: "T1", FromTaskID: "A", ToTaskID: "B", At: 10, Km: 4, Mode: MovementWheeling, Cost: 20}, movements[0])
	assert.Equal(t, "B", movements[1].FromTaskID)
	assert.Equal(t, "C", movements[1].ToTaskID)
	assert.Equal(t, 30.0, movements[1].At)
	assert.Equal(t, MovementTrailer, movements[1].Mode)
}

func TestTeamMovements_MissingDistanceIsZero(t *testing.T) {
	tasks := []domain.Task{makePlaced("A", "T1", 0, 10), makePlaced("B", "T1", 10, 10)}

	movements := TeamMovements(makeTeam("T1"), tasks, domain.NewDistanceMatrix(nil))

	require.Len(t, movements, 1)
	assert.Zero(t, movements[0].Km)
	assert.Zero(t, movements[0].Cost)
}

// =============================================================================
// Demand Cost Tests
// =============================================================================

func spruceDemand(demand, above, below float64) domain.Demand {
	return domain.Demand{
		Product:   "spruce",
		ValueProd: 2,
		Periods: []domain.DemandEntry{
			{PeriodID: "P1", Demand: demand, CostAboveGoal: above, CostBelowGoal: below},
			{PeriodID: "P2", Demand: demand, CostAboveGoal: above, CostBelowGoal: below},
		},
	}
}

func TestDemandCost(t *testing.T) {
	periods := makePeriods(40, 40)

	tests := []struct {
		name       string
		production float64
		want       float64
	}{
		// balance 300, remainder 300 - 200
		{"remainder above goal", 500, 100 * 3},
		// balance 60, remainder 60 - 200
		{"surplus balance still below goal", 260, 140 * 7},
		// balance -50, remainder -50 - 200
		{"shortfall charged below goal", 150, 250 * 7},
		// balance 0, remainder -200
		{"exact demand leaves remainder below goal", 200, 200 * 7},
		// balance 200, remainder 0
		{"remainder zero is free", 400, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			production := Table{}
			production.Add("P1", "spruce", tt.production/2)
			production.Add("P2", "spruce", tt.production/2)

			got := DemandCost(production, []domain.Demand{spruceDemand(100, 3, 7)}, periods)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDemandCost_RemainderSubtractsScopedDemand(t *testing.T) {
	production := Table{}
	production.Add("P1", "spruce", 130)
	production.Add("P2", "spruce", 130)

	// balance 60 over P1..P2, less 200 demanded leaves -140
	got := DemandCost(production, []domain.Demand{spruceDemand(100, 3, 7)}, makePeriods(40, 40))
	assert.InDelta(t, 980.0, got, 1e-9)

	// P1 alone: balance 30, less 100 demanded leaves -70
	got = DemandCost(production, []domain.Demand{spruceDemand(100, 3, 7)}, makePeriods(40, 40)[:1])
	assert.InDelta(t, 490.0, got, 1e-9)
}

func TestDemandCost_NoScopedEntries(t *testing.T) {
	got := DemandCost(Table{}, []domain.Demand{spruceDemand(100, 3, 7)}, makePeriods(40, 40, 40)[2:])
	assert.Zero(t, got)
}

func TestIndustryValue(t *testing.T) {
	production := Table{}
	production.Add("P1", "spruce", 10)
	production.Add("P2", "spruce", 15)
	production.Add("P2", "pine", 99)

	got := IndustryValue(production, []domain.Demand{spruceDemand(0, 0, 0)}, makePeriods(40, 40))
	assert.Equal(t, 50.0, got)
}

// =============================================================================
// CostBreakdown Tests
// =============================================================================

func makeCostInput() CostInput {
	a := withProduction(withCost(makePlaced("A", "T1", 30, 40), 400, 40, 4), map[string]float64{"spruce": 200})
	b := withProduction(withCost(makePlaced("B", "T1", 70, 10), 100, 0, 0), map[string]float64{"spruce": 20})
	c := withCost(makePlaced("C", "T2", 0, 20), 80, 0, 0)

	return CostInput{
		Tasks:   []domain.Task{a, b, c, {ID: "U", DefaultDuration: 10}},
		Teams:   []domain.Team{makeTeam("T1"), makeTeam("T2")},
		Demands: []domain.Demand{spruceDemand(100, 3, 7)},
		Periods: makePeriods(40, 40),
		Distances: domain.NewDistanceMatrix([]domain.Distance{
			{FromTaskID: "A", ToTaskID: "B", Km: 6},
		}),
	}
}

func TestCostBreakdown_WholeHorizon(t *testing.T) {
	b := CostBreakdown(makeCostInput())

	assert.Equal(t, timeline.Window{Start: 0, End: 80}, b.Window)
	assert.InDelta(t, 580.0, b.Harvester, 1e-9)
	assert.InDelta(t, 40.0, b.Forwarder, 1e-9)
	assert.InDelta(t, 4.0, b.Traveling, 1e-9)
	assert.InDelta(t, 30.0, b.Wheeling, 1e-9)
	assert.Zero(t, b.Trailer)
	assert.InDelta(t, 580.0+40+4+30, b.Total, 1e-9)

	// balance 220 - 200 = 20, remainder 20 - 200 = -180
	assert.InDelta(t, 180.0*7, b.DemandCost, 1e-9)
	assert.InDelta(t, 220.0*2, b.IndustryValue, 1e-9)

	require.Contains(t, b.ByTeam, "T1")
	assert.InDelta(t, 500.0+40+4+30, b.ByTeam["T1"].Total(), 1e-9)
	assert.InDelta(t, 80.0, b.ByTeam["T2"].Harvester, 1e-9)
	require.Len(t, b.Movements, 1)
	assert.Equal(t, 70.0, b.Movements[0].At)
}

func TestCostBreakdown_MonthScope(t *testing.T) {
	in := makeCostInput()
	in.Month = &domain.Month{ID: "M1", PeriodIDs: []string{"P1"}}

	b := CostBreakdown(in)

	assert.Equal(t, timeline.Window{Start: 0, End: 40}, b.Window)
	assert.InDelta(t, 100.0+80.0, b.Harvester, 1e-9)
	// the A -> B move happens at hour 70, outside the month
	assert.Zero(t, b.Wheeling)
	assert.Empty(t, b.Movements)

	// P1 balance 50 - 100 = -50, remainder -50 - 100 = -150
	assert.InDelta(t, 150.0*7, b.DemandCost, 1e-9)
	assert.InDelta(t, 50.0*2, b.IndustryValue, 1e-9)
}

func TestCostBreakdown_MalformedMonth(t *testing.T) {
	in := makeCostInput()
	in.Month = &domain.Month{ID: "M9", PeriodIDs: []string{"P7"}}

	b := CostBreakdown(in)

	assert.True(t, b.Window.IsZero())
	assert.Zero(t, b.Total)
	assert.Zero(t, b.DemandCost)
	assert.Zero(t, b.IndustryValue)
}

func TestCostBreakdown_Empty(t *testing.T) {
	b := CostBreakdown(CostInput{})
	assert.Zero(t, b.Total)
	assert.Empty(t, b.ByTeam)
	assert.Empty(t, b.Movements)
}

func TestCostBreakdown_Deterministic(t *testing.T) {
	in := makeCostInput()
	first := CostBreakdown(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, CostBreakdown(in))
	}
}
