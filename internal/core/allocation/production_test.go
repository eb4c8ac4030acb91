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

func makePeriods(lengths ...float64) []domain.Period {
	periods := make([]domain.Period, len(lengths))
	for i, l := range lengths {
		periods[i] = domain.Period{ID: "P" + string(rune('1'+i)), LengthHours: l}
	}
	return periods
}

func makePlaced(id, teamID string, start, duration float64) domain.Task {
	return domain.Task{ID: id, TeamID: teamID, StartHour: start, DefaultDuration: duration}
}

func withProduction(task domain.Task, production map[string]float64) domain.Task {
	task.Production = production
	return task
}

// =============================================================================
// OverlapProportion Tests
// =============================================================================

func TestOverlapProportion(t *testing.T) {
	task := makePlaced("A", "T1", 30, 40)

	tests := []struct {
		name   string
		window timeline.Window
		want   float64
	}{
		{"head", timeline.Window{Start: 0, End: 40}, 0.25},
		{"tail", timeline.Window{Start: 40, End: 80}, 0.75},
		{"covers", timeline.Window{Start: 0, End: 100}, 1},
		{"inside", timeline.Window{Start: 40, End: 50}, 0.25},
		{"disjoint", timeline.Window{Start: 80, End: 100}, 0},
		{"touching", timeline.Window{Start: 70, End: 80}, 0},
		{"empty", timeline.Window{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverlapProportion(task, tt.window), 1e-12)
		})
	}
}

func TestOverlapProportion_Unassigned(t *testing.T) {
	task := domain.Task{ID: "A", StartHour: 0, DefaultDuration: 10}
	assert.Equal(t, 0.0, OverlapProportion(task, timeline.Window{Start: 0, End: 10}))
}

func TestOverlapProportion_SumsToOne(t *testing.T) {
	periods := makePeriods(7, 13, 24, 5, 31, 20)
	windows := timeline.PeriodWindows(timeline.PeriodBoundaries(periods))
	total := timeline.TotalHours(periods)

	for start := 0.0; start < total; start += 3.3 {
		for duration := 1.0; start+duration <= total; duration += 4.7 {
			task := makePlaced("A", "T1", start, duration)
			sum := 0.0
			for _, w := range windows {
				sum += OverlapProportion(task, w)
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "start=%v duration=%v", start, duration)
		}
	}
}

// =============================================================================
// ProductionByPeriod Tests
// =============================================================================

func TestProductionByPeriod(t *testing.T) {
	boundaries := timeline.PeriodBoundaries(makePeriods(40, 40))
	tasks := []domain.Task{
		withProduction(makePlaced("A", "T1", 30, 40), map[string]float64{"spruce": 400, "pine": 40}),
		withProduction(makePlaced("B", "T2", 0, 20), map[string]float64{"spruce": 100}),
		withProduction(domain.Task{ID: "U", DefaultDuration: 10}, map[string]float64{"spruce": 999}),
	}

	table := ProductionByPeriod(tasks, boundaries, nil, nil)

	assert.InDelta(t, 200.0, table.Get("P1", "spruce"), 1e-9)
	assert.InDelta(t, 300.0, table.Get("P2", "spruce"), 1e-9)
	assert.InDelta(t, 10.0, table.Get("P1", "pine"), 1e-9)
	assert.InDelta(t, 30.0, table.Get("P2", "pine"), 1e-9)
	assert.Equal(t, []string{"pine", "spruce"}, table.Products())
}

func TestProductionByPeriod_GroupMap(t *testing.T) {
	boundaries := timeline.PeriodBoundaries(makePeriods(40))
	tasks := []domain.Task{
		withProduction(makePlaced("A", "T1", 0, 20), map[string]float64{"spruce_log": 10, "pine_log": 5, "birch": 1}),
	}
	groups := map[string]string{"spruce_log": "logs", "pine_log": "logs"}

	table := ProductionByPeriod(tasks, boundaries, groups, nil)

	assert.InDelta(t, 15.0, table.Get("P1", "logs"), 1e-9)
	assert.InDelta(t, 1.0, table.Get("P1", "birch"), 1e-9)
	assert.Zero(t, table.Get("P1", "spruce_log"))
}

func TestProductionByPeriod_HorizonClamp(t *testing.T) {
	boundaries := timeline.PeriodBoundaries(makePeriods(40, 40))
	tasks := []domain.Task{
		withProduction(makePlaced("A", "T1", 20, 40), map[string]float64{"spruce": 100}),
	}

	table := ProductionByPeriod(tasks, boundaries, nil, &timeline.Window{Start: 0, End: 50})

	assert.InDelta(t, 50.0, table.Get("P1", "spruce"), 1e-9)
	assert.InDelta(t, 25.0, table.Get("P2", "spruce"), 1e-9)
}

func TestProductionByPeriod_Empty(t *testing.T) {
	table := ProductionByPeriod(nil, nil, nil, nil)
	assert.Empty(t, table)
	assert.Empty(t, table.Products())
}

// =============================================================================
// Demand Tests
// =============================================================================

func TestDemandByPeriod_NotProrated(t *testing.T) {
	demands := []domain.Demand{{
		Product: "spruce",
		Periods: []domain.DemandEntry{
			{PeriodID: "P1", Demand: 120},
			{PeriodID: "P2", Demand: 80},
		},
	}}

	table := DemandByPeriod(demands)

	assert.Equal(t, 120.0, table.Get("P1", "spruce"))
	assert.Equal(t, 80.0, table.Get("P2", "spruce"))
}

func TestInventoryBalance(t *testing.T) {
	periods := makePeriods(40, 40, 40)
	production := Table{}
	production.Add("P1", "spruce", 100)
	production.Add("P2", "spruce", 50)
	demands := []domain.Demand{{
		Product: "spruce",
		Periods: []domain.DemandEntry{
			{PeriodID: "P1", Demand: 60},
			{PeriodID: "P2", Demand: 60},
			{PeriodID: "P3", Demand: 60},
		},
	}}

	balances := InventoryBalance(production, demands, periods)

	require.Contains(t, balances, "spruce")
	assert.Equal(t, []float64{40, 30, -30}, balances["spruce"])
}
