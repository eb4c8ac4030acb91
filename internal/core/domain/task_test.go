package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Test Helpers
// =============================================================================

func makeTask(id string, duration, setup float64) Task {
	return Task{
		ID:              id,
		DefaultDuration: duration,
		DefaultSetup:    setup,
	}
}

// =============================================================================
// Duration Resolver Tests
// =============================================================================

func TestEffectiveDuration_Default(t *testing.T) {
	task := makeTask("A", 40, 0)
	assert.Equal(t, 40.0, task.EffectiveDuration("T1"))
}

func TestEffectiveDuration_AddsSetup(t *testing.T) {
	task := makeTask("A", 40, 4)
	assert.Equal(t, 44.0, task.EffectiveDuration("T1"))
}

func TestEffectiveDuration_NegativeSetupIgnored(t *testing.T) {
	task := makeTask("A", 40, -10)
	assert.Equal(t, 40.0, task.EffectiveDuration("T1"))
}

func TestEffectiveDuration_FixedOverride(t *testing.T) {
	task := makeTask("A", 40, 2)
	task.SpecialTeams = map[string]Override{"T2": FixedDuration(25)}

	assert.Equal(t, 42.0, task.EffectiveDuration("T1"))
	assert.Equal(t, 27.0, task.EffectiveDuration("T2"))
}

func TestEffectiveDuration_DisallowedUsesDefault(t *testing.T) {
	task := makeTask("A", 40, 0)
	task.SpecialTeams = map[string]Override{"T2": Disallowed()}

	assert.Equal(t, 40.0, task.EffectiveDuration("T2"))
}

func TestEffectiveDuration_FlooredAtOneHour(t *testing.T) {
	assert.Equal(t, 1.0, makeTask("A", 0, 0).EffectiveDuration("T1"))
	assert.Equal(t, 1.0, makeTask("B", 0.25, 0.25).EffectiveDuration("T1"))

	zeroOverride := makeTask("C", 10, 0)
	zeroOverride.SpecialTeams = map[string]Override{"T1": FixedDuration(0)}
	assert.Equal(t, 1.0, zeroOverride.EffectiveDuration("T1"))
}

func TestIsDisallowed(t *testing.T) {
	task := makeTask("A", 40, 0)
	task.SpecialTeams = map[string]Override{
		"T1": FixedDuration(10),
		"T2": Disallowed(),
	}

	assert.False(t, task.IsDisallowed("T1"))
	assert.True(t, task.IsDisallowed("T2"))
	assert.False(t, task.IsDisallowed("T3"))
}

// =============================================================================
// Value Semantics Tests
// =============================================================================

func TestTask_CloneIsDeep(t *testing.T) {
	task := makeTask("A", 10, 0)
	task.Production = map[string]float64{"spruce": 100}
	task.InvalidPeriods = []string{"P1"}

	c := task.Clone()
	c.Production["spruce"] = 1
	c.InvalidPeriods[0] = "P9"

	assert.Equal(t, 100.0, task.Production["spruce"])
	assert.Equal(t, "P1", task.InvalidPeriods[0])
}

func TestTask_WithPlacementDoesNotMutate(t *testing.T) {
	task := makeTask("A", 10, 0)
	placed := task.WithPlacement("T1", 20)

	assert.False(t, task.IsAssigned())
	assert.True(t, placed.IsAssigned())
	assert.Equal(t, 20.0, placed.StartHour)
	assert.Equal(t, 30.0, placed.End())

	back := placed.Unassigned()
	assert.False(t, back.IsAssigned())
	assert.Equal(t, 0.0, back.StartHour)
}

func TestTask_Equal(t *testing.T) {
	a := makeTask("A", 10, 0)
	a.SpecialTeams = map[string]Override{"T1": Disallowed()}
	a.HarvestCosts = []HarvestCost{{TeamID: "T1", HarvesterCost: 5}}

	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.SpecialTeams["T1"] = FixedDuration(3)
	assert.False(t, a.Equal(b))

	empty := makeTask("E", 1, 0)
	withEmptyMap := empty
	withEmptyMap.Production = map[string]float64{}
	assert.True(t, empty.Equal(withEmptyMap))
}

func TestTask_CostFor(t *testing.T) {
	task := makeTask("A", 10, 0)
	task.HarvestCosts = []HarvestCost{
		{TeamID: "T1", HarvesterCost: 100, ForwarderCost: 50, TravelingCost: 5},
	}

	c, ok := task.CostFor("T1")
	assert.True(t, ok)
	assert.Equal(t, 155.0, c.Total())

	_, ok = task.CostFor("T2")
	assert.False(t, ok)
}
