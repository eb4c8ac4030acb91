package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Plan Tests
// =============================================================================

func TestNewPlan(t *testing.T) {
	p, err := NewPlan("  Winter Harvest ")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.ID, "plan_"))
	assert.Equal(t, "Winter Harvest", p.Name)
	assert.Equal(t, "winter-harvest", p.Slug)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestNewPlan_Validation(t *testing.T) {
	_, err := NewPlan(" ")
	assert.ErrorIs(t, err, ErrPlanNameRequired)

	_, err = NewPlan(strings.Repeat("a", 101))
	assert.ErrorIs(t, err, ErrPlanNameTooLong)
}

func TestPlan_TotalHours(t *testing.T) {
	p := &Plan{Periods: []Period{{ID: "P1", LengthHours: 40}, {ID: "P2", LengthHours: 40}}}
	assert.Equal(t, 80.0, p.TotalHours())
}

func TestTasksOnTeam_SortedAndFiltered(t *testing.T) {
	tasks := []Task{
		{ID: "C", TeamID: "T1", StartHour: 50},
		{ID: "A", TeamID: "T1", StartHour: 0},
		{ID: "X", TeamID: "T2", StartHour: 10},
		{ID: "U"},
		{ID: "B", TeamID: "T1", StartHour: 20},
	}

	got := TasksOnTeam(tasks, "T1")
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, "B", got[1].ID)
	assert.Equal(t, "C", got[2].ID)

	assert.Empty(t, TasksOnTeam(tasks, ""))
}

func TestPlan_ReplaceTasks(t *testing.T) {
	p := &Plan{Tasks: []Task{{ID: "A"}, {ID: "B"}}}

	out := p.ReplaceTasks([]Task{{ID: "B", TeamID: "T1", StartHour: 5}, {ID: "Z"}})
	require.Len(t, out, 2)
	assert.Equal(t, "T1", out[1].TeamID)
	assert.Equal(t, "", p.Tasks[1].TeamID)
}

func TestDistanceMatrix(t *testing.T) {
	m := NewDistanceMatrix([]Distance{
		{FromTaskID: "A", ToTaskID: "B", Km: 12},
	})

	km, ok := m.Lookup("A", "B")
	assert.True(t, ok)
	assert.Equal(t, 12.0, km)

	_, ok = m.Lookup("B", "A")
	assert.False(t, ok)
}
