package scheduler

import (
	"math"
	"sort"

	"github.com/artpar/harvestplan/internal/core/domain"
)

// DefaultSweepFactor bounds reflow at DefaultSweepFactor × n sweeps.
const DefaultSweepFactor = 2

// =============================================================================
// Reflow Result
// =============================================================================

// Slot is the resolved position of a retained task.
type Slot struct {
	TaskID   string  `json:"task_id"`
	Start    float64 `json:"start_hour"`
	Duration float64 `json:"duration"`
}

// End returns Start + Duration.
func (s Slot) End() float64 {
	return s.Start + s.Duration
}

// ReflowResult is the conflict-free layout of one team.
// len(Retained) + len(Evicted) always equals the number of input tasks.
type ReflowResult struct {
	// Retained holds every task that still fits, in timeline order
	Retained []Slot `json:"retained"`

	// Evicted holds tasks pushed past the horizon; they must be unassigned
	Evicted []string `json:"evicted"`

	// Sweeps is the number of left-to-right passes performed
	Sweeps int `json:"sweeps"`
}

// IsEvicted reports whether a task was evicted.
func (r ReflowResult) IsEvicted(taskID string) bool {
	for _, id := range r.Evicted {
		if id == taskID {
			return true
		}
	}
	return false
}

// Slot returns the retained slot of a task.
func (r ReflowResult) Slot(taskID string) (Slot, bool) {
	for _, s := range r.Retained {
		if s.TaskID == taskID {
			return s, true
		}
	}
	return Slot{}, false
}

// ReflowOption configures Reflow.
type ReflowOption func(*reflowConfig)

type reflowConfig struct {
	sweepFactor int
}

// WithSweepFactor overrides the sweep budget multiplier. Values below 1
// are ignored.
func WithSweepFactor(n int) ReflowOption {
	return func(c *reflowConfig) {
		if n >= 1 {
			c.sweepFactor = n
		}
	}
}

// =============================================================================
// Reflow Algorithm
// =============================================================================

type reflowItem struct {
	id       string
	start    float64
	duration float64
}

func (it reflowItem) end() float64 {
	return it.start + it.duration
}

// Reflow recomputes a team's layout after movedTaskID was dropped at
// desiredStart. siblings must contain every task on the destination team,
// including the moved task with its TeamID already updated. Durations are
// taken on each task's own TeamID.
//
// Algorithm:
//  1. Clamp desiredStart into [0, totalHours] and assign it to the moved task
//  2. Order tasks by start; the moved task goes ahead of every sibling that
//     has not finished by its start, so equal starts and overlapped
//     neighbours never displace it
//  3. Sweep left to right, pushing each task to its predecessor's end
//     whenever they overlap, until a sweep changes nothing or the sweep
//     budget (2 × n by default) is spent
//  4. A task whose end would pass totalHours is evicted instead of pushed
//
// Earlier tasks are favoured; later tasks absorb the push, so a crowded
// tail can evict several tasks. This is a greedy resolver, not an optimiser.
// The input is not modified.
func Reflow(siblings []domain.Task, movedTaskID string, desiredStart, totalHours float64, opts ...ReflowOption) ReflowResult {
	cfg := reflowConfig{sweepFactor: DefaultSweepFactor}
	for _, opt := range opts {
		opt(&cfg)
	}

	var result ReflowResult
	items := orderForReflow(siblings, movedTaskID, desiredStart, totalHours)

	// Anything already past the horizon cannot be pushed back into it.
	kept := items[:0]
	for _, it := range items {
		if it.end() > totalHours {
			result.Evicted = append(result.Evicted, it.id)
			continue
		}
		kept = append(kept, it)
	}
	items = kept

	budget := cfg.sweepFactor * len(siblings)
	if budget < 1 {
		budget = 1
	}
	for result.Sweeps < budget {
		result.Sweeps++
		changed := false
		for i := 1; i < len(items); {
			prevEnd := items[i-1].end()
			if items[i].start >= prevEnd {
				i++
				continue
			}
			changed = true
			if prevEnd+items[i].duration > totalHours {
				result.Evicted = append(result.Evicted, items[i].id)
				items = append(items[:i], items[i+1:]...)
				continue
			}
			items[i].start = prevEnd
			i++
		}
		if !changed {
			break
		}
	}

	result.Retained = make([]Slot, 0, len(items))
	for _, it := range items {
		result.Retained = append(result.Retained, Slot{TaskID: it.id, Start: it.start, Duration: it.duration})
	}
	return result
}

// orderForReflow builds the working list in sweep order.
func orderForReflow(siblings []domain.Task, movedTaskID string, desiredStart, totalHours float64) []reflowItem {
	others := make([]reflowItem, 0, len(siblings))
	var moved *reflowItem
	for _, t := range siblings {
		it := reflowItem{
			id:       t.ID,
			start:    math.Max(0, t.StartHour),
			duration: t.EffectiveDuration(t.TeamID),
		}
		if t.ID == movedTaskID && moved == nil {
			it.start = math.Min(math.Max(desiredStart, 0), totalHours)
			moved = &it
			continue
		}
		others = append(others, it)
	}

	sort.SliceStable(others, func(i, j int) bool {
		return others[i].start < others[j].start
	})
	if moved == nil {
		return others
	}

	pos := len(others)
	for i, it := range others {
		if it.end() > moved.start {
			pos = i
			break
		}
	}
	items := make([]reflowItem, 0, len(siblings))
	items = append(items, others[:pos]...)
	items = append(items, *moved)
	items = append(items, others[pos:]...)
	return items
}

// ApplyReflow returns a new task slice with retained tasks moved to their
// resolved starts and evicted tasks unassigned. Tasks not mentioned in the
// result are copied unchanged.
func ApplyReflow(tasks []domain.Task, result ReflowResult) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		switch {
		case result.IsEvicted(t.ID):
			out[i] = t.Unassigned()
		default:
			if s, ok := result.Slot(t.ID); ok {
				out[i] = t.WithPlacement(t.TeamID, s.Start)
				continue
			}
			out[i] = t.Clone()
		}
	}
	return out
}
