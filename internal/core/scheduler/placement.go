package scheduler

import (
	"math"
	"sort"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/timeline"
)

// =============================================================================
// Gap Scan
// =============================================================================

// scanGaps walks the free gaps left to right and returns the first
// feasible start. Earliest-start (not best-fit) keeps results in the
// reading order of the timeline.
func scanGaps(task domain.Task, teamID string, siblings []domain.Task, totalHours float64, boundaries []domain.Boundary, stats *PlaceResult) (float64, error) {
	duration := task.EffectiveDuration(teamID)
	banned := invalidWindows(task, boundaries)

	for _, gap := range freeGaps(occupiedWindows(siblings, teamID, task.ID), totalHours) {
		stats.GapsConsidered++

		if gap.Length() < duration {
			stats.RejectedGaps[RejectTooShort]++
			continue
		}

		start, ok := fitInGap(gap, duration, banned)
		if !ok {
			stats.RejectedGaps[RejectInvalidPeriod]++
			continue
		}
		return start, nil
	}

	return 0, ErrNoSlotAvailable
}

// occupiedWindows returns the siblings' intervals on teamID sorted by start.
func occupiedWindows(siblings []domain.Task, teamID, skipID string) []timeline.Window {
	windows := make([]timeline.Window, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == skipID {
			continue
		}
		windows = append(windows, timeline.Window{
			Start: s.StartHour,
			End:   s.StartHour + s.EffectiveDuration(teamID),
		})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Start < windows[j].Start
	})
	return windows
}

// freeGaps returns [0, first.Start), the spaces between consecutive
// windows, and [last.End, totalHours). With no windows the only gap is the
// whole horizon. Zero-width gaps are dropped.
func freeGaps(occupied []timeline.Window, totalHours float64) []timeline.Window {
	var gaps []timeline.Window
	cursor := 0.0
	for _, w := range occupied {
		end := math.Min(w.Start, totalHours)
		if end > cursor {
			gaps = append(gaps, timeline.Window{Start: cursor, End: end})
		}
		cursor = math.Max(cursor, w.End)
	}
	if totalHours > cursor {
		gaps = append(gaps, timeline.Window{Start: cursor, End: totalHours})
	}
	return gaps
}

// fitInGap tries the gap's left edge first. A candidate that touches a
// banned window moves to the end of that window and is retried, so the
// first start returned is the earliest one in the gap.
func fitInGap(gap timeline.Window, duration float64, banned []timeline.Window) (float64, bool) {
	candidate := gap.Start
	for candidate+duration <= gap.End {
		blockedUntil := candidate
		for _, b := range banned {
			if b.Intersects(candidate, candidate+duration) {
				blockedUntil = math.Max(blockedUntil, b.End)
			}
		}
		if blockedUntil == candidate {
			return candidate, true
		}
		candidate = blockedUntil
	}
	return 0, false
}

// invalidWindows resolves the task's banned period ids to hour windows.
// Unknown ids are ignored.
func invalidWindows(task domain.Task, boundaries []domain.Boundary) []timeline.Window {
	windows := make([]timeline.Window, 0, len(task.InvalidPeriods))
	for _, id := range task.InvalidPeriods {
		if w, ok := timeline.PeriodWindow(id, boundaries); ok && !w.IsZero() {
			windows = append(windows, w)
		}
	}
	return windows
}

// OverlapsInvalidPeriod reports whether [start, start+duration) touches
// any period the task is banned from.
func OverlapsInvalidPeriod(task domain.Task, start, duration float64, boundaries []domain.Boundary) bool {
	for _, w := range invalidWindows(task, boundaries) {
		if w.Intersects(start, start+duration) {
			return true
		}
	}
	return false
}
