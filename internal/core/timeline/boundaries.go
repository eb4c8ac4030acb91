package timeline

import "github.com/artpar/harvestplan/internal/core/domain"

// PeriodBoundaries returns the cumulative end hour of every period,
// prefixed with a zero entry. Period i covers
// [b[i].Total, b[i+1].Total) in the returned slice.
func PeriodBoundaries(periods []domain.Period) []domain.Boundary {
	b := make([]domain.Boundary, 0, len(periods)+1)
	b = append(b, domain.Boundary{})
	total := 0.0
	for _, p := range periods {
		total += p.LengthHours
		b = append(b, domain.Boundary{PeriodID: p.ID, Total: total})
	}
	return b
}

// TotalHours returns the horizon length.
func TotalHours(periods []domain.Period) float64 {
	total := 0.0
	for _, p := range periods {
		total += p.LengthHours
	}
	return total
}

// Horizon returns [0, TotalHours).
func Horizon(boundaries []domain.Boundary) Window {
	if len(boundaries) == 0 {
		return Window{}
	}
	return Window{Start: 0, End: boundaries[len(boundaries)-1].Total}
}

// boundaryIndex returns the index of periodID in boundaries, skipping the
// leading zero entry. Returns 0 when absent.
func boundaryIndex(boundaries []domain.Boundary, periodID string) int {
	if periodID == "" {
		return 0
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i].PeriodID == periodID {
			return i
		}
	}
	return 0
}

// PeriodWindow returns the [start, end) window of a period.
func PeriodWindow(periodID string, boundaries []domain.Boundary) (Window, bool) {
	i := boundaryIndex(boundaries, periodID)
	if i == 0 {
		return Window{}, false
	}
	return Window{Start: boundaries[i-1].Total, End: boundaries[i].Total}, true
}

// PeriodWindows returns the window of every period in horizon order.
func PeriodWindows(boundaries []domain.Boundary) []Window {
	if len(boundaries) < 2 {
		return nil
	}
	w := make([]Window, 0, len(boundaries)-1)
	for i := 1; i < len(boundaries); i++ {
		w = append(w, Window{Start: boundaries[i-1].Total, End: boundaries[i].Total})
	}
	return w
}

// MonthWindow returns the window spanning from the start of the month's
// first period to the end of its last. It returns a zero window and false
// when the month is empty or either end references an unknown period.
func MonthWindow(month domain.Month, boundaries []domain.Boundary) (Window, bool) {
	if len(month.PeriodIDs) == 0 {
		return Window{}, false
	}
	first := boundaryIndex(boundaries, month.PeriodIDs[0])
	last := boundaryIndex(boundaries, month.PeriodIDs[len(month.PeriodIDs)-1])
	if first == 0 || last == 0 || last < first {
		return Window{}, false
	}
	return Window{Start: boundaries[first-1].Total, End: boundaries[last].Total}, true
}

// MonthPeriods returns the periods a month covers, in horizon order.
// Unknown ids are skipped.
func MonthPeriods(month domain.Month, periods []domain.Period) []domain.Period {
	want := make(map[string]bool, len(month.PeriodIDs))
	for _, id := range month.PeriodIDs {
		want[id] = true
	}
	var result []domain.Period
	for _, p := range periods {
		if want[p.ID] {
			result = append(result, p)
		}
	}
	return result
}
