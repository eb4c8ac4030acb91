package allocation

import (
	"maps"
	"slices"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/timeline"
)

// =============================================================================
// Tables
// =============================================================================

// Table maps period id -> product -> quantity.
type Table map[string]map[string]float64

// Add accumulates value into the (period, product) cell.
func (t Table) Add(periodID, product string, value float64) {
	row, ok := t[periodID]
	if !ok {
		row = make(map[string]float64)
		t[periodID] = row
	}
	row[product] += value
}

// Get returns the (period, product) cell, zero when missing.
func (t Table) Get(periodID, product string) float64 {
	return t[periodID][product]
}

// Products returns every product present in the table, sorted.
func (t Table) Products() []string {
	seen := make(map[string]struct{})
	for _, row := range t {
		for product := range row {
			seen[product] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Sum returns the product's total over the given periods.
func (t Table) Sum(product string, periods []domain.Period) float64 {
	total := 0.0
	for _, p := range periods {
		total += t.Get(p.ID, product)
	}
	return total
}

// =============================================================================
// Proration
// =============================================================================

// OverlapProportion returns the share of the task's occupied interval that
// falls inside w. Unassigned tasks return 0.
func OverlapProportion(task domain.Task, w timeline.Window) float64 {
	if !task.IsAssigned() {
		return 0
	}
	duration := task.Duration()
	if duration <= 0 {
		return 0
	}
	start, end := task.OccupiedInterval()
	return w.Overlap(start, end) / duration
}

// ProductionByPeriod prorates every assigned task's production over the
// periods it overlaps. Products are renamed through groupMap when it has an
// entry for them. A non-nil horizon clips every period window before the
// overlap is measured, so production outside it is dropped.
func ProductionByPeriod(tasks []domain.Task, boundaries []domain.Boundary, groupMap map[string]string, horizon *timeline.Window) Table {
	table := make(Table)
	windows := timeline.PeriodWindows(boundaries)

	for _, task := range tasks {
		if !task.IsAssigned() || len(task.Production) == 0 {
			continue
		}
		products := slices.Sorted(maps.Keys(task.Production))

		for i, w := range windows {
			if horizon != nil {
				w = clip(w, *horizon)
			}
			proportion := OverlapProportion(task, w)
			if proportion == 0 {
				continue
			}
			periodID := boundaries[i+1].PeriodID
			for _, product := range products {
				table.Add(periodID, groupOf(product, groupMap), task.Production[product]*proportion)
			}
		}
	}
	return table
}

// DemandByPeriod copies demand into a Table. Demand is already period
// scoped and is never prorated.
func DemandByPeriod(demands []domain.Demand) Table {
	table := make(Table)
	for _, d := range demands {
		for _, e := range d.Periods {
			table.Add(e.PeriodID, d.Product, e.Demand)
		}
	}
	return table
}

// InventoryBalance returns, for each demanded product, the running
// cumulative production minus demand after each of the given periods.
func InventoryBalance(production Table, demands []domain.Demand, periods []domain.Period) map[string][]float64 {
	balances := make(map[string][]float64, len(demands))
	for _, d := range demands {
		running := 0.0
		series := make([]float64, 0, len(periods))
		for _, p := range periods {
			running += production.Get(p.ID, d.Product)
			if e, ok := d.Entry(p.ID); ok {
				running -= e.Demand
			}
			series = append(series, running)
		}
		balances[d.Product] = series
	}
	return balances
}

func groupOf(product string, groupMap map[string]string) string {
	if g, ok := groupMap[product]; ok && g != "" {
		return g
	}
	return product
}

func clip(w, to timeline.Window) timeline.Window {
	c := timeline.Window{Start: max(w.Start, to.Start), End: min(w.End, to.End)}
	if c.End < c.Start {
		c.End = c.Start
	}
	return c
}
