package validation

import (
	"fmt"

	"github.com/artpar/harvestplan/internal/core/domain"
)

// =============================================================================
// Plan Validation
// =============================================================================

// ValidatePlan checks that a plan's reference data is consistent: period
// ids are unique with positive lengths, months cover contiguous runs of
// known periods, task and team ids are unique, and demand and harvest cost
// entries point at known periods and teams.
func ValidatePlan(plan *domain.Plan) []Violation {
	var violations []Violation

	periodIndex := make(map[string]int, len(plan.Periods))
	for i, p := range plan.Periods {
		if _, dup := periodIndex[p.ID]; dup {
			violations = append(violations, duplicate("period", p.ID))
			continue
		}
		periodIndex[p.ID] = i
		if p.LengthHours <= 0 {
			violations = append(violations, Violation{
				Kind:    KindBadPeriodLength,
				TaskID:  p.ID,
				Message: fmt.Sprintf("period %s has non-positive length %g", p.ID, p.LengthHours),
			})
		}
	}

	for _, m := range plan.Months {
		if msg := checkMonth(m, periodIndex); msg != "" {
			violations = append(violations, Violation{Kind: KindMalformedMonth, TaskID: m.ID, Message: msg})
		}
	}

	teams := make(map[string]bool, len(plan.Teams))
	for _, t := range plan.Teams {
		if teams[t.ID] {
			violations = append(violations, duplicate("team", t.ID))
		}
		teams[t.ID] = true
	}

	tasks := make(map[string]bool, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if tasks[t.ID] {
			violations = append(violations, duplicate("task", t.ID))
		}
		tasks[t.ID] = true

		if t.DefaultDuration < 0 {
			violations = append(violations, Violation{
				Kind:    KindNegativeDuration,
				TaskID:  t.ID,
				Message: fmt.Sprintf("task %s has negative duration %g", t.ID, t.DefaultDuration),
			})
		}
		for _, id := range t.InvalidPeriods {
			if _, ok := periodIndex[id]; !ok {
				violations = append(violations, unknownPeriod(t.ID, id))
			}
		}
		for _, c := range t.HarvestCosts {
			if !teams[c.TeamID] {
				violations = append(violations, Violation{
					Kind:    KindUnknownCostTarget,
					TaskID:  t.ID,
					OtherID: c.TeamID,
					Message: fmt.Sprintf("task %s has a harvest cost for unknown team %s", t.ID, c.TeamID),
				})
			}
		}
	}

	products := make(map[string]bool, len(plan.Demands))
	for _, d := range plan.Demands {
		if products[d.Product] {
			violations = append(violations, Violation{
				Kind:    KindDuplicateDemand,
				TaskID:  d.Product,
				Message: fmt.Sprintf("product %s has more than one demand series", d.Product),
			})
		}
		products[d.Product] = true
		for _, e := range d.Periods {
			if _, ok := periodIndex[e.PeriodID]; !ok {
				violations = append(violations, unknownPeriod(d.Product, e.PeriodID))
			}
		}
	}

	return violations
}

func checkMonth(m domain.Month, periodIndex map[string]int) string {
	if len(m.PeriodIDs) == 0 {
		return fmt.Sprintf("month %s has no periods", m.ID)
	}
	prev := -1
	for _, id := range m.PeriodIDs {
		i, ok := periodIndex[id]
		if !ok {
			return fmt.Sprintf("month %s references unknown period %s", m.ID, id)
		}
		if prev >= 0 && i != prev+1 {
			return fmt.Sprintf("month %s periods are not contiguous at %s", m.ID, id)
		}
		prev = i
	}
	return ""
}

func duplicate(entity, id string) Violation {
	return Violation{
		Kind:    KindDuplicateID,
		TaskID:  id,
		Message: fmt.Sprintf("duplicate %s id %s", entity, id),
	}
}

func unknownPeriod(owner, periodID string) Violation {
	return Violation{
		Kind:    KindUnknownPeriod,
		TaskID:  owner,
		OtherID: periodID,
		Message: fmt.Sprintf("%s references unknown period %s", owner, periodID),
	}
}
