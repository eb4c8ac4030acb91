package allocation

import (
	"slices"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/timeline"
)

// =============================================================================
// Cost Types
// =============================================================================

// Components is the prorated part of a task's harvesting cost.
type Components struct {
	Harvester float64 `json:"harvester"`
	Forwarder float64 `json:"forwarder"`
	Traveling float64 `json:"traveling"`
}

// Total returns Harvester + Forwarder + Traveling.
func (c Components) Total() float64 {
	return c.Harvester + c.Forwarder + c.Traveling
}

func (c *Components) add(cost domain.HarvestCost, proportion float64) {
	c.Harvester += cost.HarvesterCost * proportion
	c.Forwarder += cost.ForwarderCost * proportion
	c.Traveling += cost.TravelingCost * proportion
}

// MovementMode is how a team relocates between two tasks.
type MovementMode string

const (
	MovementWheeling MovementMode = "wheeling"
	MovementTrailer  MovementMode = "trailer"
)

// Movement is a single relocation between consecutive tasks on a team.
type Movement struct {
	TeamID     string       `json:"team_id"`
	FromTaskID string       `json:"from_task_id"`
	ToTaskID   string       `json:"to_task_id"`
	At         float64      `json:"at_hour"`
	Km         float64      `json:"km"`
	Mode       MovementMode `json:"mode"`
	Cost       float64      `json:"cost"`
}

// TeamCosts is one team's share of a Breakdown.
type TeamCosts struct {
	Components
	Wheeling float64 `json:"wheeling"`
	Trailer  float64 `json:"trailer"`
}

// Total returns the team's operating cost.
func (t TeamCosts) Total() float64 {
	return t.Components.Total() + t.Wheeling + t.Trailer
}

// Breakdown is the cost report of a plan over a window.
//
// Total is harvester + forwarder + traveling + wheeling + trailer. DemandCost
// and IndustryValue are never folded into Total; callers that want a net
// figure combine the three themselves.
type Breakdown struct {
	Window        timeline.Window      `json:"window"`
	Harvester     float64              `json:"harvester"`
	Forwarder     float64              `json:"forwarder"`
	Traveling     float64              `json:"traveling"`
	Wheeling      float64              `json:"wheeling"`
	Trailer       float64              `json:"trailer"`
	Total         float64              `json:"total"`
	DemandCost    float64              `json:"demand_cost"`
	IndustryValue float64              `json:"industry_value"`
	ByTeam        map[string]TeamCosts `json:"by_team"`
	Movements     []Movement           `json:"movements"`
}

// CostInput carries everything CostBreakdown reads.
type CostInput struct {
	Tasks     []domain.Task
	Teams     []domain.Team
	Demands   []domain.Demand
	Periods   []domain.Period
	Distances domain.DistanceMatrix

	// ProductGroups renames products before they are matched to demand.
	ProductGroups map[string]string

	// Month scopes the report. Nil means the whole horizon. A month that
	// references unknown periods resolves to an empty window.
	Month *domain.Month
}

// =============================================================================
// Cost Breakdown
// =============================================================================

// CostBreakdown computes the cost report for in.
func CostBreakdown(in CostInput) Breakdown {
	boundaries := timeline.PeriodBoundaries(in.Periods)
	window, scoped := scope(in, boundaries)

	b := Breakdown{
		Window: window,
		ByTeam: make(map[string]TeamCosts),
	}

	for _, task := range in.Tasks {
		if !task.IsAssigned() {
			continue
		}
		cost, ok := task.CostFor(task.TeamID)
		if !ok {
			continue
		}
		proportion := OverlapProportion(task, window)
		if proportion == 0 {
			continue
		}
		tc := b.ByTeam[task.TeamID]
		tc.add(cost, proportion)
		b.ByTeam[task.TeamID] = tc
	}

	for _, team := range in.Teams {
		for _, m := range TeamMovements(team, in.Tasks, in.Distances) {
			if !window.Contains(m.At) {
				continue
			}
			tc := b.ByTeam[team.ID]
			switch m.Mode {
			case MovementTrailer:
				tc.Trailer += m.Cost
			default:
				tc.Wheeling += m.Cost
			}
			b.ByTeam[team.ID] = tc
			b.Movements = append(b.Movements, m)
		}
	}

	for _, id := range sortedKeys(b.ByTeam) {
		tc := b.ByTeam[id]
		b.Harvester += tc.Harvester
		b.Forwarder += tc.Forwarder
		b.Traveling += tc.Traveling
		b.Wheeling += tc.Wheeling
		b.Trailer += tc.Trailer
	}
	b.Total = b.Harvester + b.Forwarder + b.Traveling + b.Wheeling + b.Trailer

	production := ProductionByPeriod(in.Tasks, boundaries, in.ProductGroups, nil)
	b.DemandCost = DemandCost(production, in.Demands, scoped)
	b.IndustryValue = IndustryValue(production, in.Demands, scoped)
	return b
}

// scope resolves the report window and the periods it covers.
func scope(in CostInput, boundaries []domain.Boundary) (timeline.Window, []domain.Period) {
	if in.Month == nil {
		return timeline.Horizon(boundaries), in.Periods
	}
	w, ok := timeline.MonthWindow(*in.Month, boundaries)
	if !ok {
		return timeline.Window{}, nil
	}
	return w, timeline.MonthPeriods(*in.Month, in.Periods)
}

// TeamMovements lists the relocations between temporally consecutive
// tasks on a team. A pair with no recorded distance moves 0 km.
func TeamMovements(team domain.Team, tasks []domain.Task, distances domain.DistanceMatrix) []Movement {
	onTeam := domain.TasksOnTeam(tasks, team.ID)
	if len(onTeam) < 2 {
		return nil
	}

	movements := make([]Movement, 0, len(onTeam)-1)
	for i := 1; i < len(onTeam); i++ {
		from, to := onTeam[i-1], onTeam[i]
		km, _ := distances.Lookup(from.ID, to.ID)
		m := Movement{
			TeamID:     team.ID,
			FromTaskID: from.ID,
			ToTaskID:   to.ID,
			At:         from.End(),
			Km:         km,
		}
		m.Mode, m.Cost = MoveCost(team, km)
		movements = append(movements, m)
	}
	return movements
}

// MoveCost prices a relocation of km kilometres. Within the wheeling range
// the team drives itself; beyond it a trailer is hired. A zero trailer
// speed drops the travel-time term.
func MoveCost(team domain.Team, km float64) (MovementMode, float64) {
	if !team.NeedsTrailer(km) {
		return MovementWheeling, km * team.FixMovingCostWithoutTrailer
	}
	cost := team.FixMovingCostWithTrailer
	if team.TrailerAverageSpeed > 0 {
		cost += km / team.TrailerAverageSpeed * team.TrailerCost
	}
	return MovementTrailer, cost
}

// =============================================================================
// Demand
// =============================================================================

// DemandCost prices the gap between production and demand over the given
// periods. For each demanded product the remainder is the final inventory
// balance less the total demand of the scoped entries; a positive remainder
// costs remainder × CostAboveGoal, otherwise -remainder × CostBelowGoal.
// Rates come from the product's last demand entry inside the periods.
func DemandCost(production Table, demands []domain.Demand, periods []domain.Period) float64 {
	balances := InventoryBalance(production, demands, periods)
	total := 0.0
	for _, d := range demands {
		rates, ok := lastEntry(d, periods)
		if !ok {
			continue
		}
		series := balances[d.Product]
		remainder := series[len(series)-1] - scopedDemand(d, periods)
		if remainder > 0 {
			total += remainder * rates.CostAboveGoal
		} else {
			total += -remainder * rates.CostBelowGoal
		}
	}
	return total
}

// IndustryValue is Σ product (production in periods) × ValueProd.
func IndustryValue(production Table, demands []domain.Demand, periods []domain.Period) float64 {
	total := 0.0
	for _, d := range demands {
		total += production.Sum(d.Product, periods) * d.ValueProd
	}
	return total
}

func scopedDemand(d domain.Demand, periods []domain.Period) float64 {
	total := 0.0
	for _, p := range periods {
		if e, ok := d.Entry(p.ID); ok {
			total += e.Demand
		}
	}
	return total
}

func lastEntry(d domain.Demand, periods []domain.Period) (domain.DemandEntry, bool) {
	for i := len(periods) - 1; i >= 0; i-- {
		if e, ok := d.Entry(periods[i].ID); ok {
			return e, true
		}
	}
	return domain.DemandEntry{}, false
}

// =============================================================================
// Per-Period Costs
// =============================================================================

// CostsByPeriod prorates every assigned task's harvesting cost over the
// periods it overlaps.
func CostsByPeriod(tasks []domain.Task, boundaries []domain.Boundary) map[string]Components {
	result := make(map[string]Components)
	windows := timeline.PeriodWindows(boundaries)

	for _, task := range tasks {
		if !task.IsAssigned() {
			continue
		}
		cost, ok := task.CostFor(task.TeamID)
		if !ok {
			continue
		}
		for i, w := range windows {
			proportion := OverlapProportion(task, w)
			if proportion == 0 {
				continue
			}
			id := boundaries[i+1].PeriodID
			c := result[id]
			c.add(cost, proportion)
			result[id] = c
		}
	}
	return result
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
