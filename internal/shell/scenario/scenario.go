// Package scenario reads and writes harvest plans as YAML scenario files.
// This is part of the Imperative Shell.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/artpar/harvestplan/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a scenario file cannot be decoded.
var ErrInvalidScenario = errors.New("invalid scenario")

// =============================================================================
// File Format
// =============================================================================

type file struct {
	Name          string            `yaml:"name"`
	Periods       []period          `yaml:"periods"`
	Months        []month           `yaml:"months,omitempty"`
	Teams         []team            `yaml:"teams"`
	Tasks         []task            `yaml:"tasks"`
	Demands       []demand          `yaml:"demands,omitempty"`
	Distances     []distance        `yaml:"distances,omitempty"`
	ProductGroups map[string]string `yaml:"product_groups,omitempty"`
}

type period struct {
	ID          string  `yaml:"id"`
	LengthHours float64 `yaml:"length_h"`
}

type month struct {
	ID      string   `yaml:"id"`
	Periods []string `yaml:"periods,flow"`
}

type team struct {
	ID                          string  `yaml:"id"`
	Color                       string  `yaml:"color,omitempty"`
	MaxWheelingDistKm           float64 `yaml:"max_wheeling_dist_km"`
	FixMovingCostWithoutTrailer float64 `yaml:"fix_moving_cost_without_trailer"`
	FixMovingCostWithTrailer    float64 `yaml:"fix_moving_cost_with_trailer"`
	TrailerAverageSpeed         float64 `yaml:"trailer_average_speed"`
	TrailerCost                 float64 `yaml:"trailer_cost"`
}

type task struct {
	ID             string                   `yaml:"id"`
	Team           string                   `yaml:"team,omitempty"`
	StartHour      float64                  `yaml:"start_hour,omitempty"`
	Duration       float64                  `yaml:"duration"`
	Setup          float64                  `yaml:"setup,omitempty"`
	SpecialTeams   map[string]overrideValue `yaml:"special_teams,omitempty"`
	InvalidPeriods []string                 `yaml:"invalid_periods,omitempty,flow"`
	Production     map[string]float64       `yaml:"production,omitempty"`
	HarvestCosts   []harvestCost            `yaml:"harvest_costs,omitempty"`
}

type harvestCost struct {
	Team      string  `yaml:"team"`
	Harvester float64 `yaml:"harvester"`
	Forwarder float64 `yaml:"forwarder"`
	Traveling float64 `yaml:"traveling"`
}

type demand struct {
	Product   string        `yaml:"product"`
	ValueProd float64       `yaml:"value_prod"`
	Periods   []demandEntry `yaml:"periods"`
}

type demandEntry struct {
	Period        string  `yaml:"period"`
	Demand        float64 `yaml:"demand"`
	CostAboveGoal float64 `yaml:"cost_above_goal"`
	CostBelowGoal float64 `yaml:"cost_below_goal"`
}

type distance struct {
	From string  `yaml:"from"`
	To   string  `yaml:"to"`
	Km   float64 `yaml:"km"`
}

// overrideValue is a per-team override written either as a duration in
// hours or as the disallow marker "x".
type overrideValue struct {
	domain.Override
}

func (o *overrideValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: override must be a number or %q", node.Line, domain.DisallowMarker)
	}
	parsed, err := domain.ParseOverride(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	o.Override = parsed
	return nil
}

func (o overrideValue) MarshalYAML() (any, error) {
	if hours, ok := o.Duration(); ok {
		return hours, nil
	}
	return domain.DisallowMarker, nil
}

// =============================================================================
// Decoding
// =============================================================================

// Load reads a scenario file from disk.
func Load(path string) (*domain.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a scenario into a new plan with a generated ID.
// Unknown keys are rejected.
func Decode(r io.Reader) (*domain.Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	plan, err := domain.NewPlan(f.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	fillPlan(plan, &f)
	return plan, nil
}

func fillPlan(plan *domain.Plan, f *file) {
	for _, p := range f.Periods {
		plan.Periods = append(plan.Periods, domain.Period{ID: p.ID, LengthHours: p.LengthHours})
	}
	for _, m := range f.Months {
		plan.Months = append(plan.Months, domain.Month{ID: m.ID, PeriodIDs: m.Periods})
	}
	for _, t := range f.Teams {
		plan.Teams = append(plan.Teams, domain.Team{
			ID:                          t.ID,
			Color:                       t.Color,
			MaxWheelingDistKm:           t.MaxWheelingDistKm,
			FixMovingCostWithoutTrailer: t.FixMovingCostWithoutTrailer,
			FixMovingCostWithTrailer:    t.FixMovingCostWithTrailer,
			TrailerAverageSpeed:         t.TrailerAverageSpeed,
			TrailerCost:                 t.TrailerCost,
		})
	}
	for _, t := range f.Tasks {
		dt := domain.Task{
			ID:              t.ID,
			TeamID:          t.Team,
			StartHour:       t.StartHour,
			DefaultDuration: t.Duration,
			DefaultSetup:    t.Setup,
			InvalidPeriods:  t.InvalidPeriods,
			Production:      t.Production,
		}
		if len(t.SpecialTeams) > 0 {
			dt.SpecialTeams = make(map[string]domain.Override, len(t.SpecialTeams))
			for teamID, o := range t.SpecialTeams {
				dt.SpecialTeams[teamID] = o.Override
			}
		}
		for _, c := range t.HarvestCosts {
			dt.HarvestCosts = append(dt.HarvestCosts, domain.HarvestCost{
				TeamID:        c.Team,
				HarvesterCost: c.Harvester,
				ForwarderCost: c.Forwarder,
				TravelingCost: c.Traveling,
			})
		}
		if !dt.IsAssigned() {
			dt.StartHour = 0
		}
		plan.Tasks = append(plan.Tasks, dt)
	}
	for _, d := range f.Demands {
		dd := domain.Demand{Product: d.Product, ValueProd: d.ValueProd}
		for _, e := range d.Periods {
			dd.Periods = append(dd.Periods, domain.DemandEntry{
				PeriodID:      e.Period,
				Demand:        e.Demand,
				CostAboveGoal: e.CostAboveGoal,
				CostBelowGoal: e.CostBelowGoal,
			})
		}
		plan.Demands = append(plan.Demands, dd)
	}
	for _, d := range f.Distances {
		plan.Distances = append(plan.Distances, domain.Distance{FromTaskID: d.From, ToTaskID: d.To, Km: d.Km})
	}
	plan.ProductGroups = f.ProductGroups
}

// =============================================================================
// Encoding
// =============================================================================

// Save writes a plan to disk as a scenario file.
func Save(path string, plan *domain.Plan) error {
	var buf bytes.Buffer
	if err := Encode(&buf, plan); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing scenario: %w", err)
	}
	return nil
}

// Encode writes a plan as a scenario document. Plan IDs and timestamps are
// not part of the format.
func Encode(w io.Writer, plan *domain.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toFile(plan)); err != nil {
		return fmt.Errorf("serializing scenario YAML: %w", err)
	}
	return enc.Close()
}

func toFile(plan *domain.Plan) *file {
	f := &file{Name: plan.Name, ProductGroups: plan.ProductGroups}

	for _, p := range plan.Periods {
		f.Periods = append(f.Periods, period{ID: p.ID, LengthHours: p.LengthHours})
	}
	for _, m := range plan.Months {
		f.Months = append(f.Months, month{ID: m.ID, Periods: slices.Clone(m.PeriodIDs)})
	}
	for _, t := range plan.Teams {
		f.Teams = append(f.Teams, team{
			ID:                          t.ID,
			Color:                       t.Color,
			MaxWheelingDistKm:           t.MaxWheelingDistKm,
			FixMovingCostWithoutTrailer: t.FixMovingCostWithoutTrailer,
			FixMovingCostWithTrailer:    t.FixMovingCostWithTrailer,
			TrailerAverageSpeed:         t.TrailerAverageSpeed,
			TrailerCost:                 t.TrailerCost,
		})
	}
	for _, t := range plan.Tasks {
		ft := task{
			ID:             t.ID,
			Team:           t.TeamID,
			StartHour:      t.StartHour,
			Duration:       t.DefaultDuration,
			Setup:          t.DefaultSetup,
			InvalidPeriods: t.InvalidPeriods,
			Production:     t.Production,
		}
		if len(t.SpecialTeams) > 0 {
			ft.SpecialTeams = make(map[string]overrideValue, len(t.SpecialTeams))
			for teamID, o := range t.SpecialTeams {
				ft.SpecialTeams[teamID] = overrideValue{o}
			}
		}
		for _, c := range t.HarvestCosts {
			ft.HarvestCosts = append(ft.HarvestCosts, harvestCost{
				Team:      c.TeamID,
				Harvester: c.HarvesterCost,
				Forwarder: c.ForwarderCost,
				Traveling: c.TravelingCost,
			})
		}
		f.Tasks = append(f.Tasks, ft)
	}
	for _, d := range plan.Demands {
		fd := demand{Product: d.Product, ValueProd: d.ValueProd}
		for _, e := range d.Periods {
			fd.Periods = append(fd.Periods, demandEntry{
				Period:        e.PeriodID,
				Demand:        e.Demand,
				CostAboveGoal: e.CostAboveGoal,
				CostBelowGoal: e.CostBelowGoal,
			})
		}
		f.Demands = append(f.Demands, fd)
	}
	for _, d := range plan.Distances {
		f.Distances = append(f.Distances, distance{From: d.FromTaskID, To: d.ToTaskID, Km: d.Km})
	}
	return f
}
