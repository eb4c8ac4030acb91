package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/artpar/harvestplan/internal/core/allocation"
	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/fatih/color"
)

// Report is everything the report command prints for one plan.
type Report struct {
	Plan       *domain.Plan
	Month      string
	Costs      *allocation.Breakdown
	Production allocation.Table
	Balance    map[string][]float64
	Violations []validation.Violation
}

// reportRenderer writes a Report as a terminal summary.
type reportRenderer struct {
	heading func(a ...interface{}) string
	dim     func(a ...interface{}) string
	good    func(a ...interface{}) string
	bad     func(a ...interface{}) string
	warn    func(a ...interface{}) string
}

func newReportRenderer(useColor bool) *reportRenderer {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &reportRenderer{
		heading: mk(color.FgCyan, color.Bold),
		dim:     mk(color.FgHiBlack),
		good:    mk(color.FgGreen),
		bad:     mk(color.FgRed),
		warn:    mk(color.FgYellow),
	}
}

// Render writes the report to w.
func (r *reportRenderer) Render(w io.Writer, rep Report) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", r.heading("Plan"), rep.Plan.Name)
	fmt.Fprintf(&sb, "%s\n", r.dim(fmt.Sprintf("id %s, %d periods, %.1f h horizon, %d teams, %d tasks",
		rep.Plan.ID, len(rep.Plan.Periods), rep.Plan.TotalHours(), len(rep.Plan.Teams), len(rep.Plan.Tasks))))
	sb.WriteString(strings.Repeat("─", 60) + "\n")

	if rep.Costs != nil {
		r.costs(&sb, rep)
	}
	if rep.Production != nil {
		r.production(&sb, rep)
	}
	if rep.Balance != nil {
		r.balance(&sb, rep.Balance)
	}
	r.violations(&sb, rep.Violations)

	io.WriteString(w, sb.String())
}

func (r *reportRenderer) costs(sb *strings.Builder, rep Report) {
	c := rep.Costs
	scope := "whole horizon"
	if rep.Month != "" {
		scope = "month " + rep.Month
	}
	fmt.Fprintf(sb, "\n%s %s\n", r.heading("Costs"), r.dim(fmt.Sprintf("(%s, hours %.1f to %.1f)", scope, c.Window.Start, c.Window.End)))

	rows := []struct {
		label string
		value float64
	}{
		{"harvester", c.Harvester},
		{"forwarder", c.Forwarder},
		{"traveling", c.Traveling},
		{"wheeling", c.Wheeling},
		{"trailer", c.Trailer},
	}
	for _, row := range rows {
		fmt.Fprintf(sb, "  %-16s %12.2f\n", row.label, row.value)
	}
	fmt.Fprintf(sb, "  %-16s %12s\n", "", r.dim(strings.Repeat("-", 12)))
	fmt.Fprintf(sb, "  %-16s %12.2f\n", "total", c.Total)

	demand := fmt.Sprintf("%12.2f", c.DemandCost)
	if c.DemandCost > 0 {
		demand = r.warn(demand)
	}
	fmt.Fprintf(sb, "  %-16s %s\n", "demand cost", demand)
	fmt.Fprintf(sb, "  %-16s %s\n", "industry value", r.good(fmt.Sprintf("%12.2f", c.IndustryValue)))

	if len(c.ByTeam) == 0 {
		return
	}
	teams := make([]string, 0, len(c.ByTeam))
	for id := range c.ByTeam {
		teams = append(teams, id)
	}
	slices.Sort(teams)

	moves := make(map[string]int)
	for _, m := range c.Movements {
		moves[m.TeamID]++
	}

	fmt.Fprintf(sb, "\n  %s\n", r.dim("by team"))
	for _, id := range teams {
		fmt.Fprintf(sb, "  %-16s %12.2f  %s\n", id, c.ByTeam[id].Total(), r.dim(fmt.Sprintf("%d moves", moves[id])))
	}
}

func (r *reportRenderer) production(sb *strings.Builder, rep Report) {
	fmt.Fprintf(sb, "\n%s\n", r.heading("Production"))

	products := rep.Production.Products()
	if len(products) == 0 {
		sb.WriteString("  " + r.dim("nothing scheduled") + "\n")
		return
	}

	fmt.Fprintf(sb, "  %-10s", "period")
	for _, p := range products {
		fmt.Fprintf(sb, " %12s", p)
	}
	sb.WriteString("\n")

	for _, period := range rep.Plan.Periods {
		fmt.Fprintf(sb, "  %-10s", period.ID)
		for _, p := range products {
			fmt.Fprintf(sb, " %12.2f", rep.Production.Get(period.ID, p))
		}
		sb.WriteString("\n")
	}
}

func (r *reportRenderer) balance(sb *strings.Builder, balance map[string][]float64) {
	if len(balance) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n", r.heading("Inventory balance"))

	products := make([]string, 0, len(balance))
	for p := range balance {
		products = append(products, p)
	}
	slices.Sort(products)

	for _, p := range products {
		fmt.Fprintf(sb, "  %-10s", p)
		for _, v := range balance[p] {
			cell := fmt.Sprintf(" %10.2f", v)
			if v < 0 {
				cell = r.bad(cell)
			}
			sb.WriteString(cell)
		}
		sb.WriteString("\n")
	}
}

func (r *reportRenderer) violations(sb *strings.Builder, violations []validation.Violation) {
	fmt.Fprintf(sb, "\n%s\n", r.heading("Validation"))
	if len(violations) == 0 {
		fmt.Fprintf(sb, "  %s no violations\n", r.good("✓"))
		return
	}
	for _, v := range violations {
		fmt.Fprintf(sb, "  %s %s\n", r.bad("✗"), v.String())
	}
}
