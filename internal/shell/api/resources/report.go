package resources

import (
	"net/http"
	"strconv"

	"github.com/artpar/harvestplan/internal/shell/planner"
	"github.com/manyminds/api2go"
)

// =============================================================================
// ReportResource - Plan Reports
// =============================================================================

// ReportResource serves the read-only production, demand, cost and
// validation reports of a plan.
type ReportResource struct {
	Planner *planner.Service
}

// NewReportResource creates a new report handler.
func NewReportResource(p *planner.Service) *ReportResource {
	return &ReportResource{Planner: p}
}

// Production returns production per product and period.
// GET /api/v1/plans/{plan}/production?grouped=true
func (r ReportResource) Production(planID string, req *http.Request) (api2go.Responder, error) {
	grouped, _ := strconv.ParseBool(req.URL.Query().Get("grouped"))

	table, err := r.Planner.Production(req.Context(), planID, grouped)
	if err != nil {
		return plannerError(err)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  table,
		Meta: map[string]interface{}{
			"grouped":  grouped,
			"products": table.Products(),
		},
	}, nil
}

// Demand returns demand per product and period together with the running
// inventory balance.
// GET /api/v1/plans/{plan}/demand
func (r ReportResource) Demand(planID string, req *http.Request) (api2go.Responder, error) {
	ctx := req.Context()

	table, err := r.Planner.Demand(ctx, planID)
	if err != nil {
		return plannerError(err)
	}
	balance, err := r.Planner.Balance(ctx, planID)
	if err != nil {
		return plannerError(err)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  table,
		Meta: map[string]interface{}{
			"balance": balance,
		},
	}, nil
}

// Costs returns the cost breakdown of the whole horizon or of one month.
// GET /api/v1/plans/{plan}/costs?month=M1
func (r ReportResource) Costs(planID string, req *http.Request) (api2go.Responder, error) {
	ctx := req.Context()
	month := req.URL.Query().Get("month")

	breakdown, err := r.Planner.Costs(ctx, planID, month)
	if err != nil {
		return plannerError(err)
	}
	perPeriod, err := r.Planner.PeriodCosts(ctx, planID)
	if err != nil {
		return plannerError(err)
	}

	meta := map[string]interface{}{
		"by_period": perPeriod,
	}
	if month != "" {
		meta["month"] = month
	}

	return &Response{
		Code: http.StatusOK,
		Res:  breakdown,
		Meta: meta,
	}, nil
}

// Validation returns every plan and schedule violation.
// GET /api/v1/plans/{plan}/validation
func (r ReportResource) Validation(planID string, req *http.Request) (api2go.Responder, error) {
	violations, err := r.Planner.Validate(req.Context(), planID)
	if err != nil {
		return plannerError(err)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  violations,
		Meta: map[string]interface{}{
			"valid": len(violations) == 0,
			"count": len(violations),
		},
	}, nil
}
