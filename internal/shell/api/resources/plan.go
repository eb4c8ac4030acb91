package resources

import (
	"errors"
	"net/http"
	"time"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/manyminds/api2go"
	"github.com/manyminds/api2go/jsonapi"
)

// =============================================================================
// Plan JSON:API Model
// =============================================================================

// Plan wraps domain.Plan to implement JSON:API interfaces.
// Teams and tasks are exposed through their own resources.
type Plan struct {
	ID            string            `json:"-"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Periods       []domain.Period   `json:"periods,omitempty"`
	Months        []domain.Month    `json:"months,omitempty"`
	ProductGroups map[string]string `json:"product_groups,omitempty"`
	HorizonHours  float64           `json:"horizon_hours"`
	TeamCount     int               `json:"team_count"`
	TaskCount     int               `json:"task_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// GetID returns the plan ID for JSON:API.
func (p Plan) GetID() string {
	return p.ID
}

// SetID sets the plan ID for JSON:API.
func (p *Plan) SetID(id string) error {
	p.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (p Plan) GetName() string {
	return "plans"
}

// GetReferences returns the relationships this resource has.
func (p Plan) GetReferences() []jsonapi.Reference {
	return []jsonapi.Reference{
		{Type: "teams", Name: "teams"},
		{Type: "tasks", Name: "tasks"},
	}
}

// GetReferencedIDs returns IDs of referenced resources.
// Teams and tasks are listed with ?plan=ID instead.
func (p Plan) GetReferencedIDs() []jsonapi.ReferenceID {
	return nil
}

// GetReferencedStructs returns the actual referenced objects for compound documents.
func (p Plan) GetReferencedStructs() []jsonapi.MarshalIdentifier {
	return nil
}

// PlanFromDomain converts a domain.Plan to a JSON:API Plan.
func PlanFromDomain(p *domain.Plan) Plan {
	return Plan{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Periods:       p.Periods,
		Months:        p.Months,
		ProductGroups: p.ProductGroups,
		HorizonHours:  p.TotalHours(),
		TeamCount:     len(p.Teams),
		TaskCount:     len(p.Tasks),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// =============================================================================
// PlanResource - CRUD Operations
// =============================================================================

// PlanResource implements the api2go resource interface for plans.
type PlanResource struct {
	Store store.Store
}

// NewPlanResource creates a new plan resource handler.
func NewPlanResource(s store.Store) *PlanResource {
	return &PlanResource{Store: s}
}

// FindAll returns plan headers with optional pagination.
// GET /api/v1/plans
func (r PlanResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	opts := listOptions(req)

	plans, err := r.Store.ListPlans(req.PlainRequest.Context(), opts)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]Plan, 0, len(plans))
	for i := range plans {
		result = append(result, PlanFromDomain(&plans[i]))
	}

	return &Response{
		Code: http.StatusOK,
		Res:  result,
		Meta: map[string]interface{}{
			"total":  len(result),
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	}, nil
}

// FindOne returns a single plan by ID.
// GET /api/v1/plans/{id}
func (r PlanResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	plan, err := r.Store.GetPlan(req.PlainRequest.Context(), id)
	if err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Plan not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  PlanFromDomain(plan),
	}, nil
}

// Create creates an empty plan. Periods, teams and tasks arrive by
// scenario import.
// POST /api/v1/plans
func (r PlanResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	in, ok := obj.(Plan)
	if !ok {
		return httpError(http.StatusBadRequest, "Invalid request body")
	}

	if field, msg := validation.ValidateCreatePlanFields(in.Name); field != "" {
		return httpError(http.StatusBadRequest, msg)
	}

	plan, err := domain.NewPlan(in.Name)
	if err != nil {
		return httpError(http.StatusBadRequest, err.Error())
	}
	plan.Periods = in.Periods
	plan.Months = in.Months
	plan.ProductGroups = in.ProductGroups

	if err := r.Store.CreatePlan(req.PlainRequest.Context(), plan); err != nil {
		if store.IsConflict(err) {
			return httpError(http.StatusConflict, "A plan with this name already exists")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusCreated,
		Res:  PlanFromDomain(plan),
	}, nil
}

// Update renames a plan or replaces its product groups.
// PATCH /api/v1/plans/{id}
func (r PlanResource) Update(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	in, ok := obj.(Plan)
	if !ok {
		return httpError(http.StatusBadRequest, "Invalid request body")
	}

	ctx := req.PlainRequest.Context()
	plan, err := r.Store.GetPlan(ctx, in.ID)
	if err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Plan not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if in.Name != "" && in.Name != plan.Name {
		plan.Name = in.Name
		plan.Slug = domain.Slugify(in.Name)
	}
	if in.ProductGroups != nil {
		plan.ProductGroups = in.ProductGroups
	}
	plan.UpdatedAt = time.Now()

	if err := r.Store.UpdatePlan(ctx, plan); err != nil {
		if errors.Is(err, store.ErrDuplicateSlug) {
			return httpError(http.StatusConflict, "A plan with this name already exists")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  PlanFromDomain(plan),
	}, nil
}

// Delete removes a plan and everything in it.
// DELETE /api/v1/plans/{id}
func (r PlanResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	if err := r.Store.DeletePlan(req.PlainRequest.Context(), id); err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Plan not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{Code: http.StatusNoContent}, nil
}
