package resources

import (
	"fmt"
	"net/http"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/manyminds/api2go"
)

// =============================================================================
// Team JSON:API Model
// =============================================================================

// Team wraps domain.Team to implement JSON:API interfaces.
type Team struct {
	ID                          string  `json:"-"`
	PlanID                      string  `json:"plan_id"`
	Color                       string  `json:"color,omitempty"`
	MaxWheelingDistKm           float64 `json:"max_wheeling_dist_km"`
	FixMovingCostWithoutTrailer float64 `json:"fix_moving_cost_without_trailer"`
	FixMovingCostWithTrailer    float64 `json:"fix_moving_cost_with_trailer"`
	TrailerAverageSpeed         float64 `json:"trailer_average_speed"`
	TrailerCost                 float64 `json:"trailer_cost"`
}

// GetID returns the team ID for JSON:API.
func (t Team) GetID() string {
	return t.ID
}

// SetID sets the team ID for JSON:API.
func (t *Team) SetID(id string) error {
	t.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (t Team) GetName() string {
	return "teams"
}

// TeamFromDomain converts a domain.Team to a JSON:API Team.
func TeamFromDomain(planID string, t domain.Team) Team {
	return Team{
		ID:                          t.ID,
		PlanID:                      planID,
		Color:                       t.Color,
		MaxWheelingDistKm:           t.MaxWheelingDistKm,
		FixMovingCostWithoutTrailer: t.FixMovingCostWithoutTrailer,
		FixMovingCostWithTrailer:    t.FixMovingCostWithTrailer,
		TrailerAverageSpeed:         t.TrailerAverageSpeed,
		TrailerCost:                 t.TrailerCost,
	}
}

// =============================================================================
// TeamResource - Read Operations
// =============================================================================

// TeamResource implements the api2go resource interface for teams.
// Teams belong to a plan; every request names it with ?plan=ID.
type TeamResource struct {
	Store store.Store
}

// NewTeamResource creates a new team resource handler.
func NewTeamResource(s store.Store) *TeamResource {
	return &TeamResource{Store: s}
}

// FindAll returns the teams of a plan.
// GET /api/v1/teams?plan={plan}
func (r TeamResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	planID := planParam(req)
	if planID == "" {
		return httpError(http.StatusBadRequest, "plan query parameter is required")
	}

	ctx := req.PlainRequest.Context()
	if _, err := r.Store.GetPlan(ctx, planID); err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Plan not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	teams, err := r.Store.ListTeams(ctx, planID)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]Team, 0, len(teams))
	for _, t := range teams {
		result = append(result, TeamFromDomain(planID, t))
	}

	return &Response{
		Code: http.StatusOK,
		Res:  result,
		Meta: map[string]interface{}{
			"total": len(result),
			"plan":  planID,
		},
	}, nil
}

// FindOne returns a single team.
// GET /api/v1/teams/{id}?plan={plan}
func (r TeamResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	planID := planParam(req)
	if planID == "" {
		return httpError(http.StatusBadRequest, "plan query parameter is required")
	}

	team, err := r.Store.GetTeam(req.PlainRequest.Context(), planID, id)
	if err != nil {
		if isNotFound(err) {
			return httpError(http.StatusNotFound, "Team not found")
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TeamFromDomain(planID, *team),
	}, nil
}

// Create is not supported; teams arrive by scenario import.
func (r TeamResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Teams")
}

// Update is not supported.
func (r TeamResource) Update(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Teams")
}

// Delete is not supported.
func (r TeamResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	return readOnly("Teams")
}

func readOnly(kind string) (api2go.Responder, error) {
	return &Response{Code: http.StatusMethodNotAllowed}, api2go.NewHTTPError(
		fmt.Errorf("%s are read-only", kind),
		kind+" are read-only. Import a scenario to change them.",
		http.StatusMethodNotAllowed,
	)
}
