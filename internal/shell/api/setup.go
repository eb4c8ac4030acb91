// Package api provides HTTP handlers for the harvest planning API.
// Plans, teams and tasks are JSON:API resources served by api2go; placement
// actions and reports are plain JSON routes on the same router.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/artpar/harvestplan/internal/shell/api/openapi"
	"github.com/artpar/harvestplan/internal/shell/api/resources"
	"github.com/artpar/harvestplan/internal/shell/planner"
	"github.com/artpar/harvestplan/internal/shell/store"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/manyminds/api2go"
)

// =============================================================================
// API Setup
// =============================================================================

// APIConfig holds configuration for the API setup.
type APIConfig struct {
	Store   store.Store
	Planner *planner.Service // nil = built from Store with defaults
	Logger  *slog.Logger
	Version string
}

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// SetupAPI creates the complete API router with JSON:API resources and custom endpoints.
// Returns an http.Handler that can be used as the server's main handler.
func SetupAPI(cfg APIConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Planner == nil {
		cfg.Planner = planner.NewService(cfg.Store, cfg.Logger)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	router := mux.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(cfg.Logger))
	router.Use(recoveryMiddleware(cfg.Logger))

	// Health endpoints (not JSON:API, just simple JSON)
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/ready", readyHandler(cfg.Store)).Methods("GET")

	// api2go builds its own router; it is mounted under /api at the end.
	jsonAPI := api2go.NewAPIWithResolver("v1", api2go.NewStaticResolver("/api"))
	jsonAPI.ContentType = "application/vnd.api+json"

	planResource := resources.NewPlanResource(cfg.Store)
	teamResource := resources.NewTeamResource(cfg.Store)
	taskResource := resources.NewTaskResource(cfg.Store, cfg.Planner)
	reportResource := resources.NewReportResource(cfg.Planner)

	jsonAPI.AddResource(resources.Plan{}, planResource)
	jsonAPI.AddResource(resources.Team{}, teamResource)
	jsonAPI.AddResource(resources.Task{}, taskResource)

	// Custom actions must be registered before the /api prefix handler.

	// Task actions
	router.HandleFunc("/api/v1/plans/{plan}/tasks/{id}/place", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		resp, err := taskResource.PlaceTask(vars["plan"], vars["id"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("POST")

	router.HandleFunc("/api/v1/plans/{plan}/tasks/{id}/move", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		resp, err := taskResource.MoveTask(vars["plan"], vars["id"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("POST")

	router.HandleFunc("/api/v1/plans/{plan}/tasks/{id}/unassign", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		resp, err := taskResource.UnassignTask(vars["plan"], vars["id"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("POST")

	// Plan reports
	router.HandleFunc("/api/v1/plans/{plan}/production", func(w http.ResponseWriter, r *http.Request) {
		resp, err := reportResource.Production(mux.Vars(r)["plan"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("GET")

	router.HandleFunc("/api/v1/plans/{plan}/demand", func(w http.ResponseWriter, r *http.Request) {
		resp, err := reportResource.Demand(mux.Vars(r)["plan"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("GET")

	router.HandleFunc("/api/v1/plans/{plan}/costs", func(w http.ResponseWriter, r *http.Request) {
		resp, err := reportResource.Costs(mux.Vars(r)["plan"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("GET")

	router.HandleFunc("/api/v1/plans/{plan}/validation", func(w http.ResponseWriter, r *http.Request) {
		resp, err := reportResource.Validation(mux.Vars(r)["plan"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("GET")

	// OpenAPI endpoint
	openapiGen := openapi.NewGenerator(
		openapi.WithTitle("Harvest Planning API"),
		openapi.WithVersion(cfg.Version),
		openapi.WithDescription("Harvest task scheduling, reflow and cost reporting following JSON:API"),
		openapi.WithServer("/api/v1"),
	)

	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:           "plans",
		Model:          resources.Plan{},
		SupportsFind:   true,
		SupportsCreate: true,
		SupportsUpdate: true,
		SupportsDelete: true,
	})
	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:         "teams",
		Model:        resources.Team{},
		SupportsFind: true,
	})
	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:         "tasks",
		Model:        resources.Task{},
		SupportsFind: true,
	})

	openapiGen.RegisterAction(openapi.ActionInfo{Method: "POST", Path: "/plans/{plan}/tasks/{id}/place", Summary: "Place a task at its earliest feasible start", Tag: "Tasks", Body: resources.PlaceRequest{}})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "POST", Path: "/plans/{plan}/tasks/{id}/move", Summary: "Move a task and reflow its team", Tag: "Tasks", Body: resources.MoveRequest{}})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "POST", Path: "/plans/{plan}/tasks/{id}/unassign", Summary: "Remove a task from its team", Tag: "Tasks"})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "GET", Path: "/plans/{plan}/production", Summary: "Production per period", Tag: "Reports", Query: []string{"grouped"}})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "GET", Path: "/plans/{plan}/demand", Summary: "Demand and inventory balance per period", Tag: "Reports"})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "GET", Path: "/plans/{plan}/costs", Summary: "Cost breakdown", Tag: "Reports", Query: []string{"month"}})
	openapiGen.RegisterAction(openapi.ActionInfo{Method: "GET", Path: "/plans/{plan}/validation", Summary: "Plan and schedule violations", Tag: "Reports"})

	router.HandleFunc("/openapi.json", openapiGen.Handler()).Methods("GET")

	// api2go expects paths without the /api prefix (e.g., /v1/plans not /api/v1/plans)
	router.PathPrefix("/api").Handler(http.StripPrefix("/api", jsonAPI.Handler()))

	return router
}

// =============================================================================
// Middleware
// =============================================================================

// requestIDMiddleware echoes the request ID assigned by chi's RequestID
// middleware in the X-Request-ID response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs one line per request at Debug level.
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// recoveryMiddleware recovers from panics and returns a 500 error.
func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					w.Header().Set("Content-Type", "application/vnd.api+json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(ErrorResponse{
						Errors: []ErrorObject{{
							Status: "500",
							Title:  "Internal Server Error",
							Detail: "An unexpected error occurred",
						}},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Health Handlers
// =============================================================================

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}

func readyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		checks := make(map[string]string)

		if p, ok := s.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				checks["database"] = "failed"
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(ReadyResponse{Status: "not_ready", Checks: checks})
				return
			}
		}
		checks["database"] = "ok"

		json.NewEncoder(w).Encode(ReadyResponse{Status: "ready", Checks: checks})
	}
}

// =============================================================================
// Helpers
// =============================================================================

// writeResponder writes an api2go.Responder to the response writer.
func writeResponder(w http.ResponseWriter, resp api2go.Responder, err error, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/vnd.api+json")

	if err != nil {
		if httpErr, ok := err.(api2go.HTTPError); ok && len(httpErr.Errors) > 0 {
			status := parseStatus(httpErr.Errors[0].Status)
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errors": httpErr.Errors,
			})
			return
		}
		logger.Error("request error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Errors: []ErrorObject{{
				Status: "500",
				Title:  "Internal Server Error",
				Detail: err.Error(),
			}},
		})
		return
	}

	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(resp.StatusCode())
	if result := resp.Result(); result != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": result,
			"meta": resp.Metadata(),
		})
	}
}

// parseStatus converts a status string to an int.
func parseStatus(status string) int {
	if status == "" {
		return http.StatusInternalServerError
	}
	n := json.Number(status)
	if i, err := n.Int64(); err == nil && i > 0 {
		return int(i)
	}
	return http.StatusInternalServerError
}
