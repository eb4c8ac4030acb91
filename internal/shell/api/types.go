package api

// =============================================================================
// Response Types
// =============================================================================

// ErrorObject is a single JSON:API error.
type ErrorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Errors []ErrorObject `json:"errors"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
