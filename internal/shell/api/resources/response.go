// Package resources provides JSON:API resource implementations for the
// harvest planning API.
package resources

import (
	"fmt"
	"strconv"

	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/manyminds/api2go"
)

// =============================================================================
// Response Type
// =============================================================================

// Response implements api2go.Responder.
type Response struct {
	Code int
	Res  interface{}
	Meta map[string]interface{}
}

// Metadata returns additional metadata for the response.
func (r *Response) Metadata() map[string]interface{} {
	return r.Meta
}

// Result returns the response data.
func (r *Response) Result() interface{} {
	return r.Res
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.Code
}

// =============================================================================
// Helper Functions
// =============================================================================

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	return store.IsNotFound(err)
}

// httpError builds a Response and api2go.HTTPError pair with the same status.
func httpError(status int, msg string) (api2go.Responder, error) {
	return &Response{Code: status}, api2go.NewHTTPError(fmt.Errorf("%s", msg), msg, status)
}

// listOptions reads page[size], page[offset] and page[number] query params.
func listOptions(req api2go.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit, ok := req.QueryParams["page[size]"]; ok && len(limit) > 0 {
		if l, err := strconv.Atoi(limit[0]); err == nil {
			opts.Limit = l
		}
	}
	if offset, ok := req.QueryParams["page[offset]"]; ok && len(offset) > 0 {
		if o, err := strconv.Atoi(offset[0]); err == nil {
			opts.Offset = o
		}
	}
	if pageNum, ok := req.QueryParams["page[number]"]; ok && len(pageNum) > 0 {
		if pn, err := strconv.Atoi(pageNum[0]); err == nil && pn > 0 {
			opts.Offset = (pn - 1) * opts.Limit
		}
	}
	return opts.Normalize()
}

// planParam returns the plan a team or task request is scoped to. Both
// ?plan=ID and ?filter[plan]=ID are accepted.
func planParam(req api2go.Request) string {
	for _, key := range []string{"plan", "filter[plan]"} {
		if v, ok := req.QueryParams[key]; ok && len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}
