// Package validation provides pure validation functions for plans, schedules
// and API requests.
//
// This package contains the functional core logic for checking that a plan
// is well formed and that its schedule honours the placement rules. All
// functions are pure (no I/O, no side effects).
//
// # Functions
//
//   - ValidatePlan: Check period, month, task and demand references
//   - ValidateSchedule: Check overlaps, banned periods, horizon and team rules
//   - ValidatePlaceFields, ValidateMoveFields: Validate action request fields
//
// # Usage
//
// The API handlers use the field validators before calling the planner:
//
//	if field, msg := validation.ValidateMoveFields(teamID, &start); field != "" {
//	    // Return 400 Bad Request with msg
//	}
//
// The planner reports plan and schedule violations as data:
//
//	violations := append(validation.ValidatePlan(plan), validation.ValidateSchedule(plan)...)
package validation
