// Package store provides SQLite persistence for harvest plans.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// Lookups.
var (
	ErrNotFound = errors.New("not found in plan store")
)

// Plan contents that violate a table constraint.
var (
	// ErrDuplicateID covers plan ids as well as period, month, team and task
	// ids repeated inside one plan.
	ErrDuplicateID   = errors.New("id already used")
	ErrDuplicateSlug = errors.New("plan name already used")
	// ErrForeignKey means a child row names a plan that does not exist.
	ErrForeignKey = errors.New("plan missing for child row")
	// ErrInvalidData means a JSON column (overrides, invalid periods,
	// production, harvest costs, product groups) could not be encoded or decoded.
	ErrInvalidData = errors.New("malformed plan column")
)

// Database lifecycle.
var (
	ErrConnectionFailed = errors.New("cannot open plan database")
	ErrMigrationFailed  = errors.New("plan schema migration failed")
	ErrTxFailed         = errors.New("plan transaction failed")
)

// StoreError records which store call failed and on what.
type StoreError struct {
	Op      string // store method, e.g. "UpdateTaskPlacement"
	Entity  string // plan, period, month, team, task, demand or distance
	ID      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	case e.Entity != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, ID: id, Message: message, Err: err}
}

// IsNotFound reports whether err means the plan, team or task is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err means a plan id or name is already taken.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateID) || errors.Is(err, ErrDuplicateSlug)
}
