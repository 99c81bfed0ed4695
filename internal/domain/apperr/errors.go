// Package apperr defines the error taxonomy shared by the engine and its callers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input rejected before any computation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a state-machine violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a reference to a record that no longer exists.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// Validation builds a ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InvalidIngredientError reports an ingredient whose unit cost cannot be resolved.
type InvalidIngredientError struct {
	IngredientID string
	Reason       string
}

func (e *InvalidIngredientError) Error() string {
	return fmt.Sprintf("invalid ingredient %s: %s", e.IngredientID, e.Reason)
}

func (e *InvalidIngredientError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports an action that the entity's current state does not allow.
type ConflictError struct {
	Entity string
	ID     string
	State  string
	Action string
}

// Conflict builds a ConflictError.
func Conflict(entity, id, state, action string) *ConflictError {
	return &ConflictError{Entity: entity, ID: id, State: state, Action: action}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %s", e.Action, e.Entity, e.ID, e.State)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError reports a missing or soft-deleted record.
type NotFoundError struct {
	Entity string
	ID     string
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
