// Package services provides the behavioral core of the workflow engine:
// template management, execution lifecycle, and document approval chains.
package services

import (
	"errors"

	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// Business logic errors. Validation errors map to HTTP 400, conflicts to 409.
var (
	// Validation errors (400 Bad Request).
	ErrEmptyActions         = errors.New("workflow must have at least one action")
	ErrEmptyUpdate          = errors.New("update payload is empty")
	ErrInvalidTriggerType   = errors.New("invalid trigger type")
	ErrInvalidStatus        = errors.New("invalid status filter")
	ErrInvalidTotalSteps    = errors.New("total steps must be at least 1")
	ErrStepCountMismatch    = errors.New("steps payload does not match total steps")
	ErrWorkflowNameRequired = errors.New("workflow name is required")

	// Business logic conflicts (409 Conflict).
	ErrTemplateInactive         = errors.New("workflow template is inactive")
	ErrExecutionTerminal        = errors.New("execution is already in a terminal state")
	ErrWorkflowAlreadyCompleted = errors.New("document workflow is already completed")
	ErrWorkflowCancelled        = errors.New("document workflow is cancelled")
)

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyActions) ||
		errors.Is(err, ErrEmptyUpdate) ||
		errors.Is(err, ErrInvalidTriggerType) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidTotalSteps) ||
		errors.Is(err, ErrStepCountMismatch) ||
		errors.Is(err, ErrWorkflowNameRequired)
}

// IsConflictError checks if an error is a lifecycle conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTemplateInactive) ||
		errors.Is(err, ErrExecutionTerminal) ||
		errors.Is(err, ErrWorkflowAlreadyCompleted) ||
		errors.Is(err, ErrWorkflowCancelled)
}

// IsNotFoundError checks if an error indicates a missing entity of any kind.
func IsNotFoundError(err error) bool {
	return persistence.IsTemplateNotFound(err) ||
		persistence.IsExecutionNotFound(err) ||
		persistence.IsDocumentWorkflowNotFound(err)
}
