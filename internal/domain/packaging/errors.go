package packaging

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a job matches exactly one of them via errors.Is.
var (
	// ErrValidation reports a job rejected before any remote interaction.
	ErrValidation = errors.New("validation failed")
	// ErrLocalPrepare reports a local archiving or hook failure; no remote state exists yet.
	ErrLocalPrepare = errors.New("local preparation failed")
	// ErrTransfer reports a put or get failure: network, authentication or a missing path.
	ErrTransfer = errors.New("transfer failed")
	// ErrRemoteExecution reports a non-zero exit of a remote script step.
	ErrRemoteExecution = errors.New("remote execution failed")
)

// ValidationError describes a missing or malformed job field.
type ValidationError struct {
	// Field is the configuration name of the offending field.
	Field string
	// Reason is an optional explanation; empty means the field is required but missing.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid argument %q: value is required", e.Field)
	}

	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StageError is returned when a pipeline stage aborts the job.
type StageError struct {
	// Stage is the pipeline stage that failed.
	Stage Stage
	// Kind is one of the package error kinds.
	Kind error
	// Step names the remote script step for remote execution failures.
	Step string
	// ExitCode is the remote exit status when known, otherwise zero.
	ExitCode int
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %v: step %q (exit %d): %v", e.Stage, e.Kind, e.Step, e.ExitCode, e.Err)
	}

	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewStageError wraps err as a failure of stage with the given kind.
func NewStageError(stage Stage, kind, err error) *StageError {
	return &StageError{
		Stage: stage,
		Kind:  kind,
		Err:   err,
	}
}
