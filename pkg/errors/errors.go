package errors

import (
	"errors"
	"fmt"
)

// Stage identifies which phase of a report operation failed. Collaborator
// failures are never swallowed or replaced with zero values; they are tagged
// with the stage so callers can distinguish "no data" from "could not
// compute".
type Stage string

const (
	// StageFetch covers reads from the raw tick table and the counterparty
	// activity feed.
	StageFetch Stage = "fetch"

	// StageCompute covers record calculation and assembly.
	StageCompute Stage = "compute"

	// StagePersist covers snapshot writes.
	StagePersist Stage = "persist"
)

// StageError wraps a collaborator failure with the stage and operation that
// produced it.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fetch tags err as a fetch-stage failure.
func Fetch(op string, err error) error {
	return &StageError{Stage: StageFetch, Op: op, Err: err}
}

// Compute tags err as a compute-stage failure.
func Compute(op string, err error) error {
	return &StageError{Stage: StageCompute, Op: op, Err: err}
}

// Persist tags err as a persist-stage failure.
func Persist(op string, err error) error {
	return &StageError{Stage: StagePersist, Op: op, Err: err}
}

// StageOf reports the stage tagged on err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// ValidationError is returned for malformed input, rejected before any store
// mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Validation creates a new ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrRebuildInProgress is returned when a second rebuild is requested while
// one holds the rebuild lock.
var ErrRebuildInProgress = errors.New("rebuild already in progress")
