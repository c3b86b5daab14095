package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the engine itself, as
// opposed to an expression error reported by the evaluator.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq identifies the affected transition, if any.
	Seq int64

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStopped indicates the engine no longer admits submissions.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeNotExpression indicates text that is not worth evaluating.
	ErrCodeNotExpression RuntimeErrorCode = "NOT_EXPRESSION"

	// ErrCodeCheckpoint indicates the checkpoint after a transition failed.
	ErrCodeCheckpoint RuntimeErrorCode = "CHECKPOINT_FAILED"

	// ErrCodeInvalidSubmission indicates a submission without a participant.
	ErrCodeInvalidSubmission RuntimeErrorCode = "INVALID_SUBMISSION"
)

var (
	// ErrStopped is returned for submissions that arrive after, or were
	// still queued at, shutdown.
	ErrStopped = &RuntimeError{Code: ErrCodeStopped, Message: "engine stopped"}

	// ErrNotExpression is returned by Eval for text that fails the
	// allow-list. Submit ignores such text instead.
	ErrNotExpression = &RuntimeError{Code: ErrCodeNotExpression, Message: "not an expression"}

	// ErrNoParticipant is returned by Submit when ParticipantID is empty.
	// Such a submission never reaches the state machine.
	ErrNoParticipant = &RuntimeError{Code: ErrCodeInvalidSubmission, Message: "submission has no participant"}
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Seq != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s (seq=%d): %v", e.Code, e.Message, e.Seq, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is matches any RuntimeError with the same code, so errors.Is(err,
// ErrStopped) holds for every stop error however it was built.
func (e *RuntimeError) Is(target error) bool {
	var re *RuntimeError
	if errors.As(target, &re) {
		return re.Code == e.Code
	}
	return false
}

// IsStopped returns true if err reports a stopped engine.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}

// NewCheckpointError wraps a checkpoint failure for transition seq.
func NewCheckpointError(seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCheckpoint,
		Message: "checkpoint failed",
		Seq:     seq,
		Err:     err,
	}
}
