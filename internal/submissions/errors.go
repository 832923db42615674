package submissions

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("submission not found")
	ErrForbidden = errors.New("submission belongs to another user")
	// ErrStageConflict is returned when a guarded write finds the row at a different stage.
	ErrStageConflict     = errors.New("submission stage changed concurrently")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDispatch          = errors.New("failed to schedule processing")
)

// ValidationError is an upload rejection with a user-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NotReadyError is returned for artifact reads while the pipeline is still running.
type NotReadyError struct {
	Stage      Stage
	RetryAfter time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("submission is still processing (stage %s)", e.Stage)
}

// FailedError is returned for artifact reads of a failed submission.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string {
	return "submission processing failed: " + e.Reason
}
