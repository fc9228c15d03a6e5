package pipeline

import (
	"errors"

	"github.com/san-kum/rigid2d/internal/store"
)

// Domain errors for step execution.
var (
	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("pipeline: timestep must be positive and finite")

	// ErrNonFinite indicates a body diverged to NaN/Inf during integration
	// and was reverted to its last valid state and put to sleep.
	ErrNonFinite = errors.New("pipeline: non-finite body state after integration")
)

// StepError wraps a recoverable error with step context.
type StepError struct {
	Step    int
	Body    store.Handle
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
