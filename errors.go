package pipe

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is reported when a unit is written to a closed stage.
	ErrClosed = errors.New("write to closed stage")
	// ErrPanic wraps a panic recovered from a middleware.
	ErrPanic = errors.New("middleware panicked")
	// ErrSkip is a completion outcome, not a failure: the unit is dropped without being forwarded.
	ErrSkip = errors.New("skip unit")
	// ErrSubmit is reported when a unit could not be handed to a worker pool.
	ErrSubmit = errors.New("worker submission failed")
	// ErrInvalidBatchSize is returned when a batch stage is built with a size lower than 1.
	ErrInvalidBatchSize = errors.New("invalid batch size")
	// ErrInvalidSplitter is returned when a split stage is built without a splitter.
	ErrInvalidSplitter = errors.New("invalid splitter")
	// ErrDoubleCompletion is logged when a completion callback is invoked more than once.
	ErrDoubleCompletion = errors.New("completion invoked more than once")
)

func closedError(name string) error {
	return fmt.Errorf("%w %q", ErrClosed, name)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
