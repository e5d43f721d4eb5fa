package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBatch is returned when a deferred value is forced without a
	// batch specification attached.
	ErrNoBatch = errors.New("batch: no batch function attached")

	// ErrBatchAlreadyAssigned is returned when a second specification is
	// attached to the same deferred value.
	ErrBatchAlreadyAssigned = errors.New("batch: batch function already attached")

	// ErrUnresolved is returned when a deferred value's group executed
	// without posting a result for its key and no further progress is
	// possible.
	ErrUnresolved = errors.New("batch: value left unresolved by its batch function")
)

// DeferredError carries the key and spec name of the deferred value an
// operation failed for.
type DeferredError struct {
	Key   any
	Spec  string
	Cause error
}

func (e *DeferredError) Error() string {
	if e.Spec != "" {
		return fmt.Sprintf("deferred error for key %v in %s: %v", e.Key, e.Spec, e.Cause)
	}
	return fmt.Sprintf("deferred error for key %v: %v", e.Key, e.Cause)
}

func (e *DeferredError) Unwrap() error {
	return e.Cause
}

func newDeferredError(key any, spec string, cause error) *DeferredError {
	return &DeferredError{Key: key, Spec: spec, Cause: cause}
}

// SafeTypeAssertion performs safe type assertion with proper error
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
