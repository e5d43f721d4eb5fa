package batch

import (
	"context"
	"sync"
)

// AnyDeferred is the type-erased view of a deferred value used by grouping
// and traversal.
type AnyDeferred interface {
	// Key returns the item key the value was created with
	Key() any

	// Pending reports whether the value has no resolved result yet
	Pending() bool

	// Resolved returns the materialized result, if any
	Resolved() (any, bool)

	batchSpec() anySpec

	// complete stores the result. The first write wins; set reports
	// whether this call stored the value.
	complete(value any) (set bool, err error)
}

// Deferred is a lazy placeholder for a result that will be fetched in a
// batch together with every other pending value sharing its spec.
type Deferred[T any] struct {
	key any
	rc  *Context

	mu   sync.Mutex
	sp   *Spec[T]
	done bool
	val  T
}

// New creates an unresolved deferred value for key, registered with rc.
// The value cannot be forced until a spec is attached.
func New[T any](rc *Context, key any) *Deferred[T] {
	d := &Deferred[T]{key: key, rc: rc}
	rc.register(d)
	return d
}

// Load creates a deferred value for key with spec already attached
func Load[T any](rc *Context, key any, spec *Spec[T]) *Deferred[T] {
	d := New[T](rc, key)
	d.sp = spec
	return d
}

// Key returns the item key the value was created with
func (d *Deferred[T]) Key() any { return d.key }

// Attach supplies the batch specification that will resolve this value.
// It may be called at most once per value.
func (d *Deferred[T]) Attach(spec *Spec[T]) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sp != nil {
		return newDeferredError(d.key, d.sp.Name(), ErrBatchAlreadyAssigned)
	}
	d.sp = spec
	return nil
}

// Peek returns the resolved result without forcing
func (d *Deferred[T]) Peek() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.done {
		var zero T
		return zero, false
	}
	return d.val, true
}

// Pending reports whether the value has no resolved result yet
func (d *Deferred[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.done
}

// Resolved returns the materialized result, if any
func (d *Deferred[T]) Resolved() (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.done {
		return nil, false
	}
	return d.val, true
}

// Force blocks until the value is resolved and returns the result.
//
// A resolved value returns immediately with no side effect. Otherwise Force
// drives the owning context through resolution passes covering every
// pending value registered with it, so sibling values created from the same
// spec are fetched in the same batch call. Concurrent Force callers share a
// single pass.
//
// Force returns ErrNoBatch when no spec is attached, the batch function's
// error unmodified when it fails, and ErrUnresolved when the function
// executed without posting this value's key.
func (d *Deferred[T]) Force(ctx context.Context) (T, error) {
	var zero T

	if v, ok := d.Peek(); ok {
		return v, nil
	}

	d.mu.Lock()
	sp := d.sp
	d.mu.Unlock()
	if sp == nil {
		return zero, newDeferredError(d.key, "", ErrNoBatch)
	}

	if d.rc.completeFromCache(d) {
		if v, ok := d.Peek(); ok {
			return v, nil
		}
	}

	// Two attempts: a coalesced pass may have snapshotted its pending set
	// before this value registered. The second run starts strictly after
	// the first returned, so it sees the value; if the value is still
	// pending afterwards its key was never posted.
	for attempt := 0; attempt < 2; attempt++ {
		if err := d.rc.resolveShared(ctx); err != nil {
			return zero, err
		}
		if v, ok := d.Peek(); ok {
			return v, nil
		}
	}

	return zero, newDeferredError(d.key, sp.Name(), ErrUnresolved)
}

func (d *Deferred[T]) batchSpec() anySpec {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sp == nil {
		return nil
	}
	return d.sp
}

func (d *Deferred[T]) complete(value any) (bool, error) {
	typed, err := SafeTypeAssertion[T](value)
	if err != nil {
		return false, newDeferredError(d.key, "", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return false, nil
	}
	d.done = true
	d.val = typed
	return true, nil
}
