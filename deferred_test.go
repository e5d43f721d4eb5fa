package batch

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func intsSpec(calls *int, seenKeys *[]any) *Spec[int] {
	return NewSpec(func(ctx context.Context, keys []any, post *Poster[int]) error {
		*calls++
		if seenKeys != nil {
			*seenKeys = append([]any{}, keys...)
		}
		for _, key := range keys {
			post.Post(key, key.(int)*10)
		}
		return nil
	}, WithName("tens"))
}

func TestForceBatchesAllPending(t *testing.T) {
	rc := NewContext()

	var calls int
	var keys []any
	spec := intsSpec(&calls, &keys)

	v1 := Load(rc, 1, spec)
	v2 := Load(rc, 2, spec)
	v3 := Load(rc, 3, spec)

	got, err := v1.Force(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 10 {
		t.Errorf("expected 10, got %d", got)
	}

	if calls != 1 {
		t.Fatalf("expected 1 batch call, got %d", calls)
	}

	ints := make([]int, 0, len(keys))
	for _, k := range keys {
		ints = append(ints, k.(int))
	}
	sort.Ints(ints)
	if len(ints) != 3 || ints[0] != 1 || ints[1] != 2 || ints[2] != 3 {
		t.Errorf("expected keys {1,2,3}, got %v", keys)
	}

	// Siblings resolved by the same pass without further calls
	for want, d := range map[int]*Deferred[int]{20: v2, 30: v3} {
		got, err := d.Force(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 batch call after sibling forces, got %d", calls)
	}
}

func TestForceResolvedIsNoop(t *testing.T) {
	rc := NewContext()

	var calls int
	spec := intsSpec(&calls, nil)

	d := Load(rc, 7, spec)
	if _, err := d.Force(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := d.Force(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 70 {
		t.Errorf("expected 70, got %d", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 batch call, got %d", calls)
	}
}

func TestForceWithoutSpec(t *testing.T) {
	rc := NewContext()

	d := New[int](rc, 1)
	_, err := d.Force(context.Background())
	if !errors.Is(err, ErrNoBatch) {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}

	var derr *DeferredError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeferredError, got %T", err)
	}
	if derr.Key != 1 {
		t.Errorf("expected key 1, got %v", derr.Key)
	}
}

func TestAttachTwice(t *testing.T) {
	rc := NewContext()

	var callsA, callsB int
	specA := intsSpec(&callsA, nil)
	specB := intsSpec(&callsB, nil)

	d := New[int](rc, 1)
	if err := d.Attach(specA); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := d.Attach(specB)
	if !errors.Is(err, ErrBatchAlreadyAssigned) {
		t.Fatalf("expected ErrBatchAlreadyAssigned, got %v", err)
	}
	if callsA != 0 || callsB != 0 {
		t.Errorf("expected neither batch function executed, got %d and %d", callsA, callsB)
	}
}

func TestSharedKeyResolvesAllWaiters(t *testing.T) {
	rc := NewContext()

	var calls int
	var keys []any
	spec := NewSpec(func(ctx context.Context, keys2 []any, post *Poster[int]) error {
		calls++
		keys = append([]any{}, keys2...)
		for _, key := range keys2 {
			post.Post(key, key.(int)*10)
		}
		return nil
	}, WithoutCache())

	v1 := Load(rc, 5, spec)
	v2 := Load(rc, 5, spec)

	if _, err := v1.Force(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 batch call, got %d", calls)
	}
	if len(keys) != 1 {
		t.Errorf("expected deduplicated key set of 1, got %v", keys)
	}

	got, ok := v2.Peek()
	if !ok {
		t.Fatal("expected second waiter resolved by the same post")
	}
	if got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestForceUnpostedKey(t *testing.T) {
	rc := NewContext()

	spec := NewSpec(func(ctx context.Context, keys []any, post *Poster[int]) error {
		for _, key := range keys {
			if key.(int)%2 == 0 {
				post.Post(key, key.(int)*10)
			}
		}
		return nil
	}, WithName("evens-only"))

	even := Load(rc, 2, spec)
	odd := Load(rc, 3, spec)

	got, err := even.Force(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 20 {
		t.Errorf("expected 20, got %d", got)
	}

	_, err = odd.Force(context.Background())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if !odd.Pending() {
		t.Error("expected unposted value to stay pending")
	}
}

func TestPeek(t *testing.T) {
	rc := NewContext()

	var calls int
	spec := intsSpec(&calls, nil)

	d := Load(rc, 1, spec)
	if _, ok := d.Peek(); ok {
		t.Fatal("expected no result before forcing")
	}
	if calls != 0 {
		t.Fatalf("expected Peek to have no side effect, got %d calls", calls)
	}

	if _, err := d.Force(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, ok := d.Peek()
	if !ok || got != 10 {
		t.Errorf("expected (10, true), got (%d, %v)", got, ok)
	}
}
