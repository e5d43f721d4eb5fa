package batch

import (
	"context"

	"github.com/google/uuid"
)

// Fn receives every pending key for its group in one call and posts
// individual results through the poster. Keys it never posts stay pending.
type Fn[T any] func(ctx context.Context, keys []any, post *Poster[T]) error

// Spec pairs a batch function with its configuration. Two deferred values
// join the same batch group iff they share the same *Spec.
//
// Go closures are not comparable, so each Spec is assigned a stable identity
// at construction. The result cache is keyed by that identity, which means
// distinct specs never see each other's entries even for equal item keys.
// Construct a Spec once per kind of fetch and share it across items.
type Spec[T any] struct {
	id    string
	name  string
	fn    Fn[T]
	cache bool
}

type specConfig struct {
	name  string
	cache bool
}

// SpecOption is a modifier for specs
type SpecOption func(*specConfig)

// WithName sets a human-readable name used by extensions and traces
func WithName(name string) SpecOption {
	return func(cfg *specConfig) {
		cfg.name = name
	}
}

// WithoutCache disables result caching for the spec: every pass that
// includes a key re-invokes the batch function for it.
func WithoutCache() SpecOption {
	return func(cfg *specConfig) {
		cfg.cache = false
	}
}

// NewSpec creates a batch specification with caching enabled by default
func NewSpec[T any](fn Fn[T], opts ...SpecOption) *Spec[T] {
	cfg := &specConfig{cache: true}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Spec[T]{
		id:    uuid.NewString(),
		name:  cfg.name,
		fn:    fn,
		cache: cfg.cache,
	}
	if s.name == "" {
		s.name = "spec-" + s.id[:8]
	}
	return s
}

// ID returns the spec's stable identity
func (s *Spec[T]) ID() string { return s.id }

// Name returns the spec's display name
func (s *Spec[T]) Name() string { return s.name }

// Cached reports whether results are written to the context cache
func (s *Spec[T]) Cached() bool { return s.cache }

// anySpec is the type-erased view the grouping machinery works with
type anySpec interface {
	ID() string
	Name() string
	Cached() bool

	// runBatch invokes the batch function once, funneling every posted
	// result into sink. sink must be safe for concurrent use.
	runBatch(ctx context.Context, keys []any, sink func(key, value any)) error
}

func (s *Spec[T]) runBatch(ctx context.Context, keys []any, sink func(key, value any)) error {
	return s.fn(ctx, keys, &Poster[T]{sink: sink})
}

// Poster is the handle a batch function uses to record results. It may be
// called from any number of worker goroutines spawned by the function.
type Poster[T any] struct {
	sink func(key, value any)
}

// Post records value as the result for every deferred value in the current
// group waiting on key, and caches it when the spec has caching enabled.
// Posting the same key twice keeps the first result.
func (p *Poster[T]) Post(key any, value T) {
	p.sink(key, value)
}
