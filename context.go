package batch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Context owns the bookkeeping for one unit of work: the registry of
// deferred values created during its lifetime, the result cache, the
// extension chain, and the pass trace. Applications are expected to call
// Clear at the boundary of each unit of work (e.g. the end of an HTTP
// request) to bound memory growth and prevent stale cross-request data.
type Context struct {
	mu         sync.Mutex
	pending    []AnyDeferred
	results    *resultCache
	extensions []Extension
	trace      *PassTrace

	// resolveMu serializes resolution passes; flight coalesces
	// concurrent Force callers onto one shared run.
	resolveMu   sync.Mutex
	flight      singleflight.Group
	passCounter atomic.Uint64
}

// ContextOption is a modifier for contexts
type ContextOption func(*Context)

// WithExtension returns an option that registers an extension to a context
func WithExtension(ext Extension) ContextOption {
	return func(rc *Context) {
		if err := rc.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithTraceLimit bounds the number of pass nodes kept in the trace
func WithTraceLimit(limit int) ContextOption {
	return func(rc *Context) {
		rc.trace = newPassTrace(limit)
	}
}

// NewContext creates a resolution context with optional configuration
func NewContext(opts ...ContextOption) *Context {
	rc := &Context{
		results:    newResultCache(),
		extensions: []Extension{},
		trace:      newPassTrace(1000),
	}

	for _, opt := range opts {
		opt(rc)
	}

	return rc
}

// UseExtension registers an extension to the context
func (rc *Context) UseExtension(ext Extension) error {
	rc.mu.Lock()
	rc.extensions = append(rc.extensions, ext)
	sort.Slice(rc.extensions, func(i, j int) bool {
		return rc.extensions[i].Order() < rc.extensions[j].Order()
	})
	rc.mu.Unlock()

	return ext.Init(rc)
}

// Trace returns the pass trace for querying
func (rc *Context) Trace() *PassTrace {
	return rc.trace
}

// CacheSize returns the number of cached results
func (rc *Context) CacheSize() int {
	return rc.results.Size()
}

// Clear drops the result cache and every still-pending deferred value.
// Intended to run once per unit-of-work boundary.
func (rc *Context) Clear() {
	rc.mu.Lock()
	rc.pending = nil
	exts := make([]Extension, len(rc.extensions))
	copy(exts, rc.extensions)
	rc.mu.Unlock()

	rc.results.Clear()

	for _, ext := range exts {
		ext.OnClear(rc)
	}
}

// Dispose clears the context and disposes all its extensions
func (rc *Context) Dispose() error {
	rc.Clear()

	rc.mu.Lock()
	exts := make([]Extension, len(rc.extensions))
	copy(exts, rc.extensions)
	rc.mu.Unlock()

	for _, ext := range exts {
		if err := ext.Dispose(rc); err != nil {
			return err
		}
	}

	return nil
}

// Prime seeds the cache for key under spec without invoking the batch
// function. No change is made if an entry already exists; the return value
// reports whether the value was stored. Evict first to overwrite.
func Prime[T any](rc *Context, spec *Spec[T], key any, value T) bool {
	return rc.results.LoadOrStore(entryKey{spec: spec.ID(), key: key}, value)
}

// Evict drops the cached result for key under spec, if any
func Evict[T any](rc *Context, spec *Spec[T], key any) {
	rc.results.Delete(entryKey{spec: spec.ID(), key: key})
}

// ResolveAll forces every deferred value reachable from v to completion and
// returns the rewritten structure. Traversal descends into []any,
// map[string]any, map[any]any, Container implementations, and resolved
// results that themselves contain fresh deferred values, re-scanning until
// no pending values remain.
//
// A structure without deferred values is returned unchanged. Values whose
// batch function never posted their key (or that carry no spec) are left in
// place as *Deferred; see Rewrite.
func ResolveAll(ctx context.Context, rc *Context, v any) (any, error) {
	if err := rc.runToFixpoint(ctx, v); err != nil {
		return nil, err
	}
	return Rewrite(v), nil
}

func (rc *Context) register(d AnyDeferred) {
	rc.mu.Lock()
	rc.pending = append(rc.pending, d)
	rc.mu.Unlock()
}

// snapshotPending prunes resolved values from the registry and returns the
// remaining pending set.
func (rc *Context) snapshotPending() []AnyDeferred {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	kept := rc.pending[:0]
	for _, d := range rc.pending {
		if d.Pending() {
			kept = append(kept, d)
		}
	}
	rc.pending = kept

	out := pools.acquirePending()
	out = append(out, kept...)
	return out
}

func (rc *Context) snapshotExtensions() []Extension {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	exts := make([]Extension, len(rc.extensions))
	copy(exts, rc.extensions)
	return exts
}

// completeFromCache short-circuits a value from the cache before it is ever
// counted as pending. Only cache-enabled specs participate.
func (rc *Context) completeFromCache(d AnyDeferred) bool {
	sp := d.batchSpec()
	if sp == nil || !sp.Cached() {
		return false
	}
	v, ok := rc.results.Load(entryKey{spec: sp.ID(), key: d.Key()})
	if !ok {
		return false
	}
	set, _ := d.complete(v)
	return set
}

// resolveShared runs registry fixpoint resolution, sharing one run between
// concurrent callers.
func (rc *Context) resolveShared(ctx context.Context) error {
	_, err, _ := rc.flight.Do("resolve", func() (any, error) {
		return nil, rc.runToFixpoint(ctx, nil)
	})
	return err
}

// runToFixpoint drives resolution passes until no values are pending or a
// pass makes no progress. When structure is non-nil the pending set is
// discovered by traversing it; otherwise the context registry is used.
// Batch functions may produce fresh deferred values nested inside posted
// results, so every iteration re-scans from scratch.
func (rc *Context) runToFixpoint(ctx context.Context, structure any) error {
	rc.resolveMu.Lock()
	defer rc.resolveMu.Unlock()

	for {
		var pend []AnyDeferred
		if structure != nil {
			pend = findPending(structure)
		} else {
			pend = rc.snapshotPending()
		}
		if len(pend) == 0 {
			pools.releasePending(pend)
			return nil
		}

		progressed, err := rc.runPass(ctx, pend)
		pools.releasePending(pend)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}
