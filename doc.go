// Package batch defers and batches keyed data fetches, collapsing
// per-item lookups into a single call per batch function per resolution
// pass.
//
// # Overview
//
// Batch organizes code around three core concepts:
//
//  1. Deferred values: lazy placeholders for a result keyed by an item key
//  2. Specs: the batch function (plus configuration) that resolves a set of
//     pending keys in one call
//  3. Contexts: unit-of-work scopes that own the result cache, group
//     pending values, and drive resolution to a fixpoint
//
// # Basic Usage
//
// Construct a spec once per kind of fetch and share it across items:
//
//	userSpec := batch.NewSpec(func(ctx context.Context, keys []any, post *batch.Poster[*User]) error {
//	    users, err := db.UsersByIDs(ctx, keys)
//	    if err != nil {
//	        return err
//	    }
//	    for _, u := range users {
//	        post.Post(u.ID, u)
//	    }
//	    return nil
//	}, batch.WithName("users"))
//
// Create deferred values while assembling a structure, then force:
//
//	rc := batch.NewContext()
//	defer rc.Clear()
//
//	u1 := batch.Load(rc, 1, userSpec)
//	u2 := batch.Load(rc, 2, userSpec)
//
//	user, err := u1.Force(ctx) // one batch call fetches both keys
//
// Or resolve an arbitrary nested structure in one call:
//
//	posts := []any{
//	    map[string]any{"id": 10, "author": batch.Load(rc, 1, userSpec)},
//	    map[string]any{"id": 11, "author": batch.Load(rc, 2, userSpec)},
//	}
//	materialized, err := batch.ResolveAll(ctx, rc, posts)
//
// # Resolution Passes
//
// A resolution pass groups every pending deferred value by its spec,
// invokes each group's batch function exactly once with the deduplicated
// key set, and distributes posted results. Because a posted result may
// itself contain fresh deferred values (a post resolves to a deferred user,
// which resolves to a deferred organization), resolution re-scans and runs
// further passes until no pending values remain.
//
// Groups within a pass run concurrently. A batch function may also spawn
// its own workers and call Post from any of them; each value's resolved
// slot and each cache entry is written under mutual exclusion.
//
// A batch function must not force deferred values itself: the pass that
// invoked it owns the coordination, and a nested Force would wait on it.
// Post results containing deferred values instead and let the next pass
// resolve them.
//
// # Caching
//
// Results of cache-enabled specs (the default) are cached per context under
// (spec identity, item key). A later deferred value for a cached key
// resolves without invoking the batch function, until Clear. Disable with
// WithoutCache, seed with Prime, drop single entries with Evict.
//
// Contexts are unit-of-work scoped: clear them between requests. The
// middleware package installs a fresh context per HTTP request and clears
// it when the handler returns; WithResolver/FromContext carry the context
// through call chains.
//
// # Errors
//
// Forcing a value without a spec returns ErrNoBatch; attaching a spec twice
// returns ErrBatchAlreadyAssigned. A batch function's error propagates
// unmodified to the caller of the pass that triggered it; results posted
// before the error stay valid and cached. A key the function never posts
// leaves its value pending, and forcing it returns ErrUnresolved.
//
// # Extensions
//
// Extensions hook the resolution lifecycle (Init, Wrap around passes and
// batch executions, OnError, OnClear, Dispose) in a middleware pattern. The
// extensions package ships a logging extension and a trace-debug extension
// that renders the pass trace.
package batch
