package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// group is the transient set of pending deferred values sharing one spec
// during one resolution pass. It is discarded after its batch function
// returns; a later pass forms a new group if new values appear.
type group struct {
	spec    anySpec
	keys    []any                 // deduplicated, insertion order
	members map[any][]AnyDeferred // several values may wait on one key

	mu        sync.Mutex
	completed int
	postErr   error
}

func newGroup(spec anySpec) *group {
	return &group{
		spec:    spec,
		members: make(map[any][]AnyDeferred),
	}
}

func (g *group) add(d AnyDeferred) {
	key := d.Key()
	if _, ok := g.members[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.members[key] = append(g.members[key], d)
}

func (g *group) markCompleted() {
	g.mu.Lock()
	g.completed++
	g.mu.Unlock()
}

func (g *group) recordPostErr(err error) {
	g.mu.Lock()
	if g.postErr == nil {
		g.postErr = err
	}
	g.mu.Unlock()
}

func (g *group) stats() (completed int, postErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completed, g.postErr
}

// buildGroups partitions the pending set by spec identity. Values with a
// cached result are completed on the spot and never join a group; values
// without a spec cannot be grouped and stay pending.
func (rc *Context) buildGroups(pend []AnyDeferred) ([]*group, bool) {
	var (
		order      []*group
		progressed bool
	)
	bySpec := make(map[string]*group)
	seen := make(map[AnyDeferred]bool, len(pend))

	for _, d := range pend {
		if seen[d] || !d.Pending() {
			continue
		}
		seen[d] = true

		sp := d.batchSpec()
		if sp == nil {
			continue
		}
		if rc.completeFromCache(d) {
			progressed = true
			continue
		}

		g := bySpec[sp.ID()]
		if g == nil {
			g = newGroup(sp)
			bySpec[sp.ID()] = g
			order = append(order, g)
		}
		g.add(d)
	}

	return order, progressed
}

// runPass executes one resolution pass over the pending set: group by spec,
// invoke each group's batch function exactly once, distribute results.
// Groups run concurrently; the first batch-function error cancels the pass
// and propagates unmodified, while results posted before it stay valid.
func (rc *Context) runPass(ctx context.Context, pend []AnyDeferred) (bool, error) {
	groups, progressed := rc.buildGroups(pend)
	if len(groups) == 0 {
		return progressed, nil
	}

	passID := fmt.Sprintf("pass-%d", rc.passCounter.Add(1))
	exts := rc.snapshotExtensions()
	op := &Operation{Kind: OpPass, Context: rc}
	start := time.Now()

	next := func() (any, error) {
		eg, gctx := errgroup.WithContext(ctx)
		for _, g := range groups {
			g := g
			eg.Go(func() error {
				return rc.executeGroup(gctx, passID, g, exts)
			})
		}
		return nil, eg.Wait()
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	_, err := next()

	node := &TraceNode{
		ID:       passID,
		Kind:     OpPass,
		Groups:   len(groups),
		Start:    start,
		Duration: time.Since(start),
		Status:   TraceSuccess,
	}
	for _, g := range groups {
		completed, _ := g.stats()
		if completed > 0 {
			progressed = true
		}
	}
	if err != nil {
		node.Status = TraceFailed
		node.Err = err
	}
	rc.trace.addNode(node)

	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, rc)
		}
		return progressed, err
	}

	return progressed, nil
}

// executeGroup invokes the group's batch function once with the full
// deduplicated key set, wrapped in the extension chain.
func (rc *Context) executeGroup(ctx context.Context, passID string, g *group, exts []Extension) error {
	op := &Operation{
		Kind:     OpBatch,
		SpecID:   g.spec.ID(),
		SpecName: g.spec.Name(),
		Keys:     g.keys,
		Context:  rc,
	}
	start := time.Now()

	next := func() (any, error) {
		return nil, g.spec.runBatch(ctx, g.keys, func(key, value any) {
			rc.post(g, key, value)
		})
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	_, err := next()

	completed, postErr := g.stats()
	if err == nil {
		err = postErr
	}

	node := &TraceNode{
		ID:       passID + "/" + g.spec.ID(),
		ParentID: passID,
		Kind:     OpBatch,
		Spec:     g.spec.Name(),
		Keys:     len(g.keys),
		Posted:   completed,
		Start:    start,
		Duration: time.Since(start),
		Status:   TraceSuccess,
	}
	if err != nil {
		node.Status = TraceFailed
		node.Err = err
	}
	rc.trace.addNode(node)

	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, rc)
		}
		return err
	}

	return nil
}

// post records value for every member waiting on key and writes the cache
// entry when the spec caches. Safe under concurrent invocation from worker
// goroutines spawned by a batch function: each value's resolved slot and
// each cache entry is written under mutual exclusion.
func (rc *Context) post(g *group, key, value any) {
	for _, d := range g.members[key] {
		set, err := d.complete(value)
		if err != nil {
			g.recordPostErr(err)
			continue
		}
		if set {
			g.markCompleted()
		}
	}

	if g.spec.Cached() {
		// First write wins, matching the resolved-slot invariant
		rc.results.LoadOrStore(entryKey{spec: g.spec.ID(), key: key}, value)
	}
}
