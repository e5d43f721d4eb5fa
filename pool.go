package batch

import (
	"sync"
)

// poolManager reuses the scratch slices allocated on every pass: traversal
// stacks and pending-value snapshots.
type poolManager struct {
	stackPool   sync.Pool
	pendingPool sync.Pool

	metrics poolMetrics
}

type poolMetrics struct {
	mu            sync.RWMutex
	stackHits     uint64
	stackMisses   uint64
	pendingHits   uint64
	pendingMisses uint64
}

func newPoolManager() *poolManager {
	return &poolManager{
		stackPool: sync.Pool{
			New: func() any {
				return make([]any, 0, 32)
			},
		},
		pendingPool: sync.Pool{
			New: func() any {
				return make([]AnyDeferred, 0, 32)
			},
		},
	}
}

func (pm *poolManager) acquireStack() []any {
	stack, ok := pm.stackPool.Get().([]any)
	if ok {
		stack = stack[:0]

		pm.metrics.mu.Lock()
		pm.metrics.stackHits++
		pm.metrics.mu.Unlock()
	} else {
		stack = make([]any, 0, 32)

		pm.metrics.mu.Lock()
		pm.metrics.stackMisses++
		pm.metrics.mu.Unlock()
	}

	return stack
}

func (pm *poolManager) releaseStack(stack []any) {
	if stack == nil {
		return
	}
	//nolint:staticcheck // slices are reset on acquire
	pm.stackPool.Put(stack[:0])
}

func (pm *poolManager) acquirePending() []AnyDeferred {
	slice, ok := pm.pendingPool.Get().([]AnyDeferred)
	if ok {
		slice = slice[:0]

		pm.metrics.mu.Lock()
		pm.metrics.pendingHits++
		pm.metrics.mu.Unlock()
	} else {
		slice = make([]AnyDeferred, 0, 32)

		pm.metrics.mu.Lock()
		pm.metrics.pendingMisses++
		pm.metrics.mu.Unlock()
	}

	return slice
}

func (pm *poolManager) releasePending(slice []AnyDeferred) {
	if slice == nil {
		return
	}
	//nolint:staticcheck // slices are reset on acquire
	pm.pendingPool.Put(slice[:0])
}

// stats returns a snapshot of the pool hit/miss counters
func (pm *poolManager) stats() (stackHits, stackMisses, pendingHits, pendingMisses uint64) {
	pm.metrics.mu.RLock()
	defer pm.metrics.mu.RUnlock()
	return pm.metrics.stackHits, pm.metrics.stackMisses, pm.metrics.pendingHits, pm.metrics.pendingMisses
}

// pools is the process-wide pool manager shared by all contexts
var pools = newPoolManager()
