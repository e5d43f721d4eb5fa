package batch

import "testing"

func TestPoolScratchLifecycle(t *testing.T) {
	pm := newPoolManager()

	stack := pm.acquireStack()
	if len(stack) != 0 {
		t.Fatalf("expected empty stack, got %d elements", len(stack))
	}
	stack = append(stack, 1, "two")
	pm.releaseStack(stack)

	reused := pm.acquireStack()
	if len(reused) != 0 {
		t.Errorf("expected reset stack, got %d elements", len(reused))
	}
	pm.releaseStack(reused)

	pend := pm.acquirePending()
	if len(pend) != 0 {
		t.Fatalf("expected empty pending slice, got %d elements", len(pend))
	}
	pm.releasePending(pend)

	// nil releases are no-ops
	pm.releaseStack(nil)
	pm.releasePending(nil)

	stackHits, stackMisses, pendingHits, pendingMisses := pm.stats()
	if stackHits+stackMisses != 2 {
		t.Errorf("expected 2 stack acquisitions, got %d hits and %d misses", stackHits, stackMisses)
	}
	if pendingHits+pendingMisses != 1 {
		t.Errorf("expected 1 pending acquisition, got %d hits and %d misses", pendingHits, pendingMisses)
	}
}
