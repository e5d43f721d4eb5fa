package batch

import (
	"sync"
	"time"
)

// TraceStatus is the terminal state of a recorded operation
type TraceStatus string

const (
	TraceSuccess TraceStatus = "success"
	TraceFailed  TraceStatus = "failed"
)

// TraceNode records one pass or one batch-function execution. Batch nodes
// hang off their pass node via ParentID.
type TraceNode struct {
	ID       string
	ParentID string
	Kind     OperationKind
	Spec     string
	Keys     int
	Posted   int
	Groups   int
	Status   TraceStatus
	Err      error
	Start    time.Time
	Duration time.Duration
}

// PassTrace is a bounded tree of recorded passes. When the limit is
// exceeded the oldest pass and its batch nodes are evicted.
type PassTrace struct {
	mu       sync.RWMutex
	nodes    map[string]*TraceNode
	byParent map[string][]string
	roots    []string
	limit    int
}

func newPassTrace(limit int) *PassTrace {
	return &PassTrace{
		nodes:    make(map[string]*TraceNode),
		byParent: make(map[string][]string),
		roots:    []string{},
		limit:    limit,
	}
}

func (t *PassTrace) addNode(node *TraceNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes[node.ID] = node

	if node.ParentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		t.byParent[node.ParentID] = append(t.byParent[node.ParentID], node.ID)
	}

	if len(t.nodes) > t.limit {
		t.evictOldest()
	}
}

func (t *PassTrace) evictOldest() {
	if len(t.roots) == 0 {
		return
	}

	oldestRoot := t.roots[0]
	t.roots = t.roots[1:]

	t.removeSubtree(oldestRoot)
}

func (t *PassTrace) removeSubtree(nodeID string) {
	delete(t.nodes, nodeID)

	children := t.byParent[nodeID]
	delete(t.byParent, nodeID)

	for _, childID := range children {
		t.removeSubtree(childID)
	}
}

// GetNode returns the node with the given id, or nil
func (t *PassTrace) GetNode(id string) *TraceNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// GetChildren returns the batch nodes recorded under a pass
func (t *PassTrace) GetChildren(id string) []*TraceNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	childIDs := t.byParent[id]
	children := make([]*TraceNode, 0, len(childIDs))
	for _, childID := range childIDs {
		if node, ok := t.nodes[childID]; ok {
			children = append(children, node)
		}
	}
	return children
}

// Roots returns the recorded passes, oldest first
func (t *PassTrace) Roots() []*TraceNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	roots := make([]*TraceNode, 0, len(t.roots))
	for _, id := range t.roots {
		if node, ok := t.nodes[id]; ok {
			roots = append(roots, node)
		}
	}
	return roots
}

// Size returns the number of recorded nodes
func (t *PassTrace) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
