package lock

import (
	"kitedb/pkg/primitives"
)

// WaitsForGraph tracks blocked-on relations between transactions: an edge
// waiter -> holder means the waiter is blocked on a lock the holder owns.
// A cycle through the requesting transaction is a deadlock.
//
// The graph is not self-synchronized; the lock manager mutates and traverses
// it while holding its own latch, and nothing long-running happens inside.
type WaitsForGraph struct {
	edges map[*primitives.TransactionID]map[*primitives.TransactionID]bool
}

func NewWaitsForGraph() *WaitsForGraph {
	return &WaitsForGraph{
		edges: make(map[*primitives.TransactionID]map[*primitives.TransactionID]bool),
	}
}

// AddEdge records that waiter is blocked on holder.
func (g *WaitsForGraph) AddEdge(waiter, holder *primitives.TransactionID) {
	if waiter == holder {
		return
	}
	if g.edges[waiter] == nil {
		g.edges[waiter] = make(map[*primitives.TransactionID]bool)
	}
	g.edges[waiter][holder] = true
}

// RemoveWaiter drops every outgoing edge of tid. Called when tid acquires
// its lock or re-evaluates its conflicts.
func (g *WaitsForGraph) RemoveWaiter(tid *primitives.TransactionID) {
	delete(g.edges, tid)
}

// RemoveTransaction drops tid entirely: its outgoing edges and every edge
// pointing at it. Called when tid commits or aborts.
func (g *WaitsForGraph) RemoveTransaction(tid *primitives.TransactionID) {
	delete(g.edges, tid)
	for waiter, holders := range g.edges {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(g.edges, waiter)
		}
	}
}

// HasCycleFrom reports whether a cycle is reachable from start. Depth-first
// search with an explicit recursion stack: a back edge into the stack is a
// cycle, a merely revisited vertex is not.
func (g *WaitsForGraph) HasCycleFrom(start *primitives.TransactionID) bool {
	visited := make(map[*primitives.TransactionID]bool)
	onStack := make(map[*primitives.TransactionID]bool)
	return g.dfs(start, visited, onStack)
}

func (g *WaitsForGraph) dfs(tid *primitives.TransactionID, visited, onStack map[*primitives.TransactionID]bool) bool {
	visited[tid] = true
	onStack[tid] = true

	for next := range g.edges[tid] {
		if onStack[next] {
			return true
		}
		if !visited[next] && g.dfs(next, visited, onStack) {
			return true
		}
	}

	onStack[tid] = false
	return false
}

// Waiters returns every transaction with at least one outgoing edge.
func (g *WaitsForGraph) Waiters() []*primitives.TransactionID {
	out := make([]*primitives.TransactionID, 0, len(g.edges))
	for tid := range g.edges {
		out = append(out, tid)
	}
	return out
}
