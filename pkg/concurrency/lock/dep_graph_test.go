package lock

import (
	"testing"

	"kitedb/pkg/primitives"
)

func TestAddEdgeAndCycle(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	if g.HasCycleFrom(t1) {
		t.Error("single edge should not be a cycle")
	}

	g.AddEdge(t2, t1)
	if !g.HasCycleFrom(t1) {
		t.Error("t1 -> t2 -> t1 should be a cycle from t1")
	}
	if !g.HasCycleFrom(t2) {
		t.Error("t1 -> t2 -> t1 should be a cycle from t2")
	}
}

func TestSelfEdgeIgnored(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()

	g.AddEdge(t1, t1)
	if g.HasCycleFrom(t1) {
		t.Error("self edges must be ignored")
	}
}

func TestDiamondIsNotACycle(t *testing.T) {
	// t1 -> t2 -> t4 and t1 -> t3 -> t4: t4 is visited twice but no edge
	// re-enters the traversal stack. A visited-set check would wrongly
	// report a cycle here.
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()
	t4 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	g.AddEdge(t1, t3)
	g.AddEdge(t2, t4)
	g.AddEdge(t3, t4)

	if g.HasCycleFrom(t1) {
		t.Error("diamond must not be reported as a cycle")
	}
}

func TestThreePartyCycle(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	g.AddEdge(t2, t3)
	if g.HasCycleFrom(t1) {
		t.Fatal("chain is not a cycle")
	}

	g.AddEdge(t3, t1)
	if !g.HasCycleFrom(t1) {
		t.Error("t1 -> t2 -> t3 -> t1 should be a cycle")
	}
}

func TestRemoveWaiterBreaksCycle(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	g.AddEdge(t2, t1)
	g.RemoveWaiter(t2)

	if g.HasCycleFrom(t1) {
		t.Error("removing t2's outgoing edges should break the cycle")
	}
}

func TestRemoveTransaction(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	g.AddEdge(t3, t2)
	g.AddEdge(t2, t1)

	g.RemoveTransaction(t2)

	if g.HasCycleFrom(t1) || g.HasCycleFrom(t3) {
		t.Error("no cycle should remain after removing t2 entirely")
	}
	if len(g.Waiters()) != 0 {
		// t1 and t3 only pointed at t2; their adjacency entries are gone.
		t.Errorf("expected no waiters, got %d", len(g.Waiters()))
	}
}
