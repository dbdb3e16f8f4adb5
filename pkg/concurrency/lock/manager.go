package lock

import (
	"github.com/sasha-s/go-deadlock"

	mapset "github.com/deckarep/golang-set/v2"

	"kitedb/pkg/dberr"
	"kitedb/pkg/logging"
	"kitedb/pkg/primitives"
)

// LockManager hands out page-level shared/exclusive locks with strict
// two-phase locking semantics. Waiters sleep on a per-page condition
// variable; before sleeping, a waiter enrolls its conflicts in the wait-for
// graph and aborts itself if that closes a cycle.
//
// One latch guards the per-page lock states, the per-transaction page sets
// and the wait-for graph. Nothing long-running happens under it: detection
// is a bounded traversal and waiting releases the latch.
type LockManager struct {
	mu       deadlock.Mutex
	pages    map[primitives.PageID]*pageLockState
	txnPages map[*primitives.TransactionID]mapset.Set[primitives.PageID]
	graph    *WaitsForGraph
}

func NewLockManager() *LockManager {
	return &LockManager{
		pages:    make(map[primitives.PageID]*pageLockState),
		txnPages: make(map[*primitives.TransactionID]mapset.Set[primitives.PageID]),
		graph:    NewWaitsForGraph(),
	}
}

// Acquire blocks until tid holds a mode lock on pid, or fails with an
// Aborted error when waiting would deadlock. Re-entrant requests and
// single-holder shared-to-exclusive upgrades succeed in place.
func (lm *LockManager) Acquire(tid *primitives.TransactionID, pid primitives.PageID, mode LockType) error {
	if tid == nil {
		return dberr.New(dberr.KindDB, "LockManager", "Acquire", "transaction ID cannot be nil")
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	st, ok := lm.pages[pid]
	if !ok {
		st = newPageLockState(&lm.mu)
		lm.pages[pid] = st
	}

	for {
		if st.hasSufficient(tid, mode) {
			lm.graph.RemoveWaiter(tid)
			return nil
		}

		if mode == ExclusiveLock && st.canUpgrade(tid) {
			st.grant(tid, ExclusiveLock)
			lm.recordGrant(tid, pid)
			return nil
		}

		if st.canGrant(tid, mode) {
			st.grant(tid, mode)
			lm.recordGrant(tid, pid)
			return nil
		}

		// Conflict. Refresh this waiter's edges to the current holders,
		// then sleep unless that would close a cycle.
		lm.graph.RemoveWaiter(tid)
		for _, holder := range st.conflictingHolders(tid, mode) {
			lm.graph.AddEdge(tid, holder)
		}

		if lm.graph.HasCycleFrom(tid) {
			lm.graph.RemoveWaiter(tid)
			logging.ForComponent("LockManager").Debug("deadlock detected",
				"txn", tid.String(), "page", pid.String(), "mode", mode.String())
			return dberr.New(dberr.KindAborted, "LockManager", "Acquire",
				"deadlock detected for %v on %v", tid, pid)
		}

		st.waiters++
		st.cond.Wait()
		st.waiters--
	}
}

func (lm *LockManager) recordGrant(tid *primitives.TransactionID, pid primitives.PageID) {
	lm.graph.RemoveWaiter(tid)
	set, ok := lm.txnPages[tid]
	if !ok {
		set = mapset.NewThreadUnsafeSet[primitives.PageID]()
		lm.txnPages[tid] = set
	}
	set.Add(pid)
}

// Release drops any claim tid has on pid and wakes the page's waiters.
// No-op if tid holds nothing there.
func (lm *LockManager) Release(tid *primitives.TransactionID, pid primitives.PageID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.releaseLocked(tid, pid)

	if set, ok := lm.txnPages[tid]; ok {
		set.Remove(pid)
		if set.Cardinality() == 0 {
			delete(lm.txnPages, tid)
		}
	}
}

// ReleaseAll drops every lock tid holds, removes it from the wait-for graph
// and discards its page set. Called on commit and abort.
func (lm *LockManager) ReleaseAll(tid *primitives.TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if set, ok := lm.txnPages[tid]; ok {
		for _, pid := range set.ToSlice() {
			lm.releaseLocked(tid, pid)
		}
		delete(lm.txnPages, tid)
	}
	lm.graph.RemoveTransaction(tid)
}

func (lm *LockManager) releaseLocked(tid *primitives.TransactionID, pid primitives.PageID) {
	st, ok := lm.pages[pid]
	if !ok {
		return
	}
	if st.release(tid) {
		st.cond.Broadcast()
	}
	if st.unlocked() && st.waiters == 0 {
		delete(lm.pages, pid)
	}
}

// HoldsLock reports whether tid's page set contains pid.
func (lm *LockManager) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	set, ok := lm.txnPages[tid]
	return ok && set.Contains(pid)
}

// PagesLocked returns a snapshot of tid's page set: every page it was granted
// a lock on, minus the pages it gave up through Release. Safe to iterate
// while the table keeps moving.
func (lm *LockManager) PagesLocked(tid *primitives.TransactionID) []primitives.PageID {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	set, ok := lm.txnPages[tid]
	if !ok {
		return nil
	}
	return set.ToSlice()
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (lm *LockManager) IsPageLocked(pid primitives.PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	st, ok := lm.pages[pid]
	return ok && !st.unlocked()
}
