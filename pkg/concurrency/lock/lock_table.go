package lock

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"kitedb/pkg/primitives"
)

// pageLockState is the lock record for one page: the set of shared holders,
// an optional exclusive holder, and the condition waiters sleep on.
// Invariant: exclusive != nil implies the shared set is empty.
type pageLockState struct {
	shared    mapset.Set[*primitives.TransactionID]
	exclusive *primitives.TransactionID
	cond      *sync.Cond
	waiters   int
}

func newPageLockState(latch sync.Locker) *pageLockState {
	return &pageLockState{
		shared: mapset.NewThreadUnsafeSet[*primitives.TransactionID](),
		cond:   sync.NewCond(latch),
	}
}

func (st *pageLockState) unlocked() bool {
	return st.exclusive == nil && st.shared.Cardinality() == 0
}

// hasSufficient reports whether tid already holds a lock covering mode.
// An exclusive holder re-reads without touching the shared set.
func (st *pageLockState) hasSufficient(tid *primitives.TransactionID, mode LockType) bool {
	if st.exclusive == tid {
		return true
	}
	return mode == SharedLock && st.shared.Contains(tid)
}

// canGrant reports whether mode can be granted to tid right now, ignoring
// the upgrade path.
func (st *pageLockState) canGrant(tid *primitives.TransactionID, mode LockType) bool {
	if mode == SharedLock {
		return st.exclusive == nil || st.exclusive == tid
	}
	if st.exclusive != nil {
		return st.exclusive == tid
	}
	return st.shared.Cardinality() == 0
}

// canUpgrade reports whether tid's shared lock can be promoted: it must be
// the only shared holder and nobody may hold exclusive.
func (st *pageLockState) canUpgrade(tid *primitives.TransactionID) bool {
	return st.exclusive == nil &&
		st.shared.Cardinality() == 1 &&
		st.shared.Contains(tid)
}

// grant records the lock. For exclusive grants via upgrade the shared claim
// is dropped atomically.
func (st *pageLockState) grant(tid *primitives.TransactionID, mode LockType) {
	if mode == SharedLock {
		st.shared.Add(tid)
		return
	}
	st.shared.Remove(tid)
	st.exclusive = tid
}

// release drops any claim tid has on this page. Returns true if a claim was
// actually dropped.
func (st *pageLockState) release(tid *primitives.TransactionID) bool {
	if st.exclusive == tid {
		st.exclusive = nil
		return true
	}
	if st.shared.Contains(tid) {
		st.shared.Remove(tid)
		return true
	}
	return false
}

// conflictingHolders enumerates the holders tid would wait on for mode.
// A shared request conflicts only with an exclusive holder; an exclusive
// request conflicts with every holder.
func (st *pageLockState) conflictingHolders(tid *primitives.TransactionID, mode LockType) []*primitives.TransactionID {
	var holders []*primitives.TransactionID
	if st.exclusive != nil && st.exclusive != tid {
		holders = append(holders, st.exclusive)
	}
	if mode == ExclusiveLock {
		for _, h := range st.shared.ToSlice() {
			if h != tid {
				holders = append(holders, h)
			}
		}
	}
	return holders
}
