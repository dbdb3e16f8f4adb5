package memory

import (
	"kitedb/pkg/primitives"
)

// transactionInfo is the page store's bookkeeping for one in-flight
// transaction: which pages it dirtied and whether its BEGIN record has
// reached the log. When the transaction started is not duplicated here —
// the TransactionID handle itself carries its birth time.
type transactionInfo struct {
	dirtyPages map[primitives.PageID]bool
	hasBegun   bool
}

func newTransactionInfo() *transactionInfo {
	return &transactionInfo{
		dirtyPages: make(map[primitives.PageID]bool),
	}
}

func (ti *transactionInfo) dirtyPageIDs() []primitives.PageID {
	pids := make([]primitives.PageID, 0, len(ti.dirtyPages))
	for pid := range ti.dirtyPages {
		pids = append(pids, pid)
	}
	return pids
}
