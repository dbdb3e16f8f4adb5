package memory

import (
	"log/slog"

	"github.com/sasha-s/go-deadlock"

	"kitedb/pkg/catalog"
	"kitedb/pkg/concurrency/lock"
	"kitedb/pkg/config"
	"kitedb/pkg/dberr"
	"kitedb/pkg/log/wal"
	"kitedb/pkg/logging"
	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
)

// TransactionLog is the slice of the write-ahead log the page store needs:
// append records, force to disk. Tests substitute a spy to observe the
// force-before-write ordering.
type TransactionLog interface {
	LogBegin(tid *primitives.TransactionID) (primitives.LSN, error)
	LogUpdate(tid *primitives.TransactionID, pid primitives.PageID, beforeImage, afterImage []byte) (primitives.LSN, error)
	LogCommit(tid *primitives.TransactionID) (primitives.LSN, error)
	LogAbort(tid *primitives.TransactionID) (primitives.LSN, error)
	Force() error
	Close() error
}

// PageStore is the transactional page cache: a bounded pool of resident
// pages, page-level two-phase locking with deadlock detection, NO-STEAL
// eviction and FORCE commit.
//
// Recovery policy: dirty pages never reach disk (NO-STEAL), so abort is a
// pure in-memory restore from before-images. Commit forces a log record
// carrying each page's before- and after-image, then writes the page, then
// refreshes the before-image (FORCE) — no redo is needed for transactions
// whose commit returned.
//
// Every mutating cache operation runs under the store's latch, so flushes,
// eviction and rollback cannot interleave. The latch is never held while
// calling into the lock manager.
type PageStore struct {
	cat          *catalog.Catalog
	mutex        deadlock.RWMutex
	transactions map[*primitives.TransactionID]*transactionInfo
	lockManager  *lock.LockManager
	cache        PageCache
	capacity     int
	wal          TransactionLog
	log          *slog.Logger
}

// NewPageStore builds a page store from engine configuration, opening the
// write-ahead log at cfg.WALPath.
func NewPageStore(cat *catalog.Catalog, cfg config.Config) (*PageStore, error) {
	w, err := wal.NewWAL(cfg.WALPath, cfg.WALBufferSize)
	if err != nil {
		return nil, dberr.WrapIO("PageStore", "NewPageStore", err)
	}
	return NewPageStoreWith(cat, w, cfg.CachePages), nil
}

// NewPageStoreWith builds a page store over an existing transaction log.
func NewPageStoreWith(cat *catalog.Catalog, log TransactionLog, capacity int) *PageStore {
	return &PageStore{
		cat:          cat,
		transactions: make(map[*primitives.TransactionID]*transactionInfo),
		lockManager:  lock.NewLockManager(),
		cache:        NewClockPageCache(capacity),
		capacity:     capacity,
		wal:          log,
		log:          logging.ForComponent("PageStore"),
	}
}

// GetPage returns the page named by pid with the requested permission,
// blocking until the lock is granted or the wait would deadlock.
//
// Admission happens before lock acquisition: a full cache of dirty pages
// surfaces CacheFull immediately, before the transaction ever sleeps on a
// lock. Because the page is unlocked during that window it may be evicted
// again before the lock lands; the loop re-admits until the locked lookup
// sticks.
func (p *PageStore) GetPage(tid *primitives.TransactionID, pid primitives.PageID, perm page.Permissions) (page.Page, error) {
	if tid == nil {
		return nil, dberr.New(dberr.KindDB, "PageStore", "GetPage", "transaction ID cannot be nil")
	}

	mode := lock.SharedLock
	if perm == page.ReadWrite {
		mode = lock.ExclusiveLock
	}

	for {
		if err := p.admit(pid); err != nil {
			return nil, err
		}

		if err := p.lockManager.Acquire(tid, pid, mode); err != nil {
			return nil, err
		}

		p.mutex.Lock()
		p.trackTransaction(tid)
		pg, ok := p.cache.Get(pid)
		p.mutex.Unlock()
		if ok {
			return pg, nil
		}
		// Evicted between admission and grant. Eviction ignores locks, so
		// this can repeat; the loop re-admits until the lookup finds it.
	}
}

// admit ensures pid is resident, evicting a clean page if the cache is at
// capacity. Fails with CacheFull when every resident page is dirty.
func (p *PageStore) admit(pid primitives.PageID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, ok := p.cache.Peek(pid); ok {
		return nil
	}

	if p.cache.Size() >= p.capacity {
		if err := p.evictOne(); err != nil {
			return err
		}
	}

	dbFile, err := p.cat.FileFor(pid.GetTableID())
	if err != nil {
		return dberr.New(dberr.KindDB, "PageStore", "GetPage",
			"table with ID %d not found", pid.GetTableID())
	}

	pg, err := dbFile.ReadPage(pid)
	if err != nil {
		return dberr.WrapIO("PageStore", "ReadPage", err)
	}

	if err := p.cache.Put(pid, pg); err != nil {
		return dberr.New(dberr.KindCacheFull, "PageStore", "GetPage", "%v", err)
	}
	return nil
}

// evictOne asks the replacer for a victim. The clock sweep only ever
// surrenders clean pages, so a false return means every resident page is
// dirty and the request is CacheFull. Locked clean pages may be evicted —
// their disk copy is identical, so a holder re-reading simply re-admits.
func (p *PageStore) evictOne() error {
	pid, ok := p.cache.EvictOne()
	if !ok {
		return dberr.New(dberr.KindCacheFull, "PageStore", "Evict",
			"all %d resident pages are dirty, cannot evict", p.cache.Size())
	}
	p.log.Debug("evicted page", "page", pid.String())
	return nil
}

// InsertTuple adds t to the named table. The access method acquires its
// write locks through GetPage; every page it reports back is marked dirty
// on behalf of tid and reinserted into the cache.
func (p *PageStore) InsertTuple(tid *primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	if err := p.ensureBegun(tid); err != nil {
		return err
	}

	dbFile, err := p.cat.FileFor(tableID)
	if err != nil {
		return dberr.New(dberr.KindDB, "PageStore", "InsertTuple",
			"table with ID %d not found", tableID)
	}

	modified, err := dbFile.AddTuple(tid, t, p)
	if err != nil {
		return err
	}

	p.markPagesDirty(tid, modified)
	return nil
}

// DeleteTuple removes the tuple named by t.RecordID from its table.
func (p *PageStore) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error {
	if t == nil {
		return dberr.New(dberr.KindDB, "PageStore", "DeleteTuple", "tuple cannot be nil")
	}
	if t.RecordID == nil {
		return dberr.New(dberr.KindDB, "PageStore", "DeleteTuple", "tuple has no record ID")
	}

	if err := p.ensureBegun(tid); err != nil {
		return err
	}

	tableID := t.RecordID.PID.GetTableID()
	dbFile, err := p.cat.FileFor(tableID)
	if err != nil {
		return dberr.New(dberr.KindDB, "PageStore", "DeleteTuple",
			"table with ID %d not found", tableID)
	}

	modified, err := dbFile.DeleteTuple(tid, t, p)
	if err != nil {
		return err
	}

	p.markPagesDirty(tid, []page.Page{modified})
	return nil
}

// CommitTransaction makes tid's changes durable: every page it locked is
// flushed (log record forced, then page written), before-images are
// refreshed to the committed contents, and all locks are released. A second
// commit of the same transaction is a no-op.
func (p *PageStore) CommitTransaction(tid *primitives.TransactionID) error {
	if tid == nil {
		return dberr.New(dberr.KindDB, "PageStore", "Commit", "transaction ID cannot be nil")
	}

	p.mutex.Lock()
	info, exists := p.transactions[tid]
	if !exists {
		p.mutex.Unlock()
		p.lockManager.ReleaseAll(tid)
		return nil
	}
	hasBegun := info.hasBegun
	p.mutex.Unlock()

	// Snapshot outside the latch; the set is stable because tid keeps its
	// locks until ReleaseAll below. Pages dropped earlier through
	// ReleasePage are not in it and are not flushed here.
	touched := p.lockManager.PagesLocked(tid)

	p.mutex.Lock()
	for _, pid := range touched {
		if err := p.flushPage(pid); err != nil {
			p.mutex.Unlock()
			return err
		}
		if pg, ok := p.cache.Peek(pid); ok {
			pg.SetBeforeImage()
		}
	}
	delete(p.transactions, tid)
	p.mutex.Unlock()

	if hasBegun {
		if _, err := p.wal.LogCommit(tid); err != nil {
			return dberr.WrapIO("PageStore", "Commit", err)
		}
	}

	p.lockManager.ReleaseAll(tid)
	p.log.Debug("transaction committed",
		"txn", tid.String(), "age", tid.Age(), "pages", len(touched))
	return nil
}

// AbortTransaction rolls tid back: every resident page it dirtied is
// replaced by its before-image, and all locks are released. Dirty pages
// never reached disk, so nothing is undone there. Idempotent.
func (p *PageStore) AbortTransaction(tid *primitives.TransactionID) error {
	if tid == nil {
		return dberr.New(dberr.KindDB, "PageStore", "Abort", "transaction ID cannot be nil")
	}

	p.mutex.Lock()
	info, exists := p.transactions[tid]
	if !exists {
		p.mutex.Unlock()
		p.lockManager.ReleaseAll(tid)
		return nil
	}
	hasBegun := info.hasBegun
	dirty := info.dirtyPageIDs()
	p.mutex.Unlock()

	if hasBegun {
		if _, err := p.wal.LogAbort(tid); err != nil {
			return dberr.WrapIO("PageStore", "Abort", err)
		}
	}

	p.mutex.Lock()
	for _, pid := range dirty {
		p.restoreBeforeImage(pid, tid)
	}
	delete(p.transactions, tid)
	p.mutex.Unlock()

	p.lockManager.ReleaseAll(tid)
	p.log.Debug("transaction aborted",
		"txn", tid.String(), "age", tid.Age(), "pages", len(dirty))
	return nil
}

// restoreBeforeImage replaces pid's contents with its before-image if it is
// resident and was dirtied by tid. Caller holds the store latch.
func (p *PageStore) restoreBeforeImage(pid primitives.PageID, tid *primitives.TransactionID) {
	pg, ok := p.cache.Peek(pid)
	if !ok {
		return
	}
	if pg.IsDirty() != tid {
		return
	}

	before := pg.GetBeforeImage()
	if before == nil {
		p.log.Warn("no before-image during abort, discarding page",
			"page", pid.String(), "txn", tid.String())
		p.cache.Remove(pid)
		return
	}
	before.MarkDirty(false, nil)
	p.cache.Put(pid, before)
}

// FlushAllPages writes every dirty resident page to disk. Administrative
// only: flushing uncommitted pages breaks NO-STEAL for crash recovery.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range p.cache.GetAll() {
		if err := p.flushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// flushPage logs the page's (before, after) images, forces the log, writes
// the page to its file and clears the dirty bit. Clean or non-resident
// pages are a no-op. Caller holds the store latch.
func (p *PageStore) flushPage(pid primitives.PageID) error {
	pg, ok := p.cache.Peek(pid)
	if !ok {
		return nil
	}

	dirtier := pg.IsDirty()
	if dirtier == nil {
		return nil
	}

	dbFile, err := p.cat.FileFor(pid.GetTableID())
	if err != nil {
		return dberr.New(dberr.KindDB, "PageStore", "Flush",
			"table for page %v not found", pid)
	}

	before := pg.GetBeforeImage().GetPageData()
	after := pg.GetPageData()
	if _, err := p.wal.LogUpdate(dirtier, pid, before, after); err != nil {
		return dberr.WrapIO("PageStore", "Flush", err)
	}
	if err := p.wal.Force(); err != nil {
		return dberr.WrapIO("PageStore", "Flush", err)
	}

	if err := dbFile.WritePage(pg); err != nil {
		return dberr.WrapIO("PageStore", "Flush", err)
	}

	pg.MarkDirty(false, nil)
	return nil
}

// DiscardPage drops pid from the cache without flushing. Used by rollback
// and B-tree page reuse.
func (p *PageStore) DiscardPage(pid primitives.PageID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(pid)
}

// ReleasePage drops tid's lock on pid before end of transaction. Breaking
// two-phase locking this way forfeits isolation on that page; it exists for
// access methods that know a page came up empty.
func (p *PageStore) ReleasePage(tid *primitives.TransactionID, pid primitives.PageID) {
	p.lockManager.Release(tid, pid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (p *PageStore) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	return p.lockManager.HoldsLock(tid, pid)
}

// Close flushes every dirty page and closes the write-ahead log.
func (p *PageStore) Close() error {
	if err := p.FlushAllPages(); err != nil {
		return err
	}
	if err := p.wal.Close(); err != nil {
		return dberr.WrapIO("PageStore", "Close", err)
	}
	return nil
}

// ensureBegun writes tid's BEGIN record before its first logged mutation.
func (p *PageStore) ensureBegun(tid *primitives.TransactionID) error {
	if tid == nil {
		return dberr.New(dberr.KindDB, "PageStore", "Begin", "transaction ID cannot be nil")
	}

	p.mutex.Lock()
	info := p.trackTransaction(tid)
	if info.hasBegun {
		p.mutex.Unlock()
		return nil
	}
	p.mutex.Unlock()

	if _, err := p.wal.LogBegin(tid); err != nil {
		return dberr.WrapIO("PageStore", "Begin", err)
	}

	p.mutex.Lock()
	info.hasBegun = true
	p.mutex.Unlock()
	return nil
}

// trackTransaction returns tid's bookkeeping entry, creating it on first
// contact. Caller holds the store latch.
func (p *PageStore) trackTransaction(tid *primitives.TransactionID) *transactionInfo {
	info, exists := p.transactions[tid]
	if !exists {
		info = newTransactionInfo()
		p.transactions[tid] = info
	}
	return info
}

func (p *PageStore) markPagesDirty(tid *primitives.TransactionID, pages []page.Page) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	info := p.trackTransaction(tid)
	for _, pg := range pages {
		pg.MarkDirty(true, tid)
		pid := pg.GetID()
		if _, resident := p.cache.Peek(pid); !resident {
			// Reinserting may need room; dirty pages stay put regardless.
			if p.cache.Size() >= p.capacity {
				if err := p.evictOne(); err != nil {
					p.log.Warn("cache full while reinserting dirty page", "page", pid.String())
				}
			}
		}
		if err := p.cache.Put(pid, pg); err != nil {
			p.log.Warn("failed to reinsert dirty page", "page", pid.String(), "error", err)
		}
		info.dirtyPages[pid] = true
	}
}

var _ page.PageSource = (*PageStore)(nil)
