package wal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"kitedb/pkg/primitives"
)

// WAL is the append side of the write-ahead log: it hands out LSNs, chains
// each transaction's records, and forces the log on commit. The recovery
// side (scan/redo/undo) lives outside the storage core.
type WAL struct {
	file       *os.File
	writer     *LogWriter
	activeTxns map[*primitives.TransactionID]primitives.LSN // txn -> last LSN
	mutex      sync.Mutex
}

// NewWAL opens (creating if needed) the log at logPath with the given
// writer buffer size.
func NewWAL(logPath string, bufferSize int) (*WAL, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek to end of WAL: %w", err)
	}

	return &WAL{
		file:       file,
		writer:     NewLogWriter(file, bufferSize, primitives.LSN(pos), primitives.LSN(pos)),
		activeTxns: make(map[*primitives.TransactionID]primitives.LSN),
	}, nil
}

// LogBegin appends a BEGIN record for tid.
func (w *WAL) LogBegin(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.append(&Record{Type: BeginRecord, TxnID: tid.Seq()})
	if err != nil {
		return 0, err
	}
	w.activeTxns[tid] = lsn
	return lsn, nil
}

// LogUpdate appends an UPDATE record carrying the page's before- and
// after-images. Called before the page itself is written to its file.
func (w *WAL) LogUpdate(tid *primitives.TransactionID, pid primitives.PageID, beforeImage, afterImage []byte) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	prev, ok := w.activeTxns[tid]
	if !ok {
		return 0, fmt.Errorf("transaction %v has no BEGIN record", tid)
	}

	lsn, err := w.append(&Record{
		Type:        UpdateRecord,
		TxnID:       tid.Seq(),
		PrevLSN:     prev,
		TableID:     pid.GetTableID(),
		PageNo:      pid.PageNo(),
		BeforeImage: beforeImage,
		AfterImage:  afterImage,
	})
	if err != nil {
		return 0, err
	}
	w.activeTxns[tid] = lsn
	return lsn, nil
}

// LogCommit appends a COMMIT record and forces the log. Once it returns,
// the commit is durable.
func (w *WAL) LogCommit(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	prev, ok := w.activeTxns[tid]
	if !ok {
		return 0, fmt.Errorf("transaction %v has no BEGIN record", tid)
	}

	lsn, err := w.append(&Record{Type: CommitRecord, TxnID: tid.Seq(), PrevLSN: prev})
	if err != nil {
		return 0, err
	}
	if err := w.writer.Force(lsn); err != nil {
		return 0, fmt.Errorf("failed to force commit record to disk: %w", err)
	}
	if err := w.sync(); err != nil {
		return 0, err
	}

	delete(w.activeTxns, tid)
	return lsn, nil
}

// LogAbort appends an ABORT record for tid.
func (w *WAL) LogAbort(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	prev, ok := w.activeTxns[tid]
	if !ok {
		return 0, fmt.Errorf("transaction %v has no BEGIN record", tid)
	}

	lsn, err := w.append(&Record{Type: AbortRecord, TxnID: tid.Seq(), PrevLSN: prev})
	if err != nil {
		return 0, err
	}
	delete(w.activeTxns, tid)
	return lsn, nil
}

// Force pushes every appended record to stable storage.
func (w *WAL) Force() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.writer.Force(w.writer.CurrentLSN()); err != nil {
		return err
	}
	return w.sync()
}

// HasBegun reports whether tid has an open BEGIN record.
func (w *WAL) HasBegun(tid *primitives.TransactionID) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_, ok := w.activeTxns[tid]
	return ok
}

// Close flushes buffered records and closes the log file.
func (w *WAL) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("failed to close WAL writer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL file: %w", err)
	}
	return w.file.Close()
}

func (w *WAL) append(r *Record) (primitives.LSN, error) {
	data, err := r.Serialize()
	if err != nil {
		return 0, err
	}
	return w.writer.Write(data)
}

func (w *WAL) sync() error {
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}
