package page

import (
	"kitedb/pkg/primitives"
	"kitedb/pkg/tuple"
)

// DbFile is a table's backing file: the access-method contract the page
// store and operators speak. AddTuple and DeleteTuple acquire their page
// locks through the given PageSource and return the pages they dirtied;
// the page store marks those dirty and reinserts them into the cache.
type DbFile interface {
	// ReadPage reads the page with the given id from disk.
	ReadPage(pid primitives.PageID) (Page, error)

	// WritePage persists a page at the location named by its id.
	WritePage(p Page) error

	// AddTuple inserts t somewhere in the file, returning every page it
	// modified.
	AddTuple(tid *primitives.TransactionID, t *tuple.Tuple, src PageSource) ([]Page, error)

	// DeleteTuple removes the tuple named by t.RecordID, returning the
	// modified page.
	DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, src PageSource) (Page, error)

	// Iterator scans every tuple in the file under shared locks obtained
	// from src.
	Iterator(tid *primitives.TransactionID, src PageSource) tuple.Iterator

	// GetID returns this file's table id.
	GetID() primitives.TableID

	// GetTupleDesc returns the schema of the tuples stored in this file.
	GetTupleDesc() *tuple.TupleDescription

	// NumPages returns the number of pages currently in the file.
	NumPages() (primitives.PageNumber, error)

	// Close releases the underlying file handle.
	Close() error
}

// BlockFile is raw page-granular storage: fixed-size blocks addressed by
// page number. BaseFile implements it on an OS file, MemBlockFile on an
// in-memory buffer.
type BlockFile interface {
	ReadBlock(pageNo primitives.PageNumber) ([]byte, error)
	WriteBlock(pageNo primitives.PageNumber, data []byte) error
	AllocateBlock() (primitives.PageNumber, error)
	NumBlocks() (primitives.PageNumber, error)
	Close() error
}
