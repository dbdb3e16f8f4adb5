package heap

import (
	"fmt"
	"io"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
)

// HeapFile is a collection of heap pages in a single block file. It
// implements page.DbFile; all page access during tuple mutation goes through
// the PageSource so the caller's transaction takes the proper locks.
type HeapFile struct {
	block     page.BlockFile
	tableID   primitives.TableID
	tupleDesc *tuple.TupleDescription
}

// NewHeapFile opens (creating if needed) a disk-backed heap file.
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	base, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}
	return &HeapFile{
		block:     base,
		tableID:   base.TableID(),
		tupleDesc: td,
	}, nil
}

// NewHeapFileOn builds a heap file over an existing block file. Tests use
// this with a MemBlockFile.
func NewHeapFileOn(block page.BlockFile, tableID primitives.TableID, td *tuple.TupleDescription) *HeapFile {
	return &HeapFile{
		block:     block,
		tableID:   tableID,
		tupleDesc: td,
	}
}

func (hf *HeapFile) GetID() primitives.TableID {
	return hf.tableID
}

func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

func (hf *HeapFile) NumPages() (primitives.PageNumber, error) {
	return hf.block.NumBlocks()
}

// ReadPage reads the named page from storage. Reading one page past the end
// returns a fresh empty page, so callers can extend the file through the
// cache.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	desc, err := hf.checkPageID(pid)
	if err != nil {
		return nil, err
	}

	data, err := hf.block.ReadBlock(desc.PageNo())
	if err != nil {
		if err == io.EOF {
			return NewEmptyHeapPage(desc, hf.tupleDesc)
		}
		return nil, fmt.Errorf("failed to read page data: %w", err)
	}
	return NewHeapPage(desc, data, hf.tupleDesc)
}

func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}
	return hf.block.WriteBlock(p.GetID().PageNo(), p.GetPageData())
}

// AddTuple walks existing pages looking for a free slot, extending the file
// by one page when all are full. Pages are fetched with write permission via
// src, so the transaction ends up holding exclusive locks on every page it
// touched.
func (hf *HeapFile) AddTuple(tid *primitives.TransactionID, t *tuple.Tuple, src page.PageSource) ([]page.Page, error) {
	if t == nil {
		return nil, fmt.Errorf("tuple cannot be nil")
	}
	if !t.Desc.Equals(hf.tupleDesc) {
		return nil, fmt.Errorf("tuple schema does not match table schema")
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for n := primitives.PageNumber(0); n < numPages; n++ {
		pid := page.NewPageDescriptor(hf.tableID, n)
		pg, err := src.GetPage(tid, pid, page.ReadWrite)
		if err != nil {
			return nil, err
		}

		hp, ok := pg.(*HeapPage)
		if !ok {
			return nil, fmt.Errorf("unexpected page type %T in heap file", pg)
		}
		if hp.GetNumEmptySlots() == 0 {
			continue
		}
		if err := hp.AddTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	// Every existing page is full; grow the file by one page.
	newNo, err := hf.block.AllocateBlock()
	if err != nil {
		return nil, err
	}

	pid := page.NewPageDescriptor(hf.tableID, newNo)
	pg, err := src.GetPage(tid, pid, page.ReadWrite)
	if err != nil {
		return nil, err
	}
	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type %T in heap file", pg)
	}
	if err := hp.AddTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{hp}, nil
}

// DeleteTuple removes the tuple at t.RecordID from its page.
func (hf *HeapFile) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, src page.PageSource) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, fmt.Errorf("tuple has no record ID")
	}
	if t.RecordID.PID.GetTableID() != hf.tableID {
		return nil, fmt.Errorf("tuple does not belong to this table")
	}

	pg, err := src.GetPage(tid, t.RecordID.PID, page.ReadWrite)
	if err != nil {
		return nil, err
	}
	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type %T in heap file", pg)
	}
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator scans every tuple in the file under shared locks.
func (hf *HeapFile) Iterator(tid *primitives.TransactionID, src page.PageSource) tuple.Iterator {
	return newFileIterator(hf, tid, src)
}

func (hf *HeapFile) Close() error {
	return hf.block.Close()
}

func (hf *HeapFile) checkPageID(pid primitives.PageID) (page.PageDescriptor, error) {
	if pid == nil {
		return page.PageDescriptor{}, fmt.Errorf("page ID cannot be nil")
	}
	if pid.GetTableID() != hf.tableID {
		return page.PageDescriptor{}, fmt.Errorf("page ID table mismatch: %d != %d",
			pid.GetTableID(), hf.tableID)
	}
	if desc, ok := pid.(page.PageDescriptor); ok {
		return desc, nil
	}
	return page.NewPageDescriptor(pid.GetTableID(), pid.PageNo()), nil
}

var _ page.DbFile = (*HeapFile)(nil)
