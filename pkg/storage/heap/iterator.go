package heap

import (
	"fmt"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
)

// fileIterator walks every tuple in a heap file page by page, taking shared
// locks through the page source as it goes.
type fileIterator struct {
	file    *HeapFile
	tid     *primitives.TransactionID
	src     page.PageSource
	pageNo  primitives.PageNumber
	tuples  []*tuple.Tuple
	cursor  int
	numPage primitives.PageNumber
	opened  bool
}

func newFileIterator(hf *HeapFile, tid *primitives.TransactionID, src page.PageSource) *fileIterator {
	return &fileIterator{
		file: hf,
		tid:  tid,
		src:  src,
	}
}

func (it *fileIterator) Open() error {
	n, err := it.file.NumPages()
	if err != nil {
		return err
	}
	it.numPage = n
	it.pageNo = 0
	it.tuples = nil
	it.cursor = 0
	it.opened = true
	return nil
}

func (it *fileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}

	for it.cursor >= len(it.tuples) {
		if it.pageNo >= it.numPage {
			return false, nil
		}
		pid := page.NewPageDescriptor(it.file.GetID(), it.pageNo)
		pg, err := it.src.GetPage(it.tid, pid, page.ReadOnly)
		if err != nil {
			return false, err
		}
		hp, ok := pg.(*HeapPage)
		if !ok {
			return false, fmt.Errorf("unexpected page type %T in heap file", pg)
		}
		it.tuples = hp.GetTuples()
		it.cursor = 0
		it.pageNo++
	}
	return true, nil
}

func (it *fileIterator) Next() (*tuple.Tuple, error) {
	has, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("no more tuples")
	}

	t := it.tuples[it.cursor]
	it.cursor++
	return t, nil
}

func (it *fileIterator) Rewind() error {
	return it.Open()
}

func (it *fileIterator) Close() error {
	it.tuples = nil
	it.opened = false
	return nil
}
