package heap

import (
	"fmt"
	"sync"

	"kitedb/pkg/config"
	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
)

// HeapPage stores fixed-width tuples behind a slot-occupancy bitmap and
// implements the page.Page interface.
//
// Page layout:
//
//	[header bitmap][slot 0][slot 1]...[slot N-1][padding]
//
// Each slot holds exactly one serialized tuple; bit i of the header marks
// slot i occupied. The slot count is chosen so that bitmap plus slots fit
// the page: N = floor(pageSize*8 / (tupleSize*8 + 1)).
type HeapPage struct {
	pageID    page.PageDescriptor
	tupleDesc *tuple.TupleDescription
	header    []byte
	tuples    []*tuple.Tuple
	numSlots  primitives.SlotID
	dirtier   *primitives.TransactionID
	oldData   []byte // before-image bytes for rollback
	mutex     sync.RWMutex
}

// NewEmptyHeapPage creates a zeroed page formatted for the given schema.
func NewEmptyHeapPage(pid page.PageDescriptor, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, config.PageSize()), td)
}

// NewHeapPage deserializes raw page bytes into a HeapPage.
func NewHeapPage(pid page.PageDescriptor, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	pageSize := config.PageSize()
	if len(data) != pageSize {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
	}
	hp.numSlots = hp.slotsPerPage()
	hp.header = make([]byte, hp.headerSize())
	hp.tuples = make([]*tuple.Tuple, hp.numSlots)

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	hp.oldData = make([]byte, pageSize)
	copy(hp.oldData, data)
	return hp, nil
}

func (hp *HeapPage) slotsPerPage() primitives.SlotID {
	tupleBits := hp.tupleDesc.Size()*8 + 1
	return primitives.SlotID((config.PageSize() * 8) / tupleBits)
}

func (hp *HeapPage) headerSize() int {
	return (int(hp.numSlots) + 7) / 8
}

func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:hp.headerSize()])

	tupleSize := hp.tupleDesc.Size()
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.slotUsed(i) {
			continue
		}
		offset := hp.headerSize() + int(i)*tupleSize
		t, err := tuple.Deserialize(hp.tupleDesc, data[offset:offset+tupleSize])
		if err != nil {
			return fmt.Errorf("failed to parse tuple in slot %d: %w", i, err)
		}
		t.RecordID = &tuple.RecordID{PID: hp.pageID, Slot: i}
		hp.tuples[i] = t
	}
	return nil
}

func (hp *HeapPage) slotUsed(i primitives.SlotID) bool {
	return hp.header[i/8]&(1<<(i%8)) != 0
}

func (hp *HeapPage) setSlot(i primitives.SlotID, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}

// GetID returns this page's identifier.
func (hp *HeapPage) GetID() primitives.PageID {
	return hp.pageID
}

// IsDirty returns the transaction that last modified this page, or nil.
func (hp *HeapPage) IsDirty() *primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty sets or clears the dirty state on behalf of tid.
func (hp *HeapPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// GetPageData serializes the page to a page-size byte slice.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.serialize()
}

func (hp *HeapPage) serialize() []byte {
	data := make([]byte, config.PageSize())
	copy(data, hp.header)

	tupleSize := hp.tupleDesc.Size()
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if hp.tuples[i] == nil {
			continue
		}
		raw, err := hp.tuples[i].Serialize()
		if err != nil {
			continue
		}
		offset := hp.headerSize() + int(i)*tupleSize
		copy(data[offset:offset+tupleSize], raw)
	}
	return data
}

// GetBeforeImage returns a page holding the contents as of the last commit
// or initial read. The copy never shares storage with the live page.
func (hp *HeapPage) GetBeforeImage() page.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	before, _ := NewHeapPage(hp.pageID, hp.oldData, hp.tupleDesc)
	return before
}

// SetBeforeImage snapshots the current contents as the new before-image.
func (hp *HeapPage) SetBeforeImage() {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = hp.serialize()
}

// GetNumEmptySlots returns how many slots are free.
func (hp *HeapPage) GetNumEmptySlots() primitives.SlotID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	free := primitives.SlotID(0)
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.slotUsed(i) {
			free++
		}
	}
	return free
}

// NumSlots returns the page's slot capacity.
func (hp *HeapPage) NumSlots() primitives.SlotID {
	return hp.numSlots
}

// AddTuple places t in the first free slot and stamps its RecordID.
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	if t == nil {
		return fmt.Errorf("tuple cannot be nil")
	}
	if !t.Desc.Equals(hp.tupleDesc) {
		return fmt.Errorf("tuple schema does not match page schema")
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if hp.slotUsed(i) {
			continue
		}
		hp.setSlot(i, true)
		t.RecordID = &tuple.RecordID{PID: hp.pageID, Slot: i}
		hp.tuples[i] = t
		return nil
	}
	return fmt.Errorf("page is full: no empty slots")
}

// DeleteTuple clears the slot named by t.RecordID.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return fmt.Errorf("tuple has no record ID")
	}
	if !t.RecordID.PID.Equals(hp.pageID) {
		return fmt.Errorf("tuple does not belong to this page")
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	slot := t.RecordID.Slot
	if slot >= hp.numSlots || !hp.slotUsed(slot) {
		return fmt.Errorf("slot %d is not occupied", slot)
	}

	hp.setSlot(slot, false)
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

// GetTuples returns a snapshot of the occupied tuples in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	out := make([]*tuple.Tuple, 0, hp.numSlots)
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if hp.tuples[i] != nil {
			out = append(out, hp.tuples[i])
		}
	}
	return out
}
