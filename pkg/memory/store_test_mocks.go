package memory

import (
	"fmt"
	"sync"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
	"kitedb/pkg/types"
)

// eventRecorder collects the observable side effects of a scenario — log
// appends, log forces, page writes — in the order they happened.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *eventRecorder) indexOf(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

// spyLog implements TransactionLog by recording every call.
type spyLog struct {
	events *eventRecorder
}

func (l *spyLog) LogBegin(tid *primitives.TransactionID) (primitives.LSN, error) {
	l.events.add("log:begin")
	return 0, nil
}

func (l *spyLog) LogUpdate(tid *primitives.TransactionID, pid primitives.PageID, before, after []byte) (primitives.LSN, error) {
	l.events.add("log:update:" + pid.String())
	return 0, nil
}

func (l *spyLog) LogCommit(tid *primitives.TransactionID) (primitives.LSN, error) {
	l.events.add("log:commit")
	return 0, nil
}

func (l *spyLog) LogAbort(tid *primitives.TransactionID) (primitives.LSN, error) {
	l.events.add("log:abort")
	return 0, nil
}

func (l *spyLog) Force() error {
	l.events.add("log:force")
	return nil
}

func (l *spyLog) Close() error {
	return nil
}

// mockPage is a page.Page whose contents are a small byte slice.
type mockPage struct {
	pid     primitives.PageID
	mu      sync.RWMutex
	dirtier *primitives.TransactionID
	data    []byte
	before  []byte
}

const mockPageBytes = 8

func newMockPage(pid primitives.PageID) *mockPage {
	return &mockPage{
		pid:    pid,
		data:   make([]byte, mockPageBytes),
		before: make([]byte, mockPageBytes),
	}
}

func newMockPageWithData(pid primitives.PageID, data []byte) *mockPage {
	p := newMockPage(pid)
	copy(p.data, data)
	copy(p.before, data)
	return p
}

func (m *mockPage) GetID() primitives.PageID {
	return m.pid
}

func (m *mockPage) IsDirty() *primitives.TransactionID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirtier
}

func (m *mockPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dirty {
		m.dirtier = tid
	} else {
		m.dirtier = nil
	}
}

func (m *mockPage) GetPageData() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

func (m *mockPage) GetBeforeImage() page.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newMockPageWithData(m.pid, m.before)
}

func (m *mockPage) SetBeforeImage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.before, m.data)
}

func (m *mockPage) poke(i int, v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[i] = v
}

// mockDbFile is a page.DbFile over an in-memory map of page images.
// AddTuple bumps a byte on the page named by insertTarget, so tests steer
// which page each insert dirties.
type mockDbFile struct {
	id           primitives.TableID
	mu           sync.Mutex
	stored       map[primitives.PageNumber][]byte
	events       *eventRecorder
	insertTarget primitives.PageNumber
	desc         *tuple.TupleDescription
}

func newMockDbFile(id primitives.TableID, events *eventRecorder) *mockDbFile {
	desc, _ := tuple.NewTupleDescription([]types.Type{types.IntType}, nil)
	return &mockDbFile{
		id:     id,
		stored: make(map[primitives.PageNumber][]byte),
		events: events,
		desc:   desc,
	}
}

func (f *mockDbFile) setInsertTarget(n primitives.PageNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertTarget = n
}

func (f *mockDbFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.stored[pid.PageNo()]; ok {
		return newMockPageWithData(pid, data), nil
	}
	return newMockPage(pid), nil
}

func (f *mockDbFile) WritePage(p page.Page) error {
	f.events.add("file:write:" + p.GetID().String())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[p.GetID().PageNo()] = p.GetPageData()
	return nil
}

func (f *mockDbFile) AddTuple(tid *primitives.TransactionID, t *tuple.Tuple, src page.PageSource) ([]page.Page, error) {
	f.mu.Lock()
	target := f.insertTarget
	f.mu.Unlock()

	pid := page.NewPageDescriptor(f.id, target)
	pg, err := src.GetPage(tid, pid, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	mp, ok := pg.(*mockPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type %T", pg)
	}
	mp.poke(0, mp.GetPageData()[0]+1)
	return []page.Page{mp}, nil
}

func (f *mockDbFile) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, src page.PageSource) (page.Page, error) {
	pg, err := src.GetPage(tid, t.RecordID.PID, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	mp, ok := pg.(*mockPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type %T", pg)
	}
	mp.poke(1, mp.GetPageData()[1]+1)
	return mp, nil
}

func (f *mockDbFile) Iterator(tid *primitives.TransactionID, src page.PageSource) tuple.Iterator {
	return nil
}

func (f *mockDbFile) GetID() primitives.TableID {
	return f.id
}

func (f *mockDbFile) GetTupleDesc() *tuple.TupleDescription {
	return f.desc
}

func (f *mockDbFile) NumPages() (primitives.PageNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return primitives.PageNumber(len(f.stored)), nil
}

func (f *mockDbFile) Close() error {
	return nil
}

var _ page.DbFile = (*mockDbFile)(nil)
