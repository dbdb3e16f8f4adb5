package wal

import (
	"os"
	"path/filepath"
	"testing"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
)

func tempWAL(t *testing.T) (*WAL, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := NewWAL(path, 1024)
	if err != nil {
		t.Fatalf("failed to open WAL: %v", err)
	}
	return w, path
}

func TestBeginUpdateCommitChain(t *testing.T) {
	w, path := tempWAL(t)
	tid := primitives.NewTransactionID()
	pid := page.NewPageDescriptor(1, 0)

	beginLSN, err := w.LogBegin(tid)
	if err != nil {
		t.Fatalf("LogBegin failed: %v", err)
	}
	if !w.HasBegun(tid) {
		t.Error("transaction should be active after BEGIN")
	}

	updateLSN, err := w.LogUpdate(tid, pid, []byte{0}, []byte{1})
	if err != nil {
		t.Fatalf("LogUpdate failed: %v", err)
	}
	if updateLSN <= beginLSN {
		t.Errorf("update LSN %d should follow begin LSN %d", updateLSN, beginLSN)
	}

	commitLSN, err := w.LogCommit(tid)
	if err != nil {
		t.Fatalf("LogCommit failed: %v", err)
	}
	if commitLSN <= updateLSN {
		t.Errorf("commit LSN %d should follow update LSN %d", commitLSN, updateLSN)
	}
	if w.HasBegun(tid) {
		t.Error("transaction should be gone after COMMIT")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// The commit forced everything; the file holds all three records.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	records := decodeAll(t, data)
	if len(records) != 3 {
		t.Fatalf("decoded %d records, want 3", len(records))
	}
	if records[0].Type != BeginRecord || records[1].Type != UpdateRecord || records[2].Type != CommitRecord {
		t.Errorf("record chain = %v %v %v", records[0].Type, records[1].Type, records[2].Type)
	}
	if records[1].PrevLSN != beginLSN || records[2].PrevLSN != updateLSN {
		t.Error("PrevLSN chain broken")
	}
}

func TestCommitForcesToDisk(t *testing.T) {
	w, path := tempWAL(t)
	tid := primitives.NewTransactionID()

	if _, err := w.LogBegin(tid); err != nil {
		t.Fatalf("LogBegin failed: %v", err)
	}
	if _, err := w.LogCommit(tid); err != nil {
		t.Fatalf("LogCommit failed: %v", err)
	}

	// Without Close: the commit alone must have made the records durable.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(decodeAll(t, data)) != 2 {
		t.Error("commit did not force the log to disk")
	}
	w.Close()
}

func TestUpdateWithoutBegin(t *testing.T) {
	w, _ := tempWAL(t)
	defer w.Close()
	tid := primitives.NewTransactionID()

	if _, err := w.LogUpdate(tid, page.NewPageDescriptor(1, 0), nil, nil); err == nil {
		t.Error("update without BEGIN should fail")
	}
	if _, err := w.LogCommit(tid); err == nil {
		t.Error("commit without BEGIN should fail")
	}
}

func TestAbortClosesTransaction(t *testing.T) {
	w, _ := tempWAL(t)
	defer w.Close()
	tid := primitives.NewTransactionID()

	if _, err := w.LogBegin(tid); err != nil {
		t.Fatalf("LogBegin failed: %v", err)
	}
	if _, err := w.LogAbort(tid); err != nil {
		t.Fatalf("LogAbort failed: %v", err)
	}
	if w.HasBegun(tid) {
		t.Error("transaction should be gone after ABORT")
	}
}

func TestUpdateCarriesImages(t *testing.T) {
	w, path := tempWAL(t)
	tid := primitives.NewTransactionID()
	pid := page.NewPageDescriptor(5, 2)

	before := []byte{1, 1, 1}
	after := []byte{2, 2, 2}

	w.LogBegin(tid)
	w.LogUpdate(tid, pid, before, after)
	if err := w.Force(); err != nil {
		t.Fatalf("force failed: %v", err)
	}
	w.Close()

	data, _ := os.ReadFile(path)
	records := decodeAll(t, data)
	upd := records[1]
	if upd.TableID != 5 || upd.PageNo != 2 {
		t.Errorf("update names page (%d, %d), want (5, 2)", upd.TableID, upd.PageNo)
	}
	if string(upd.BeforeImage) != string(before) || string(upd.AfterImage) != string(after) {
		t.Error("images did not survive the log")
	}
}

// decodeAll walks a log image record by record.
func decodeAll(t *testing.T, data []byte) []*Record {
	t.Helper()
	var out []*Record
	for len(data) > 0 {
		rec, err := Deserialize(data)
		if err != nil {
			t.Fatalf("corrupt log after %d records: %v", len(out), err)
		}
		raw, _ := rec.Serialize()
		data = data[len(raw):]
		out = append(out, rec)
	}
	return out
}
