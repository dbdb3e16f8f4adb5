package catalog

import (
	"testing"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/heap"
	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
	"kitedb/pkg/types"
)

func testFile(t *testing.T, name string) *heap.HeapFile {
	t.Helper()
	td, err := tuple.NewTupleDescription([]types.Type{types.IntType}, nil)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	block := page.NewMemBlockFile(primitives.Filepath(name))
	return heap.NewHeapFileOn(block, block.TableID(), td)
}

func TestAddAndLookup(t *testing.T) {
	c := NewCatalog()
	f := testFile(t, "users.dat")

	if err := c.AddTable(f, "users"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	id, err := c.GetTableID("users")
	if err != nil {
		t.Fatalf("GetTableID failed: %v", err)
	}
	if id != f.GetID() {
		t.Errorf("GetTableID = %d, want %d", id, f.GetID())
	}

	got, err := c.FileFor(id)
	if err != nil {
		t.Fatalf("FileFor failed: %v", err)
	}
	if got != page.DbFile(f) {
		t.Error("FileFor returned a different file")
	}
}

func TestLookupUnknown(t *testing.T) {
	c := NewCatalog()

	if _, err := c.FileFor(12345); err == nil {
		t.Error("unknown table id should be an error")
	}
	if _, err := c.GetTableID("nope"); err == nil {
		t.Error("unknown table name should be an error")
	}
}

func TestAddTableValidation(t *testing.T) {
	c := NewCatalog()
	f := testFile(t, "a.dat")

	if err := c.AddTable(nil, "x"); err == nil {
		t.Error("nil file should be rejected")
	}
	if err := c.AddTable(f, ""); err == nil {
		t.Error("empty name should be rejected")
	}
}

func TestReplaceByName(t *testing.T) {
	c := NewCatalog()
	old := testFile(t, "v1.dat")
	neu := testFile(t, "v2.dat")

	c.AddTable(old, "events")
	c.AddTable(neu, "events")

	id, err := c.GetTableID("events")
	if err != nil {
		t.Fatalf("GetTableID failed: %v", err)
	}
	if id != neu.GetID() {
		t.Error("replacement did not take")
	}
	if _, err := c.FileFor(old.GetID()); err == nil {
		t.Error("old file should be unregistered")
	}
}

func TestRemoveTable(t *testing.T) {
	c := NewCatalog()
	f := testFile(t, "tmp.dat")
	c.AddTable(f, "tmp")

	if err := c.RemoveTable("tmp"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := c.GetTableID("tmp"); err == nil {
		t.Error("removed table still resolvable")
	}
	if err := c.RemoveTable("tmp"); err == nil {
		t.Error("removing twice should fail")
	}
}

func TestClear(t *testing.T) {
	c := NewCatalog()
	c.AddTable(testFile(t, "a.dat"), "a")
	c.AddTable(testFile(t, "b.dat"), "b")

	c.Clear()
	if len(c.TableNames()) != 0 {
		t.Error("clear left tables behind")
	}
}
