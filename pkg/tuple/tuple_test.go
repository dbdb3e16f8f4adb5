package tuple_test

import (
	"testing"

	"kitedb/pkg/storage/page"
	"kitedb/pkg/tuple"
	"kitedb/pkg/types"
)

func desc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDescription([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	if err != nil {
		t.Fatalf("failed to build description: %v", err)
	}
	return td
}

func TestTupleDescriptionSize(t *testing.T) {
	td := desc(t)
	want := types.IntType.Size() + types.StringType.Size()
	if td.Size() != want {
		t.Errorf("Size() = %d, want %d", td.Size(), want)
	}
	if td.NumFields() != 2 {
		t.Errorf("NumFields() = %d, want 2", td.NumFields())
	}
}

func TestTupleDescriptionValidation(t *testing.T) {
	if _, err := tuple.NewTupleDescription(nil, nil); err == nil {
		t.Error("empty schema should be rejected")
	}
	if _, err := tuple.NewTupleDescription([]types.Type{types.IntType}, []string{"a", "b"}); err == nil {
		t.Error("mismatched name count should be rejected")
	}
}

func TestSetFieldTypeChecked(t *testing.T) {
	tup := tuple.NewTuple(desc(t))

	if err := tup.SetField(0, types.NewStringField("wrong")); err == nil {
		t.Error("type mismatch should be rejected")
	}
	if err := tup.SetField(0, types.NewIntField(1)); err != nil {
		t.Errorf("valid set failed: %v", err)
	}
	if err := tup.SetField(5, types.NewIntField(1)); err == nil {
		t.Error("out-of-range index should be rejected")
	}
}

func TestTupleSerializeRoundTrip(t *testing.T) {
	td := desc(t)
	tup := tuple.NewTuple(td)
	tup.SetField(0, types.NewIntField(-7))
	tup.SetField(1, types.NewStringField("carol"))

	raw, err := tup.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if len(raw) != td.Size() {
		t.Fatalf("serialized %d bytes, want %d", len(raw), td.Size())
	}

	got, err := tuple.Deserialize(td, raw)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	f0, _ := got.GetField(0)
	f1, _ := got.GetField(1)
	if !f0.Equals(types.NewIntField(-7)) {
		t.Errorf("field 0 = %v, want -7", f0)
	}
	if !f1.Equals(types.NewStringField("carol")) {
		t.Errorf("field 1 = %v, want carol", f1)
	}
}

func TestUnsetFieldsSerializeAsZero(t *testing.T) {
	td := desc(t)
	raw, err := tuple.NewTuple(td).Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	got, err := tuple.Deserialize(td, raw)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	f0, _ := got.GetField(0)
	f1, _ := got.GetField(1)
	if !f0.Equals(types.NewIntField(0)) || !f1.Equals(types.NewStringField("")) {
		t.Errorf("zero tuple = (%v, %v)", f0, f1)
	}
}

func TestRecordIDEquals(t *testing.T) {
	a := &tuple.RecordID{PID: page.NewPageDescriptor(1, 2), Slot: 3}
	b := &tuple.RecordID{PID: page.NewPageDescriptor(1, 2), Slot: 3}
	c := &tuple.RecordID{PID: page.NewPageDescriptor(1, 2), Slot: 4}

	if !a.Equals(b) {
		t.Error("identical record ids should be equal")
	}
	if a.Equals(c) {
		t.Error("different slots should not be equal")
	}
}
