package wal

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := &Record{
		Type:        UpdateRecord,
		TxnID:       42,
		PrevLSN:     100,
		TableID:     7,
		PageNo:      3,
		BeforeImage: []byte{1, 2, 3},
		AfterImage:  []byte{4, 5, 6, 7},
	}

	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}

	if got.Type != UpdateRecord || got.TxnID != 42 || got.PrevLSN != 100 {
		t.Errorf("header mismatch: %+v", got)
	}
	if got.TableID != 7 || got.PageNo != 3 {
		t.Errorf("page identity mismatch: %+v", got)
	}
	if !bytes.Equal(got.BeforeImage, rec.BeforeImage) {
		t.Error("before-image mismatch")
	}
	if !bytes.Equal(got.AfterImage, rec.AfterImage) {
		t.Error("after-image mismatch")
	}
}

func TestControlRecordRoundTrip(t *testing.T) {
	for _, typ := range []RecordType{BeginRecord, CommitRecord, AbortRecord} {
		rec := &Record{Type: typ, TxnID: 9, PrevLSN: 55}
		data, err := rec.Serialize()
		if err != nil {
			t.Fatalf("%v: serialize failed: %v", typ, err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("%v: deserialize failed: %v", typ, err)
		}
		if got.Type != typ || got.TxnID != 9 || got.PrevLSN != 55 {
			t.Errorf("%v: mismatch: %+v", typ, got)
		}
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	rec := &Record{Type: CommitRecord, TxnID: 1}
	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	// Flip a bit in the body.
	data[len(data)-1] ^= 0x01
	if _, err := Deserialize(data); err == nil {
		t.Error("corrupted record should fail checksum verification")
	}
}

func TestDeserializeTruncated(t *testing.T) {
	rec := &Record{
		Type:        UpdateRecord,
		TxnID:       1,
		BeforeImage: []byte{1, 2, 3, 4},
		AfterImage:  []byte{5, 6},
	}
	data, _ := rec.Serialize()

	if _, err := Deserialize(data[:10]); err == nil {
		t.Error("truncated record should be rejected")
	}
}

func TestEmptyImagesAllowed(t *testing.T) {
	rec := &Record{Type: UpdateRecord, TxnID: 1, TableID: 2, PageNo: 0}
	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if len(got.BeforeImage) != 0 || len(got.AfterImage) != 0 {
		t.Error("empty images should round-trip as empty")
	}
}
