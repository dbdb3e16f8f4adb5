package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"kitedb/pkg/primitives"
)

// RecordType enumerates write-ahead log record kinds.
type RecordType uint8

const (
	BeginRecord RecordType = iota
	CommitRecord
	AbortRecord
	UpdateRecord
)

func (rt RecordType) String() string {
	switch rt {
	case BeginRecord:
		return "BEGIN"
	case CommitRecord:
		return "COMMIT"
	case AbortRecord:
		return "ABORT"
	case UpdateRecord:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// Record is one entry in the write-ahead log. Update records carry the
// page's before- and after-images; PrevLSN chains a transaction's records.
type Record struct {
	Type    RecordType
	TxnID   uint64
	PrevLSN primitives.LSN

	// Update records only.
	TableID     primitives.TableID
	PageNo      primitives.PageNumber
	BeforeImage []byte
	AfterImage  []byte
}

// Serialized layout:
//
//	[size:4][checksum:4][type:1][txn:8][prevLSN:8]
//	update records append: [table:8][pageNo:8][beforeLen:4][before][afterLen:4][after]
//
// size covers the whole record including itself; checksum is murmur3 over
// everything after the checksum field.
const recordHeaderSize = 4 + 4 + 1 + 8 + 8

// Serialize encodes the record for appending to the log.
func (r *Record) Serialize() ([]byte, error) {
	var body bytes.Buffer
	body.WriteByte(byte(r.Type))
	writeUint64(&body, r.TxnID)
	writeUint64(&body, uint64(r.PrevLSN))

	if r.Type == UpdateRecord {
		writeUint64(&body, uint64(r.TableID))
		writeUint64(&body, uint64(r.PageNo))
		writeUint32(&body, uint32(len(r.BeforeImage)))
		body.Write(r.BeforeImage)
		writeUint32(&body, uint32(len(r.AfterImage)))
		body.Write(r.AfterImage)
	}

	total := 8 + body.Len()
	out := make([]byte, 8, total)
	binary.BigEndian.PutUint32(out[0:4], uint32(total))
	binary.BigEndian.PutUint32(out[4:8], murmur3.Sum32(body.Bytes()))
	return append(out, body.Bytes()...), nil
}

// Deserialize decodes one record, verifying size and checksum.
func Deserialize(data []byte) (*Record, error) {
	if len(data) < recordHeaderSize {
		return nil, fmt.Errorf("log record too short: %d bytes", len(data))
	}

	size := binary.BigEndian.Uint32(data[0:4])
	if int(size) > len(data) {
		return nil, fmt.Errorf("log record truncated: header says %d, have %d", size, len(data))
	}
	data = data[:size]

	checksum := binary.BigEndian.Uint32(data[4:8])
	body := data[8:]
	if murmur3.Sum32(body) != checksum {
		return nil, fmt.Errorf("log record checksum mismatch")
	}

	r := &Record{
		Type:    RecordType(body[0]),
		TxnID:   binary.BigEndian.Uint64(body[1:9]),
		PrevLSN: primitives.LSN(binary.BigEndian.Uint64(body[9:17])),
	}

	if r.Type == UpdateRecord {
		rest := body[17:]
		if len(rest) < 24 {
			return nil, fmt.Errorf("update record truncated")
		}
		r.TableID = primitives.TableID(binary.BigEndian.Uint64(rest[0:8]))
		r.PageNo = primitives.PageNumber(binary.BigEndian.Uint64(rest[8:16]))

		beforeLen := binary.BigEndian.Uint32(rest[16:20])
		rest = rest[20:]
		if len(rest) < int(beforeLen)+4 {
			return nil, fmt.Errorf("update record truncated")
		}
		r.BeforeImage = append([]byte(nil), rest[:beforeLen]...)
		rest = rest[beforeLen:]

		afterLen := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		if len(rest) < int(afterLen) {
			return nil, fmt.Errorf("update record truncated")
		}
		r.AfterImage = append([]byte(nil), rest[:afterLen]...)
	}
	return r, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
