package tuple

import (
	"bytes"
	"fmt"
	"strings"

	"kitedb/pkg/primitives"
	"kitedb/pkg/types"
)

// TupleDescription is the schema of the tuples stored in one table file:
// an ordered list of field types with optional column names.
type TupleDescription struct {
	fieldTypes []types.Type
	fieldNames []string
}

func NewTupleDescription(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) == 0 {
		return nil, fmt.Errorf("tuple description must have at least one field")
	}
	if fieldNames != nil && len(fieldNames) != len(fieldTypes) {
		return nil, fmt.Errorf("field name count %d does not match type count %d",
			len(fieldNames), len(fieldTypes))
	}
	return &TupleDescription{
		fieldTypes: append([]types.Type(nil), fieldTypes...),
		fieldNames: append([]string(nil), fieldNames...),
	}, nil
}

func (td *TupleDescription) NumFields() primitives.ColumnID {
	return primitives.ColumnID(len(td.fieldTypes))
}

func (td *TupleDescription) TypeAt(i primitives.ColumnID) (types.Type, error) {
	if int(i) >= len(td.fieldTypes) {
		return 0, fmt.Errorf("field index %d out of range (%d fields)", i, len(td.fieldTypes))
	}
	return td.fieldTypes[int(i)], nil
}

// Size returns the fixed serialized width of one tuple in bytes.
func (td *TupleDescription) Size() int {
	size := 0
	for _, t := range td.fieldTypes {
		size += t.Size()
	}
	return size
}

func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.fieldTypes) != len(other.fieldTypes) {
		return false
	}
	for i, t := range td.fieldTypes {
		if t != other.fieldTypes[i] {
			return false
		}
	}
	return true
}

func (td *TupleDescription) String() string {
	parts := make([]string, len(td.fieldTypes))
	for i, t := range td.fieldTypes {
		name := ""
		if td.fieldNames != nil {
			name = td.fieldNames[i]
		}
		parts[i] = fmt.Sprintf("%s(%s)", t, name)
	}
	return strings.Join(parts, ",")
}

// RecordID locates a tuple on a page.
type RecordID struct {
	PID  primitives.PageID
	Slot primitives.SlotID
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(%v, slot=%d)", rid.PID, rid.Slot)
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if rid == nil || other == nil {
		return rid == other
	}
	return rid.Slot == other.Slot && rid.PID.Equals(other.PID)
}

// Tuple is one row: a tuple description plus its field values, and, once
// stored, the record id naming its slot.
type Tuple struct {
	Desc     *TupleDescription
	RecordID *RecordID
	fields   []types.Field
}

func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		Desc:   td,
		fields: make([]types.Field, td.NumFields()),
	}
}

func (t *Tuple) SetField(i primitives.ColumnID, f types.Field) error {
	if int(i) >= len(t.fields) {
		return fmt.Errorf("field index %d out of range", i)
	}
	expected, err := t.Desc.TypeAt(i)
	if err != nil {
		return err
	}
	if f != nil && f.Type() != expected {
		return fmt.Errorf("field %d type mismatch: expected %s, got %s", i, expected, f.Type())
	}
	t.fields[int(i)] = f
	return nil
}

func (t *Tuple) GetField(i primitives.ColumnID) (types.Field, error) {
	if int(i) >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of range", i)
	}
	return t.fields[int(i)], nil
}

// Serialize writes the tuple's fixed-width encoding. Unset fields serialize
// as zero values of their type.
func (t *Tuple) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	for i := primitives.ColumnID(0); i < t.Desc.NumFields(); i++ {
		f := t.fields[int(i)]
		if f == nil {
			ft, _ := t.Desc.TypeAt(i)
			f = zeroField(ft)
		}
		if err := f.Serialize(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Deserialize reads one tuple of schema td from data.
func Deserialize(td *TupleDescription, data []byte) (*Tuple, error) {
	if len(data) < td.Size() {
		return nil, fmt.Errorf("tuple data too short: %d < %d", len(data), td.Size())
	}

	t := NewTuple(td)
	r := bytes.NewReader(data[:td.Size()])
	for i := primitives.ColumnID(0); i < td.NumFields(); i++ {
		ft, err := td.TypeAt(i)
		if err != nil {
			return nil, err
		}
		f, err := types.ParseField(r, ft)
		if err != nil {
			return nil, err
		}
		t.fields[int(i)] = f
	}
	return t, nil
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			parts[i] = "<nil>"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "\t")
}

func zeroField(t types.Type) types.Field {
	switch t {
	case types.StringType:
		return types.NewStringField("")
	default:
		return types.NewIntField(0)
	}
}
