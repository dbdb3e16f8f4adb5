package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Field is a single typed value inside a tuple.
type Field interface {
	// Serialize writes the field's fixed-width encoding.
	Serialize(w io.Writer) error

	// Type returns the field's type tag.
	Type() Type

	// Equals reports value equality with another field.
	Equals(other Field) bool

	String() string
}

// IntField is a 64-bit signed integer field.
type IntField struct {
	Value int64
}

func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(f.Value))
	_, err := w.Write(buf)
	return err
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	return ok && f.Value == o.Value
}

func (f *IntField) String() string {
	return strconv.FormatInt(f.Value, 10)
}

// StringField is a fixed-width string field. Values longer than
// StringFieldSize are truncated on construction.
type StringField struct {
	Value string
}

func NewStringField(value string) *StringField {
	if len(value) > StringFieldSize {
		value = value[:StringFieldSize]
	}
	return &StringField{Value: value}
}

func (f *StringField) Serialize(w io.Writer) error {
	buf := make([]byte, StringType.Size())
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(f.Value)))
	copy(buf[2:], f.Value)
	_, err := w.Write(buf)
	return err
}

func (f *StringField) Type() Type {
	return StringType
}

func (f *StringField) Equals(other Field) bool {
	o, ok := other.(*StringField)
	return ok && f.Value == o.Value
}

func (f *StringField) String() string {
	return f.Value
}

// ParseField reads one fixed-width field of type t from r.
func ParseField(r io.Reader, t Type) (Field, error) {
	buf := make([]byte, t.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	switch t {
	case IntType:
		return NewIntField(int64(binary.BigEndian.Uint64(buf))), nil
	case StringType:
		n := int(binary.BigEndian.Uint16(buf[0:2]))
		if n > StringFieldSize {
			return nil, fmt.Errorf("corrupt string field: length %d exceeds %d", n, StringFieldSize)
		}
		return &StringField{Value: string(buf[2 : 2+n])}, nil
	default:
		return nil, fmt.Errorf("unknown field type %v", t)
	}
}
