package types

import (
	"encoding/binary"
	"fmt"
	"io"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

// IntField stores a 64-bit signed integer, encoded little-endian in 8 bytes.
type IntField struct {
	Value int64
}

func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(f.Value))
	_, err := w.Write(buf)
	return err
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*IntField)
	if !ok {
		return false, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"cannot compare int field with %v", other.Type())
	}
	return compareInt64(f.Value, o.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return fmt.Sprintf("%d", f.Value)
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	return ok && f.Value == o.Value
}

func (f *IntField) Hash() primitives.HashCode {
	return primitives.HashCode(uint64(f.Value))
}

func (f *IntField) Length() uint32 {
	return IntType.Size()
}

func compareInt64(a, b int64, op primitives.Predicate) bool {
	switch op {
	case primitives.Equals:
		return a == b
	case primitives.NotEquals:
		return a != b
	case primitives.LessThan:
		return a < b
	case primitives.LessThanOrEqual:
		return a <= b
	case primitives.GreaterThan:
		return a > b
	case primitives.GreaterThanOrEqual:
		return a >= b
	default:
		return false
	}
}
