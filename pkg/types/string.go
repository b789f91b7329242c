package types

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

// StringField stores a string of at most StringMaxSize bytes. The on-disk
// encoding is a 4-byte little-endian length followed by exactly StringMaxSize
// payload bytes (the value, zero-padded), keeping the record size fixed.
type StringField struct {
	Value string
}

// NewStringField creates a string field, truncating the value to
// StringMaxSize bytes if necessary.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		value = value[:StringMaxSize]
	}
	return &StringField{Value: value}
}

func (s *StringField) Serialize(w io.Writer) error {
	buf := make([]byte, 4+StringMaxSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(s.Value)))
	copy(buf[4:], s.Value)
	_, err := w.Write(buf)
	return err
}

func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*StringField)
	if !ok {
		return false, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"cannot compare string field with %v", other.Type())
	}

	c := strings.Compare(s.Value, o.Value)
	switch op {
	case primitives.Equals:
		return c == 0, nil
	case primitives.NotEquals:
		return c != 0, nil
	case primitives.LessThan:
		return c < 0, nil
	case primitives.LessThanOrEqual:
		return c <= 0, nil
	case primitives.GreaterThan:
		return c > 0, nil
	case primitives.GreaterThanOrEqual:
		return c >= 0, nil
	default:
		return false, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"unsupported predicate %v", op)
	}
}

func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	o, ok := other.(*StringField)
	return ok && s.Value == o.Value
}

func (s *StringField) Hash() primitives.HashCode {
	return primitives.HashCode(xxhash.Sum64String(s.Value))
}

func (s *StringField) Length() uint32 {
	return StringType.Size()
}
