package types

import (
	"encoding/binary"
	"io"

	"heapstore/pkg/dberr"
)

// ParseField reads one field of the given type from r. The reader must be
// positioned at the start of the field's fixed-size encoding.
func ParseField(t Type, r io.Reader) (Field, error) {
	switch t {
	case IntType:
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeInvalidPage,
				"short read parsing int field")
		}
		return NewIntField(int64(binary.LittleEndian.Uint64(buf))), nil

	case StringType:
		buf := make([]byte, 4+StringMaxSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeInvalidPage,
				"short read parsing string field")
		}
		n := binary.LittleEndian.Uint32(buf)
		if n > StringMaxSize {
			return nil, dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
				"string field length %d exceeds maximum %d", n, StringMaxSize)
		}
		return NewStringField(string(buf[4 : 4+n])), nil

	default:
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"cannot parse field of unknown type %d", t)
	}
}
