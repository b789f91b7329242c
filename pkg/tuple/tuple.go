// Package tuple implements fixed-size records and their schemas.
package tuple

import (
	"io"
	"strings"

	"heapstore/pkg/dberr"
	"heapstore/pkg/types"
)

// Tuple is one record: a schema, the field values, and (once stored) the
// record id naming its slot on disk.
type Tuple struct {
	TupleDesc *TupleDescription
	RecordID  *RecordID
	fields    []types.Field
}

// NewTuple creates an empty tuple with the given schema. Fields must be set
// before the tuple is serialized.
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField assigns field i, enforcing the schema's type.
func (t *Tuple) SetField(i int, field types.Field) error {
	expected, err := t.TupleDesc.TypeAtIndex(i)
	if err != nil {
		return err
	}
	if field == nil {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field %d cannot be nil", i)
	}
	if field.Type() != expected {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field %d expects %v, got %v", i, expected, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns field i.
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field index %d out of range [0,%d)", i, len(t.fields))
	}
	if t.fields[i] == nil {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field %d is not set", i)
	}
	return t.fields[i], nil
}

// Serialize writes all fields in order to w. Every field must be set.
func (t *Tuple) Serialize(w io.Writer) error {
	for i := range t.fields {
		f, err := t.GetField(i)
		if err != nil {
			return err
		}
		if err := f.Serialize(w); err != nil {
			return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
				"failed to serialize tuple field")
		}
	}
	return nil
}

// Clone returns a copy of the tuple sharing field values but with no
// record id.
func (t *Tuple) Clone() *Tuple {
	c := NewTuple(t.TupleDesc)
	copy(c.fields, t.fields)
	return c
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			parts[i] = "<unset>"
			continue
		}
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ReadTuple parses one record with the given schema from r.
func ReadTuple(r io.Reader, td *TupleDescription) (*Tuple, error) {
	t := NewTuple(td)
	for i := 0; i < td.NumFields(); i++ {
		ft, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		f, err := types.ParseField(ft, r)
		if err != nil {
			return nil, err
		}
		t.fields[i] = f
	}
	return t, nil
}
