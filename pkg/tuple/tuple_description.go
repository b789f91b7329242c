package tuple

import (
	"fmt"
	"strings"

	"heapstore/pkg/dberr"
	"heapstore/pkg/types"
)

// TupleDescription is the schema of a tuple: an ordered list of field types
// with their names. All tuples stored in one table share a description, so
// every record on a page has the same fixed size.
type TupleDescription struct {
	fieldTypes []types.Type
	fieldNames []string
}

// NewTupleDesc creates a schema from parallel type and name slices.
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) == 0 {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"tuple description needs at least one field")
	}
	if len(fieldTypes) != len(fieldNames) {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field types (%d) and names (%d) must have equal length",
			len(fieldTypes), len(fieldNames))
	}
	for i, name := range fieldNames {
		if name == "" {
			return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
				"field %d has an empty name", i)
		}
	}

	return &TupleDescription{
		fieldTypes: append([]types.Type(nil), fieldTypes...),
		fieldNames: append([]string(nil), fieldNames...),
	}, nil
}

// NumFields returns the number of fields in the schema.
func (td *TupleDescription) NumFields() int {
	return len(td.fieldTypes)
}

// TypeAtIndex returns the type of field i.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.fieldTypes) {
		return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field index %d out of range [0,%d)", i, len(td.fieldTypes))
	}
	return td.fieldTypes[i], nil
}

// FieldName returns the name of field i.
func (td *TupleDescription) FieldName(i int) (string, error) {
	if i < 0 || i >= len(td.fieldNames) {
		return "", dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"field index %d out of range [0,%d)", i, len(td.fieldNames))
	}
	return td.fieldNames[i], nil
}

// FindFieldIndex returns the index of the field with the given name.
func (td *TupleDescription) FindFieldIndex(name string) (int, error) {
	for i, n := range td.fieldNames {
		if n == name {
			return i, nil
		}
	}
	return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaMismatch,
		"no field named %q", name)
}

// GetSize returns the serialized size in bytes of a tuple with this schema.
func (td *TupleDescription) GetSize() uint32 {
	var size uint32
	for _, t := range td.fieldTypes {
		size += t.Size()
	}
	return size
}

// Equals reports whether two descriptions have identical field types and
// names in the same order.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.fieldTypes) != len(other.fieldTypes) {
		return false
	}
	for i := range td.fieldTypes {
		if td.fieldTypes[i] != other.fieldTypes[i] {
			return false
		}
		if td.fieldNames[i] != other.fieldNames[i] {
			return false
		}
	}
	return true
}

func (td *TupleDescription) String() string {
	parts := make([]string, len(td.fieldTypes))
	for i := range td.fieldTypes {
		parts[i] = fmt.Sprintf("%s %s", td.fieldNames[i], td.fieldTypes[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
