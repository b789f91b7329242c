// Package types implements the field value types storable in tuples: 64-bit
// integers and fixed-capacity strings, matching the catalog grammar
// `type ∈ {int, string}`. Every field serializes to a fixed number of bytes
// so that tuples are fixed-size records.
package types

import "heapstore/pkg/dberr"

// Type enumerates the storable field types.
type Type int

const (
	IntType Type = iota
	StringType
)

// StringMaxSize is the fixed payload capacity of a StringField in bytes.
// A string field occupies 4 (length prefix) + StringMaxSize bytes on disk
// regardless of the stored value's length.
const StringMaxSize = 128

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// Size returns the on-disk size in bytes of a field of this type.
func (t Type) Size() uint32 {
	switch t {
	case IntType:
		return 8
	case StringType:
		return 4 + StringMaxSize
	default:
		return 0
	}
}

// ParseType resolves a catalog type name to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "int":
		return IntType, nil
	case "string":
		return StringType, nil
	default:
		return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidCatalog,
			"unknown field type %q", name)
	}
}
