package types

import (
	"io"

	"heapstore/pkg/primitives"
)

// Field is a single typed value within a tuple.
type Field interface {
	// Serialize writes the field's fixed-size binary encoding to w.
	Serialize(w io.Writer) error

	// Compare evaluates `this op other`. Comparing fields of different types
	// is an error.
	Compare(op primitives.Predicate, other Field) (bool, error)

	// Type returns the field's type.
	Type() Type

	// Equals reports value equality with another field of the same type.
	Equals(other Field) bool

	// Hash returns a hash of the field value.
	Hash() primitives.HashCode

	// Length returns the on-disk size in bytes.
	Length() uint32

	String() string
}
