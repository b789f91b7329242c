package primitives

import "fmt"

// LSN (log sequence number) uniquely identifies a WAL record.
// It is monotonically increasing and equals the record's byte offset in the log file.
type LSN uint64

// HashCode represents a hash value computed for fast comparisons or lookups
// (page ids, field values, file paths).
type HashCode uint64

// TableID identifies a table. It is derived from hashing the absolute path of
// the table's backing file, so the same file always yields the same id.
type TableID uint64

// PageNumber is a zero-based page index within a table file.
type PageNumber uint64

// SlotID is a tuple slot index within a page.
type SlotID uint16

// InvalidTableID is the zero value reserved for uninitialized table ids.
const InvalidTableID TableID = 0

// IsValid reports whether the TableID is a non-zero identifier.
func (t TableID) IsValid() bool {
	return t != InvalidTableID
}

// AsUint64 returns the TableID as a uint64 for serialization.
func (t TableID) AsUint64() uint64 {
	return uint64(t)
}

func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", uint64(t))
}
