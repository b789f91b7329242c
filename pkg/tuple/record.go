package tuple

import (
	"fmt"

	"heapstore/pkg/primitives"
)

// RecordID names the physical location of a tuple: the page it lives on and
// the slot within that page. It is assigned by the page on insert and cleared
// on delete.
type RecordID struct {
	PageID primitives.PageID
	Slot   primitives.SlotID
}

// NewRecordID creates a record id for a slot on a page.
func NewRecordID(pid primitives.PageID, slot primitives.SlotID) *RecordID {
	return &RecordID{PageID: pid, Slot: slot}
}

// Equals reports whether two record ids name the same slot.
func (rid *RecordID) Equals(other *RecordID) bool {
	if other == nil {
		return false
	}
	return rid.PageID.Equals(other.PageID) && rid.Slot == other.Slot
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(%v, slot=%d)", rid.PageID, rid.Slot)
}
