// Package heap implements heap-organized table storage: pages holding
// fixed-size tuples behind a slot directory, and files that append pages as
// tables grow.
package heap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// slotEntrySize is the size of one slot directory entry: a 2-byte tuple
// offset, 0 meaning the slot is empty.
const slotEntrySize = 2

// HeapPage is a single page of a heap file. The on-disk layout is a slot
// directory followed by the tuple area; because records are fixed-size, slot
// i's tuple always lives at headerSize + i*tupleSize and the directory entry
// only records whether the slot is occupied.
//
//	[dir entry 0][dir entry 1]...[dir entry N-1][tuple 0][tuple 1]...[tuple N-1]
type HeapPage struct {
	pageID    *page.PageDescriptor
	tupleDesc *tuple.TupleDescription
	tuples    []*tuple.Tuple
	numSlots  primitives.SlotID
	dirtier   *primitives.TransactionID
	oldData   []byte
	mutex     sync.RWMutex
}

// NewHeapPage deserializes a page from raw data. The data must be exactly
// page.PageSize bytes; a zero-filled buffer yields an empty page.
func NewHeapPage(pid *page.PageDescriptor, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.PageSize {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
			"invalid page data size: expected %d, got %d", page.PageSize, len(data))
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		oldData:   make([]byte, page.PageSize),
	}
	hp.numSlots = slotsPerPage(td)
	hp.tuples = make([]*tuple.Tuple, hp.numSlots)

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	copy(hp.oldData, data)
	return hp, nil
}

// NewEmptyHeapPage creates a page with every slot free.
func NewEmptyHeapPage(pid *page.PageDescriptor, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, CreateEmptyPageData(), td)
}

// CreateEmptyPageData returns the on-disk image of a page with no tuples.
func CreateEmptyPageData() []byte {
	return make([]byte, page.PageSize)
}

// slotsPerPage computes how many tuples fit on a page: each costs its record
// size plus one directory entry.
func slotsPerPage(td *tuple.TupleDescription) primitives.SlotID {
	return primitives.SlotID(uint32(page.PageSize) / (td.GetSize() + slotEntrySize))
}

// GetID returns the page identity.
func (hp *HeapPage) GetID() *page.PageDescriptor {
	return hp.pageID
}

// IsDirty returns the transaction that last modified this page, or nil if
// the page is clean.
func (hp *HeapPage) IsDirty() *primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty records tid as the page's dirtier, or clears the marker.
func (hp *HeapPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// GetPageData serializes the current page content to page.PageSize bytes.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.serialize()
}

func (hp *HeapPage) serialize() []byte {
	data := make([]byte, page.PageSize)
	headerSize := int(hp.numSlots) * slotEntrySize

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		t := hp.tuples[i]
		if t == nil {
			continue
		}

		offset := headerSize + int(i)*int(hp.tupleDesc.GetSize())
		binary.LittleEndian.PutUint16(data[int(i)*slotEntrySize:], uint16(offset))

		buf := bytes.NewBuffer(data[offset:offset])
		// Serialize never fails on a fully populated tuple backed by a
		// byte buffer.
		_ = t.Serialize(buf)
	}

	return data
}

// GetBeforeImage returns a page built from the content as of transaction
// begin / last commit.
func (hp *HeapPage) GetBeforeImage() page.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	before, _ := NewHeapPage(hp.pageID, hp.oldData, hp.tupleDesc)
	return before
}

// SetBeforeImage adopts the current content as the new rollback baseline.
func (hp *HeapPage) SetBeforeImage() {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = hp.serialize()
}

// NumEmptySlots returns how many slots are free for insertion.
func (hp *HeapPage) NumEmptySlots() primitives.SlotID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	free := primitives.SlotID(0)
	for _, t := range hp.tuples {
		if t == nil {
			free++
		}
	}
	return free
}

// NumSlots returns the page's slot capacity for this schema.
func (hp *HeapPage) NumSlots() primitives.SlotID {
	return hp.numSlots
}

// InsertTuple places t in the first free slot and assigns its record id.
func (hp *HeapPage) InsertTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return dberr.New(dberr.CategoryUser, dberr.CodeSchemaMismatch,
			"tuple schema does not match page schema")
	}

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if hp.tuples[i] != nil {
			continue
		}
		hp.tuples[i] = t
		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		return nil
	}

	return dberr.Newf(dberr.CategoryUser, dberr.CodePageFull,
		"no empty slot on page %v", hp.pageID)
}

// DeleteTuple clears the slot named by t's record id. The record id must
// reference this page and an occupied slot.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if rid == nil {
		return dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"tuple has no record id")
	}
	if !rid.PageID.Equals(hp.pageID) {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"tuple belongs to %v, not %v", rid.PageID, hp.pageID)
	}
	if rid.Slot >= hp.numSlots || hp.tuples[rid.Slot] == nil {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"slot %d is already empty", rid.Slot)
	}

	hp.tuples[rid.Slot] = nil
	t.RecordID = nil
	return nil
}

// GetTuples returns the occupied slots' tuples in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	out := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Iterator returns a restartable iterator over the page's tuples, skipping
// empty slots.
func (hp *HeapPage) Iterator() *tuple.Iterator {
	return tuple.NewIterator(hp.GetTuples())
}

func (hp *HeapPage) parsePageData(data []byte) error {
	headerSize := int(hp.numSlots) * slotEntrySize
	tupleSize := int(hp.tupleDesc.GetSize())

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		offset := binary.LittleEndian.Uint16(data[int(i)*slotEntrySize:])
		if offset == 0 {
			continue
		}

		expected := headerSize + int(i)*tupleSize
		if int(offset) != expected || expected+tupleSize > len(data) {
			return dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
				"slot %d has invalid tuple offset %d", i, offset)
		}

		t, err := tuple.ReadTuple(bytes.NewReader(data[expected:expected+tupleSize]), hp.tupleDesc)
		if err != nil {
			return fmt.Errorf("failed to read tuple at slot %d: %w", i, err)
		}
		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		hp.tuples[i] = t
	}

	return nil
}
