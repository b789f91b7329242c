package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

func twoIntDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType},
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	return td
}

func makeTuple(t *testing.T, td *tuple.TupleDescription, a, b int64) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(td)
	require.NoError(t, tp.SetField(0, types.NewIntField(a)))
	require.NoError(t, tp.SetField(1, types.NewIntField(b)))
	return tp
}

func emptyPage(t *testing.T) *HeapPage {
	t.Helper()
	hp, err := NewEmptyHeapPage(page.NewPageDescriptor(1, 0), twoIntDesc(t))
	require.NoError(t, err)
	return hp
}

func TestNewEmptyHeapPage_AllSlotsFree(t *testing.T) {
	hp := emptyPage(t)

	assert.Equal(t, hp.NumSlots(), hp.NumEmptySlots())
	assert.Greater(t, int(hp.NumSlots()), 0)
	assert.Nil(t, hp.IsDirty())
	assert.Empty(t, hp.GetTuples())
}

func TestNewHeapPage_RejectsWrongSize(t *testing.T) {
	_, err := NewHeapPage(page.NewPageDescriptor(1, 0), make([]byte, page.PageSize-1), twoIntDesc(t))
	assert.Error(t, err)
}

func TestHeapPage_InsertAssignsRecordID(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	t0 := makeTuple(t, td, 1, 2)
	require.NoError(t, hp.InsertTuple(t0))

	require.NotNil(t, t0.RecordID)
	assert.True(t, t0.RecordID.PageID.Equals(hp.GetID()))
	assert.Equal(t, primitives.SlotID(0), t0.RecordID.Slot)
	assert.Equal(t, hp.NumSlots()-1, hp.NumEmptySlots())

	t1 := makeTuple(t, td, 3, 4)
	require.NoError(t, hp.InsertTuple(t1))
	assert.Equal(t, primitives.SlotID(1), t1.RecordID.Slot)
}

func TestHeapPage_InsertSchemaMismatch(t *testing.T) {
	hp := emptyPage(t)

	other, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"x"})
	require.NoError(t, err)
	tp := tuple.NewTuple(other)
	require.NoError(t, tp.SetField(0, types.NewIntField(1)))

	assert.True(t, dberr.HasCode(hp.InsertTuple(tp), dberr.CodeSchemaMismatch))
}

func TestHeapPage_InsertIntoFullPage(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	for i := primitives.SlotID(0); i < hp.NumSlots(); i++ {
		require.NoError(t, hp.InsertTuple(makeTuple(t, td, int64(i), 0)))
	}
	require.Equal(t, primitives.SlotID(0), hp.NumEmptySlots())

	err := hp.InsertTuple(makeTuple(t, td, 99, 99))
	assert.True(t, dberr.HasCode(err, dberr.CodePageFull))
}

func TestHeapPage_DeleteTuple(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	tp := makeTuple(t, td, 1, 2)
	require.NoError(t, hp.InsertTuple(tp))
	require.NoError(t, hp.DeleteTuple(tp))

	assert.Nil(t, tp.RecordID)
	assert.Equal(t, hp.NumSlots(), hp.NumEmptySlots())

	// Deleting again fails: no record id.
	assert.Error(t, hp.DeleteTuple(tp))
}

func TestHeapPage_DeleteFromWrongPage(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t)
	other, err := NewEmptyHeapPage(page.NewPageDescriptor(1, 5), td)
	require.NoError(t, err)

	tp := makeTuple(t, td, 1, 2)
	require.NoError(t, hp.InsertTuple(tp))

	assert.True(t, dberr.HasCode(other.DeleteTuple(tp), dberr.CodeNoSuchTuple))
}

func TestHeapPage_SerializeRoundTrip(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	require.NoError(t, hp.InsertTuple(makeTuple(t, td, 10, 20)))
	require.NoError(t, hp.InsertTuple(makeTuple(t, td, 30, 40)))
	middle := makeTuple(t, td, 50, 60)
	require.NoError(t, hp.InsertTuple(middle))
	require.NoError(t, hp.DeleteTuple(middle))

	back, err := NewHeapPage(hp.GetID(), hp.GetPageData(), td)
	require.NoError(t, err)

	tuples := back.GetTuples()
	require.Len(t, tuples, 2)
	f0, err := tuples[0].GetField(0)
	require.NoError(t, err)
	assert.True(t, types.NewIntField(10).Equals(f0))
	assert.Equal(t, primitives.SlotID(1), tuples[1].RecordID.Slot)
}

func TestHeapPage_DirtyMarker(t *testing.T) {
	hp := emptyPage(t)
	tid := primitives.NewTransactionID()

	hp.MarkDirty(true, tid)
	assert.Same(t, tid, hp.IsDirty())

	hp.MarkDirty(false, nil)
	assert.Nil(t, hp.IsDirty())
}

func TestHeapPage_BeforeImage(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	require.NoError(t, hp.InsertTuple(makeTuple(t, td, 1, 2)))

	// The baseline predates the insert.
	before := hp.GetBeforeImage()
	assert.Empty(t, before.(*HeapPage).GetTuples())

	hp.SetBeforeImage()
	assert.Len(t, hp.GetBeforeImage().(*HeapPage).GetTuples(), 1)
	assert.Equal(t, hp.GetPageData(), hp.GetBeforeImage().GetPageData())
}

func TestHeapPage_Iterator(t *testing.T) {
	hp := emptyPage(t)
	td := twoIntDesc(t)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, hp.InsertTuple(makeTuple(t, td, i, i)))
	}

	it := hp.Iterator()
	count := 0
	for it.HasNext() {
		_, err := it.Next()
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 5, count)

	it.Rewind()
	assert.True(t, it.HasNext())
}
