package memory

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberr"
	"heapstore/pkg/log/record"
	"heapstore/pkg/log/wal"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// engine bundles a memfs-backed pool over one two-int-column table.
type engine struct {
	fs      afero.Fs
	pool    *PageStore
	tables  *TableManager
	file    *heap.HeapFile
	td      *tuple.TupleDescription
	tableID primitives.TableID
}

func newEngine(t *testing.T, capacity int) *engine {
	t.Helper()

	fs := afero.NewMemMapFs()
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType},
		[]string{"a", "b"},
	)
	require.NoError(t, err)

	hf, err := heap.NewHeapFile(fs, "/data/t.dat", td)
	require.NoError(t, err)

	tables := NewTableManager()
	require.NoError(t, tables.AddTable(hf, "t", "a"))

	w, err := wal.NewWAL(fs, "/data/t.wal", 4096, nil)
	require.NoError(t, err)

	pool := NewPageStore(tables, w, capacity, nil)
	pool.SetLockPollInterval(2 * time.Millisecond)

	t.Cleanup(func() { hf.Close() })
	return &engine{fs: fs, pool: pool, tables: tables, file: hf, td: td, tableID: hf.TableID()}
}

func (e *engine) tuple(t *testing.T, a, b int64) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(e.td)
	require.NoError(t, tp.SetField(0, types.NewIntField(a)))
	require.NoError(t, tp.SetField(1, types.NewIntField(b)))
	return tp
}

func (e *engine) insert(t *testing.T, tid *primitives.TransactionID, a, b int64) *tuple.Tuple {
	t.Helper()
	tp := e.tuple(t, a, b)
	require.NoError(t, e.pool.InsertTuple(tid, e.tableID, tp))
	return tp
}

// scan reads every (a, b) pair in the table under tid.
func (e *engine) scan(t *testing.T, tid *primitives.TransactionID) [][2]int64 {
	t.Helper()

	it := e.file.Iterator(tid, e.pool)
	require.NoError(t, it.Open())
	defer it.Close()

	var out [][2]int64
	for {
		hasNext, err := it.HasNext()
		require.NoError(t, err)
		if !hasNext {
			return out
		}
		tp, err := it.Next()
		require.NoError(t, err)

		f0, err := tp.GetField(0)
		require.NoError(t, err)
		f1, err := tp.GetField(1)
		require.NoError(t, err)
		out = append(out, [2]int64{f0.(*types.IntField).Value, f1.(*types.IntField).Value})
	}
}

// seedPages writes n pages to disk, each holding the single tuple (pageNo, 0).
func (e *engine) seedPages(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		pageNo, err := e.file.AllocateNewPage()
		require.NoError(t, err)
		hp, err := heap.NewEmptyHeapPage(page.NewPageDescriptor(e.tableID, pageNo), e.td)
		require.NoError(t, err)
		require.NoError(t, hp.InsertTuple(e.tuple(t, int64(pageNo), 0)))
		require.NoError(t, e.file.WritePage(hp))
	}
}

func (e *engine) pid(n primitives.PageNumber) *page.PageDescriptor {
	return page.NewPageDescriptor(e.tableID, n)
}

func TestSingleWriterInsertCommit(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	e.insert(t, t1.ID, 1, 2)
	require.NoError(t, e.pool.TransactionComplete(t1.ID, true))

	t2 := e.pool.Begin()
	assert.Equal(t, [][2]int64{{1, 2}}, e.scan(t, t2.ID))
	require.NoError(t, e.pool.TransactionComplete(t2.ID, true))

	// FORCE: the committed tuple is on disk, not just in the pool.
	pg, err := e.file.ReadPage(e.pid(0))
	require.NoError(t, err)
	assert.Len(t, pg.(*heap.HeapPage).GetTuples(), 1)
}

func TestAbortRollsBack(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	e.insert(t, t1.ID, 3, 4)
	require.NoError(t, e.pool.TransactionComplete(t1.ID, false))

	// No pool page still bears t1 as dirtier.
	for _, key := range e.pool.cache.Keys() {
		pg, ok := e.pool.cache.Peek(key)
		require.True(t, ok)
		assert.Nil(t, pg.IsDirty())
	}

	t2 := e.pool.Begin()
	assert.Empty(t, e.scan(t, t2.ID))
	require.NoError(t, e.pool.TransactionComplete(t2.ID, true))
}

func TestCommitUpdatesBeforeImage(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	e.insert(t, t1.ID, 1, 2)
	require.NoError(t, e.pool.CommitTransaction(t1.ID))

	pg, ok := e.pool.cache.Peek(primitives.KeyOf(e.pid(0)))
	require.True(t, ok)
	assert.Nil(t, pg.IsDirty())
	assert.Equal(t, pg.GetPageData(), pg.GetBeforeImage().GetPageData())
}

func TestCommitWritesWAL(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	e.insert(t, t1.ID, 1, 2)
	require.NoError(t, e.pool.CommitTransaction(t1.ID))

	r, err := wal.NewLogReader(e.fs, "/data/t.wal")
	require.NoError(t, err)
	defer r.Close()

	var seen []record.Type
	for {
		rec, err := r.ReadNext()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen = append(seen, rec.Type)
	}
	assert.Equal(t, []record.Type{record.BeginRecord, record.UpdateRecord, record.CommitRecord}, seen)
}

func TestDirtierHoldsWriteLock(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	tp := e.insert(t, t1.ID, 1, 2)

	pid := tp.RecordID.PageID
	assert.True(t, e.pool.HoldsLock(t1.ID, pid))

	pg, ok := e.pool.cache.Peek(primitives.KeyOf(pid))
	require.True(t, ok)
	assert.Same(t, t1.ID, pg.IsDirty())

	require.NoError(t, e.pool.CommitTransaction(t1.ID))
	assert.False(t, e.pool.HoldsLock(t1.ID, pid))
}

func TestEvictionAllDirty(t *testing.T) {
	e := newEngine(t, 3)
	e.seedPages(t, 4)

	t1 := e.pool.Begin()
	for n := primitives.PageNumber(0); n < 3; n++ {
		pg, err := e.pool.GetPage(t1.ID, e.pid(n), primitives.ReadWrite)
		require.NoError(t, err)

		victim := pg.(*heap.HeapPage).GetTuples()[0]
		require.NoError(t, e.pool.DeleteTuple(t1.ID, victim))
	}

	_, err := e.pool.GetPage(t1.ID, e.pid(3), primitives.ReadOnly)
	require.Error(t, err)
	assert.True(t, dberr.HasCode(err, dberr.CodeAllPagesDirty))

	// The transaction can still resolve by committing, which cleans the pool.
	require.NoError(t, e.pool.CommitTransaction(t1.ID))
	_, err = e.pool.GetPage(e.pool.Begin().ID, e.pid(3), primitives.ReadOnly)
	assert.NoError(t, err)
}

func TestClockReuse(t *testing.T) {
	e := newEngine(t, 3)
	e.seedPages(t, 4)

	t1 := e.pool.Begin()
	for n := primitives.PageNumber(0); n < 3; n++ {
		_, err := e.pool.GetPage(t1.ID, e.pid(n), primitives.ReadOnly)
		require.NoError(t, err)
	}
	require.NoError(t, e.pool.CommitTransaction(t1.ID))

	// A fourth page evicts the oldest unreferenced clean slot: page 0.
	t2 := e.pool.Begin()
	_, err := e.pool.GetPage(t2.ID, e.pid(3), primitives.ReadOnly)
	require.NoError(t, err)

	_, cached := e.pool.cache.Peek(primitives.KeyOf(e.pid(0)))
	assert.False(t, cached, "page 0 should have been evicted")
	for n := primitives.PageNumber(1); n <= 3; n++ {
		_, cached := e.pool.cache.Peek(primitives.KeyOf(e.pid(n)))
		assert.True(t, cached, "page %d should be resident", n)
	}

	// Fetching page 0 again misses and reloads it from disk.
	pg, err := e.pool.GetPage(t2.ID, e.pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	assert.Len(t, pg.(*heap.HeapPage).GetTuples(), 1)
	require.NoError(t, e.pool.CommitTransaction(t2.ID))
}

func TestFlushAllPagesFlushesEveryDirtyPage(t *testing.T) {
	e := newEngine(t, 4)
	e.seedPages(t, 2)

	t1 := e.pool.Begin()
	for n := primitives.PageNumber(0); n < 2; n++ {
		pg, err := e.pool.GetPage(t1.ID, e.pid(n), primitives.ReadWrite)
		require.NoError(t, err)
		require.NoError(t, e.pool.DeleteTuple(t1.ID, pg.(*heap.HeapPage).GetTuples()[0]))
	}

	require.NoError(t, e.pool.FlushAllPages())

	for n := primitives.PageNumber(0); n < 2; n++ {
		pg, ok := e.pool.cache.Peek(primitives.KeyOf(e.pid(n)))
		require.True(t, ok)
		assert.Nil(t, pg.IsDirty(), "page %d still dirty after FlushAllPages", n)

		disk, err := e.file.ReadPage(e.pid(n))
		require.NoError(t, err)
		assert.Empty(t, disk.(*heap.HeapPage).GetTuples())
	}

	require.NoError(t, e.pool.CommitTransaction(t1.ID))
}

func TestDiscardPage(t *testing.T) {
	e := newEngine(t, 3)
	e.seedPages(t, 1)

	t1 := e.pool.Begin()
	pg, err := e.pool.GetPage(t1.ID, e.pid(0), primitives.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, e.pool.DeleteTuple(t1.ID, pg.(*heap.HeapPage).GetTuples()[0]))

	e.pool.DiscardPage(e.pid(0))
	_, cached := e.pool.cache.Peek(primitives.KeyOf(e.pid(0)))
	assert.False(t, cached)

	// The uncommitted delete never reached disk.
	disk, err := e.file.ReadPage(e.pid(0))
	require.NoError(t, err)
	assert.Len(t, disk.(*heap.HeapPage).GetTuples(), 1)

	require.NoError(t, e.pool.AbortTransaction(t1.ID))
}

func TestUpdateTuple(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	e.insert(t, t1.ID, 1, 2)
	require.NoError(t, e.pool.CommitTransaction(t1.ID))

	t2 := e.pool.Begin()
	rows := e.scan(t, t2.ID)
	require.Len(t, rows, 1)

	// Re-fetch the stored tuple to get its record id.
	pg, err := e.pool.GetPage(t2.ID, e.pid(0), primitives.ReadWrite)
	require.NoError(t, err)
	old := pg.(*heap.HeapPage).GetTuples()[0]

	require.NoError(t, e.pool.UpdateTuple(t2.ID, old, e.tuple(t, 5, 6)))
	require.NoError(t, e.pool.CommitTransaction(t2.ID))

	t3 := e.pool.Begin()
	assert.Equal(t, [][2]int64{{5, 6}}, e.scan(t, t3.ID))
	require.NoError(t, e.pool.CommitTransaction(t3.ID))
}

func TestGetPageUnknownTable(t *testing.T) {
	e := newEngine(t, 3)

	t1 := e.pool.Begin()
	_, err := e.pool.GetPage(t1.ID, page.NewPageDescriptor(e.tableID+1, 0), primitives.ReadOnly)
	assert.True(t, dberr.HasCode(err, dberr.CodeTableNotFound))
}

func TestTransactionCompleteUnknownTidReleasesLocks(t *testing.T) {
	e := newEngine(t, 3)
	e.seedPages(t, 1)

	tid := primitives.NewTransactionID()
	_, err := e.pool.GetPage(tid, e.pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	require.True(t, e.pool.HoldsLock(tid, e.pid(0)))

	require.NoError(t, e.pool.TransactionComplete(tid, true))
	assert.False(t, e.pool.HoldsLock(tid, e.pid(0)))
}
