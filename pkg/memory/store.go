package memory

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"heapstore/pkg/concurrency/lock"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberr"
	"heapstore/pkg/log/wal"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// DefaultLockPollInterval is how long GetPage sleeps between lock attempts.
const DefaultLockPollInterval = 500 * time.Millisecond

// PageStore is the buffer pool: the single entry point for page access. It
// owns the lock manager, the slot array with its clock replacement state,
// the transaction registry, and the WAL hookup.
//
// Policies: NO-STEAL (a dirty page is never evicted; before its transaction
// decides it is written only by an explicit FlushPage or FlushAllPages) and
// FORCE (a committing transaction's dirty pages are
// flushed before commit returns), under strict two-phase locking.
type PageStore struct {
	tables   *TableManager
	locks    *lock.Manager
	registry *transaction.Registry
	wal      *wal.WAL
	log      *zap.SugaredLogger

	// mutex serializes the slot array, the clock hand, and every flush or
	// discard. Lock acquisition happens outside it so waiters do not stall
	// unrelated page traffic.
	mutex        sync.Mutex
	cache        *ClockCache
	pollInterval time.Duration
}

// NewPageStore creates a pool with the given capacity over the catalog tm,
// logging page traffic to log and WAL records to w.
func NewPageStore(tm *TableManager, w *wal.WAL, capacity int, log *zap.SugaredLogger) *PageStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PageStore{
		tables:       tm,
		locks:        lock.NewManager(log),
		registry:     transaction.NewRegistry(),
		wal:          w,
		log:          log,
		cache:        NewClockCache(capacity),
		pollInterval: DefaultLockPollInterval,
	}
}

// SetLockPollInterval tunes the sleep between lock attempts. Deadlock tests
// shrink it so victims are detected quickly.
func (p *PageStore) SetLockPollInterval(d time.Duration) {
	p.pollInterval = d
}

// Begin starts a new transaction and returns its context.
func (p *PageStore) Begin() *transaction.Context {
	return p.registry.Begin()
}

// GetPage returns the page identified by pid after acquiring the lock
// implied by perm for tid. It blocks, polling the lock manager, while the
// page is held incompatibly; if the wait closes a waits-for cycle the caller
// is the victim and a TransactionAbortedError is returned. On a cache miss
// the page is read from its table file, evicting one clean page first when
// the pool is full (a full pool of dirty pages is a DBError).
func (p *PageStore) GetPage(tid *primitives.TransactionID, pid primitives.PageID, perm primitives.Permissions) (page.Page, error) {
	for !p.locks.TryAcquire(tid, pid, perm) {
		if p.locks.HasDeadlock(tid, pid) {
			p.log.Infow("deadlock victim", "tid", tid.ID(), "page", pid.String())
			return nil, dberr.NewDeadlockAbort(tid, pid)
		}
		time.Sleep(p.pollInterval)
	}

	p.registry.GetOrCreate(tid).RecordPageAccess(pid, perm)

	p.mutex.Lock()
	defer p.mutex.Unlock()

	key := primitives.KeyOf(pid)
	if pg, ok := p.cache.Get(key); ok {
		return pg, nil
	}

	if p.cache.Size() >= p.cache.Capacity() {
		if err := p.evictOne(); err != nil {
			return nil, err
		}
	}

	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return nil, err
	}
	pg, err := file.ReadPage(pid)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Put(key, pg); err != nil {
		return nil, err
	}
	return pg, nil
}

// evictOne frees one slot using the clock sweep. The victim is clean by
// construction, so passing it through the flush path writes nothing.
// Caller holds p.mutex.
func (p *PageStore) evictOne() error {
	victim, err := p.cache.Evict()
	if err != nil {
		return err
	}
	return p.flushPageLocked(victim)
}

// InsertTuple adds t to the table identified by tableID under tid. The heap
// file picks (or appends) the target page through this pool with ReadWrite;
// every returned page is marked dirty by tid.
func (p *PageStore) InsertTuple(tid *primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	file, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return err
	}

	ctx := p.registry.GetOrCreate(tid)
	if err := p.ensureWALBegun(ctx); err != nil {
		return err
	}

	modified, err := file.AddTuple(tid, t, p)
	if err != nil {
		return err
	}

	p.markPagesDirty(ctx, modified)
	return nil
}

// DeleteTuple removes t from the page named by its record id under tid.
func (p *PageStore) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"tuple has no record id")
	}

	file, err := p.tables.GetDbFile(t.RecordID.PageID.TableID())
	if err != nil {
		return err
	}

	ctx := p.registry.GetOrCreate(tid)
	if err := p.ensureWALBegun(ctx); err != nil {
		return err
	}

	modified, err := file.DeleteTuple(tid, t, p)
	if err != nil {
		return err
	}

	p.markPagesDirty(ctx, []page.Page{modified})
	return nil
}

// UpdateTuple replaces oldTuple with newTuple, implemented as delete
// followed by insert; the new version may land on a different page.
func (p *PageStore) UpdateTuple(tid *primitives.TransactionID, oldTuple, newTuple *tuple.Tuple) error {
	if oldTuple == nil || oldTuple.RecordID == nil {
		return dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"old tuple has no record id")
	}

	tableID := oldTuple.RecordID.PageID.TableID()
	if err := p.DeleteTuple(tid, oldTuple); err != nil {
		return err
	}
	if err := p.InsertTuple(tid, tableID, newTuple); err != nil {
		return err
	}
	return nil
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (p *PageStore) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	return p.locks.HoldsLock(tid, pid)
}

// ReleasePage drops tid's locks on pid before the transaction completes.
// This breaks strict two-phase locking and with it serializability; only
// callers that know the page was never read should use it. Normal release
// happens in TransactionComplete.
func (p *PageStore) ReleasePage(tid *primitives.TransactionID, pid primitives.PageID) {
	p.locks.Unlock(tid, pid)
}

// DiscardPage removes pid from the pool without flushing it.
func (p *PageStore) DiscardPage(pid primitives.PageID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(primitives.KeyOf(pid))
}

// FlushAllPages writes every dirty page to disk. Used for checkpointing;
// flushing pages of in-flight transactions weakens NO-STEAL, which callers
// must account for.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, key := range p.cache.Keys() {
		pg, ok := p.cache.Peek(key)
		if !ok {
			continue
		}
		if err := p.flushPageLocked(pg); err != nil {
			return err
		}
	}
	return nil
}

// FlushPage writes the named page to disk if it is dirty.
func (p *PageStore) FlushPage(pid primitives.PageID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	pg, ok := p.cache.Peek(primitives.KeyOf(pid))
	if !ok {
		return nil
	}
	return p.flushPageLocked(pg)
}

// flushPageLocked writes pg if dirty, observing the write-ahead rule: the
// update record (before- and after-image) is appended and forced before the
// data-file write. Caller holds p.mutex.
func (p *PageStore) flushPageLocked(pg page.Page) error {
	dirtier := pg.IsDirty()
	if dirtier == nil {
		return nil
	}

	pid := pg.GetID()
	if ctx, ok := p.registry.Get(dirtier); ok && ctx.WALBegun() {
		lsn, err := p.wal.LogUpdate(dirtier, pid, pg.GetBeforeImage().GetPageData(), pg.GetPageData())
		if err != nil {
			return err
		}
		if err := p.wal.Force(lsn); err != nil {
			return err
		}
		ctx.UpdateLSN(lsn)
	}

	file, err := p.tables.GetDbFile(pid.TableID())
	if err != nil {
		return err
	}

	pg.MarkDirty(false, nil)
	if err := file.WritePage(pg); err != nil {
		return err
	}

	p.log.Debugw("page flushed", "page", pid.String(), "tid", dirtier.ID())
	return nil
}

// ensureWALBegun logs BEGIN exactly once per transaction, before its first
// data operation.
func (p *PageStore) ensureWALBegun(ctx *transaction.Context) error {
	if ctx.WALBegun() {
		return nil
	}
	lsn, err := p.wal.LogBegin(ctx.ID)
	if err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to log transaction BEGIN")
	}
	ctx.MarkWALBegun()
	ctx.UpdateLSN(lsn)
	return nil
}

func (p *PageStore) markPagesDirty(ctx *transaction.Context, pages []page.Page) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pg := range pages {
		pg.MarkDirty(true, ctx.ID)
		ctx.MarkPageDirty(pg.GetID())
	}
}

// Close flushes all dirty pages and closes the WAL.
func (p *PageStore) Close() error {
	if err := p.FlushAllPages(); err != nil {
		return err
	}
	return p.wal.Close()
}
