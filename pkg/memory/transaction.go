package memory

import (
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
)

// TransactionComplete finishes tid: commit makes its changes durable, abort
// erases them. Either way every lock the transaction holds is released
// first (strict 2PL release point), then the pool pages dirtied by tid are
// walked:
//
//   - commit: each dirty page is flushed (update record forced ahead of the
//     data write) and its current content becomes the new before-image
//     (FORCE policy), then the COMMIT record is forced;
//   - abort: each dirty page is replaced by a fresh read of its on-disk
//     image, which is untouched because NO-STEAL kept every uncommitted
//     write in memory.
func (p *PageStore) TransactionComplete(tid *primitives.TransactionID, commit bool) error {
	ctx, tracked := p.registry.Get(tid)

	p.locks.UnlockAll(tid)

	var err error
	if commit {
		err = p.commitPages(tid, ctx, tracked)
	} else {
		err = p.revertPages(tid, ctx, tracked)
	}

	if tracked {
		if commit && err == nil {
			ctx.SetStatus(transaction.StatusCommitted)
		} else {
			ctx.SetStatus(transaction.StatusAborted)
		}
	}
	p.registry.Remove(tid)

	p.log.Debugw("transaction complete", "tid", tid.ID(), "commit", commit)
	return err
}

// CommitTransaction is shorthand for TransactionComplete(tid, true).
func (p *PageStore) CommitTransaction(tid *primitives.TransactionID) error {
	return p.TransactionComplete(tid, true)
}

// AbortTransaction is shorthand for TransactionComplete(tid, false).
func (p *PageStore) AbortTransaction(tid *primitives.TransactionID) error {
	return p.TransactionComplete(tid, false)
}

func (p *PageStore) commitPages(tid *primitives.TransactionID, ctx *transaction.Context, tracked bool) error {
	p.mutex.Lock()
	for _, pg := range p.dirtyByLocked(tid) {
		if err := p.flushPageLocked(pg); err != nil {
			p.mutex.Unlock()
			return err
		}
		pg.SetBeforeImage()
	}
	p.mutex.Unlock()

	if tracked && ctx.WALBegun() {
		if _, err := p.wal.LogCommit(tid); err != nil {
			return err
		}
	}
	return nil
}

func (p *PageStore) revertPages(tid *primitives.TransactionID, ctx *transaction.Context, tracked bool) error {
	if tracked && ctx.WALBegun() {
		if _, err := p.wal.LogAbort(tid); err != nil {
			return err
		}
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pg := range p.dirtyByLocked(tid) {
		key := primitives.KeyOf(pg.GetID())

		file, err := p.tables.GetDbFile(key.Table)
		if err != nil {
			p.cache.Remove(key)
			continue
		}
		fresh, err := file.ReadPage(pg.GetID())
		if err != nil {
			p.cache.Remove(key)
			continue
		}
		if err := p.cache.Put(key, fresh); err != nil {
			return err
		}
	}
	return nil
}

// dirtyByLocked scans the pool for pages whose dirtier is tid. The pool is
// small, so the scan beats maintaining a parallel per-transaction index.
// Caller holds p.mutex.
func (p *PageStore) dirtyByLocked(tid *primitives.TransactionID) []page.Page {
	var out []page.Page
	for _, key := range p.cache.Keys() {
		pg, ok := p.cache.Peek(key)
		if !ok {
			continue
		}
		if pg.IsDirty() == tid {
			out = append(out, pg)
		}
	}
	return out
}
