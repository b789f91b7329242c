package lock

import (
	"sync"

	"go.uber.org/zap"

	"heapstore/pkg/primitives"
)

// Manager is the page lock manager. Acquisition is non-blocking: TryAcquire
// either grants the lock or registers the transaction as waiting and returns
// false, leaving the retry loop (and the decision to abort on deadlock) to
// the caller. All locks are held until Unlock or UnlockAll. The buffer pool
// calls UnlockAll at transaction completion (strict two-phase locking); it
// calls Unlock only from ReleasePage, which releases a page early.
type Manager struct {
	mu sync.Mutex

	// locksOnPage holds the granted entries per page.
	locksOnPage map[primitives.PageKey][]*LockState

	// pagesOf is the reverse index: the pages on which a transaction holds
	// at least one entry.
	pagesOf map[*primitives.TransactionID]map[primitives.PageKey]struct{}

	// waitingFor records the single page each blocked transaction is
	// currently waiting on. A transaction is suspended inside at most one
	// GetPage call at a time, so one entry suffices.
	waitingFor map[*primitives.TransactionID]primitives.PageKey

	log *zap.SugaredLogger
}

// NewManager creates an empty lock manager.
func NewManager(log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		locksOnPage: make(map[primitives.PageKey][]*LockState),
		pagesOf:     make(map[*primitives.TransactionID]map[primitives.PageKey]struct{}),
		waitingFor:  make(map[*primitives.TransactionID]primitives.PageKey),
		log:         log,
	}
}

// TryAcquire attempts to take a lock of the strength implied by perm on pid.
// On refusal the transaction is recorded as waiting for pid and false is
// returned; a later grant (or UnlockAll, or deadlock detection) clears the
// wait entry.
func (m *Manager) TryAcquire(tid *primitives.TransactionID, pid primitives.PageID, perm primitives.Permissions) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := primitives.KeyOf(pid)

	var granted bool
	if perm == primitives.ReadWrite {
		granted = m.tryExclusive(tid, key)
	} else {
		granted = m.tryShared(tid, key)
	}

	if granted {
		delete(m.waitingFor, tid)
		return true
	}

	m.waitingFor[tid] = key
	return false
}

// tryShared grants a shared lock unless another transaction holds an
// exclusive entry on the page. A transaction that already holds any entry on
// the page is satisfied without adding a duplicate.
func (m *Manager) tryShared(tid *primitives.TransactionID, key primitives.PageKey) bool {
	entries := m.locksOnPage[key]

	for _, ls := range entries {
		if ls.TID == tid {
			return true
		}
	}
	for _, ls := range entries {
		if ls.Type == ExclusiveLock {
			return false
		}
	}

	m.grant(tid, key, SharedLock)
	return true
}

// tryExclusive grants an exclusive lock when the page is unlocked, when the
// transaction already holds the exclusive entry, or when the transaction is
// the sole holder (upgrade: the exclusive entry is added beside the existing
// shared one).
func (m *Manager) tryExclusive(tid *primitives.TransactionID, key primitives.PageKey) bool {
	entries := m.locksOnPage[key]

	if len(entries) == 0 {
		m.grant(tid, key, ExclusiveLock)
		return true
	}

	for _, ls := range entries {
		if ls.TID == tid && ls.Type == ExclusiveLock {
			return true
		}
	}
	for _, ls := range entries {
		if ls.TID != tid {
			return false
		}
	}

	// Sole holder with only a shared entry: upgrade.
	m.grant(tid, key, ExclusiveLock)
	m.log.Debugw("lock upgraded", "tid", tid.ID(), "page", key)
	return true
}

func (m *Manager) grant(tid *primitives.TransactionID, key primitives.PageKey, lt LockType) {
	m.locksOnPage[key] = append(m.locksOnPage[key], newLockState(tid, lt))
	if m.pagesOf[tid] == nil {
		m.pagesOf[tid] = make(map[primitives.PageKey]struct{})
	}
	m.pagesOf[tid][key] = struct{}{}
}

// Unlock removes every entry tid owns on pid. Reports whether at least one
// entry was removed. Releasing a page before transaction completion breaks
// serializability; only the completion path should call this.
func (m *Manager) Unlock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlock(tid, primitives.KeyOf(pid))
}

func (m *Manager) unlock(tid *primitives.TransactionID, key primitives.PageKey) bool {
	entries, ok := m.locksOnPage[key]
	if !ok {
		return false
	}

	kept := entries[:0]
	removed := false
	for _, ls := range entries {
		if ls.TID == tid {
			removed = true
			continue
		}
		kept = append(kept, ls)
	}

	if len(kept) == 0 {
		delete(m.locksOnPage, key)
	} else {
		m.locksOnPage[key] = kept
	}

	if pages, ok := m.pagesOf[tid]; ok {
		delete(pages, key)
		if len(pages) == 0 {
			delete(m.pagesOf, tid)
		}
	}

	return removed
}

// UnlockAll releases every lock held by tid and clears its wait entry.
func (m *Manager) UnlockAll(tid *primitives.TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.pagesOf[tid] {
		m.unlock(tid, key)
	}
	delete(m.pagesOf, tid)
	delete(m.waitingFor, tid)
}

// HoldsLock reports whether tid owns any entry on pid.
func (m *Manager) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ls := range m.locksOnPage[primitives.KeyOf(pid)] {
		if ls.TID == tid {
			return true
		}
	}
	return false
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (m *Manager) IsPageLocked(pid primitives.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locksOnPage[primitives.KeyOf(pid)]) > 0
}
