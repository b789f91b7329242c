// Package lock implements page-granularity two-phase locking: shared and
// exclusive locks with upgrade, a one-entry-per-transaction wait registry,
// and deadlock detection by depth-first search over the waits-for graph.
//
// A single mutex serializes every operation, so lock grants linearize and
// the deadlock traversal always sees a consistent snapshot of locks and
// waits.
package lock

import (
	"time"

	"heapstore/pkg/primitives"
)

// LockType is the strength of a held lock.
type LockType int

const (
	// SharedLock corresponds to ReadOnly access: any number of transactions
	// may hold it on a page at once.
	SharedLock LockType = iota

	// ExclusiveLock corresponds to ReadWrite access: it excludes every other
	// transaction from the page.
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "X"
	}
	return "S"
}

// LockState is one granted lock entry on a page. A page's entry list holds
// either (i) shared entries from distinct transactions, (ii) exactly one
// exclusive entry, or (iii) one shared and one exclusive entry owned by the
// same transaction after an upgrade.
type LockState struct {
	TID       *primitives.TransactionID
	Type      LockType
	GrantTime time.Time
}

func newLockState(tid *primitives.TransactionID, lt LockType) *LockState {
	return &LockState{TID: tid, Type: lt, GrantTime: time.Now()}
}
