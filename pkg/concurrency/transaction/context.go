// Package transaction tracks per-transaction state: lifecycle status, the
// pages a transaction has touched, and bookkeeping used by the buffer pool
// at commit and abort.
package transaction

import (
	"fmt"
	"sync"
	"time"

	"heapstore/pkg/primitives"
)

// Status is a transaction's lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusCommitted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusCommitted:
		return "COMMITTED"
	case StatusAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Context carries one transaction's state. The buffer pool records every
// page access and every page the transaction dirties. These sets are
// bookkeeping only: lock release goes through the lock manager and the
// commit/abort walks scan the pool for pages dirtied by the transaction.
type Context struct {
	ID *primitives.TransactionID

	mu          sync.RWMutex
	status      Status
	startTime   time.Time
	lockedPages map[primitives.PageKey]primitives.Permissions
	dirtyPages  map[primitives.PageKey]struct{}
	walBegun    bool
	lastLSN     primitives.LSN
}

// NewContext creates an active context for tid.
func NewContext(tid *primitives.TransactionID) *Context {
	return &Context{
		ID:          tid,
		status:      StatusActive,
		startTime:   time.Now(),
		lockedPages: make(map[primitives.PageKey]primitives.Permissions),
		dirtyPages:  make(map[primitives.PageKey]struct{}),
	}
}

// IsActive reports whether the transaction is still running.
func (c *Context) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status == StatusActive
}

// SetStatus transitions the lifecycle state.
func (c *Context) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// Status returns the current lifecycle state.
func (c *Context) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// RecordPageAccess notes that the transaction obtained pid with perm. A
// ReadWrite grant never downgrades to ReadOnly in the record.
func (c *Context) RecordPageAccess(pid primitives.PageID, perm primitives.Permissions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := primitives.KeyOf(pid)
	if cur, ok := c.lockedPages[key]; ok && cur.Satisfies(perm) {
		return
	}
	c.lockedPages[key] = perm
}

// MarkPageDirty adds pid to the transaction's dirty set.
func (c *Context) MarkPageDirty(pid primitives.PageID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirtyPages[primitives.KeyOf(pid)] = struct{}{}
}

// DirtyPages returns the keys of all pages the transaction dirtied.
func (c *Context) DirtyPages() []primitives.PageKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]primitives.PageKey, 0, len(c.dirtyPages))
	for k := range c.dirtyPages {
		out = append(out, k)
	}
	return out
}

// LockedPages returns the keys of all pages the transaction accessed.
func (c *Context) LockedPages() []primitives.PageKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]primitives.PageKey, 0, len(c.lockedPages))
	for k := range c.lockedPages {
		out = append(out, k)
	}
	return out
}

// MarkWALBegun records that a BEGIN record was written. Returns false if it
// had already been recorded, so the caller logs BEGIN exactly once.
func (c *Context) MarkWALBegun() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.walBegun {
		return false
	}
	c.walBegun = true
	return true
}

// WALBegun reports whether a BEGIN record has been written.
func (c *Context) WALBegun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.walBegun
}

// UpdateLSN records the transaction's most recent log record.
func (c *Context) UpdateLSN(lsn primitives.LSN) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLSN = lsn
}

// LastLSN returns the LSN of the transaction's most recent log record.
func (c *Context) LastLSN() primitives.LSN {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLSN
}

// Duration returns how long the transaction has been running.
func (c *Context) Duration() time.Duration {
	return time.Since(c.startTime)
}

func (c *Context) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("Transaction(%d, %s, locked=%d, dirty=%d)",
		c.ID.ID(), c.status, len(c.lockedPages), len(c.dirtyPages))
}
