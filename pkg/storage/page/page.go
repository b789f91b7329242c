// Package page defines the page abstraction shared by the buffer pool and
// the storage files: the Page interface, page identity, and the file layer
// that reads and writes fixed-size pages.
package page

import "heapstore/pkg/primitives"

// DefaultPageSize is the standard page size in bytes.
const DefaultPageSize = 4096

// PageSize is the process-global page size. It defaults to DefaultPageSize;
// tests may shrink it before any file or page is created. All offsets in a
// table file are multiples of this value.
var PageSize = DefaultPageSize

// Page is a fixed-size block resident in the buffer pool. Pages may be
// dirty, meaning they were modified since they were last written to disk.
type Page interface {
	// GetID returns the identity of this page.
	GetID() *PageDescriptor

	// IsDirty returns the transaction that dirtied this page, or nil if the
	// page is clean. A page is dirtied by at most one transaction at a time
	// because mutation requires the exclusive lock.
	IsDirty() *primitives.TransactionID

	// MarkDirty sets or clears the dirty marker.
	MarkDirty(dirty bool, tid *primitives.TransactionID)

	// GetPageData serializes the page's current content to exactly PageSize
	// bytes.
	GetPageData() []byte

	// GetBeforeImage returns a page holding the content as of transaction
	// begin / last commit. Used to build WAL undo records.
	GetBeforeImage() Page

	// SetBeforeImage adopts the current content as the new baseline. Called
	// when the dirtying transaction commits.
	SetBeforeImage()
}
