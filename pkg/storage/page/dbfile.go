package page

import (
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
)

// PageProvider is the upward interface to the buffer pool that storage files
// use to fetch pages. Mutating paths (tuple insert/delete) acquire their
// target pages with ReadWrite through the pool so that locking and caching
// stay centralized; the files never read a page behind the pool's back.
type PageProvider interface {
	GetPage(tid *primitives.TransactionID, pid primitives.PageID, perm primitives.Permissions) (Page, error)
}

// DbFile is a table's backing file: a sequence of PageSize-byte pages
// holding tuples of one schema.
type DbFile interface {
	// ReadPage reads the page from disk. The page id must belong to this
	// file and lie within its current bounds.
	ReadPage(pid primitives.PageID) (Page, error)

	// WritePage persists a page at the offset given by its page number.
	WritePage(p Page) error

	// AddTuple inserts t into a page with free space, appending a new page
	// if the table is full. Pages are obtained through pool with ReadWrite.
	// Returns the pages that were modified.
	AddTuple(tid *primitives.TransactionID, t *tuple.Tuple, pool PageProvider) ([]Page, error)

	// DeleteTuple removes t from the page named by its record id. Returns
	// the modified page.
	DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, pool PageProvider) (Page, error)

	// TableID returns the stable identifier of this file.
	TableID() primitives.TableID

	// TupleDesc returns the schema of the tuples stored in this file.
	TupleDesc() *tuple.TupleDescription

	// NumPages returns the number of pages currently in the file.
	NumPages() (primitives.PageNumber, error)

	// Close releases the underlying file handle.
	Close() error
}
