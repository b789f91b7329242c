package heap

import (
	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// FileIterator walks every tuple of a heap file in page order. Each page is
// acquired ReadOnly through the buffer pool when the cursor reaches it, so a
// scan holds shared locks on all pages it has visited (strict 2PL). The
// iterator is restartable via Rewind.
type FileIterator struct {
	file     *HeapFile
	tid      *primitives.TransactionID
	pool     page.PageProvider
	pageNo   int64
	pageIter *tuple.Iterator
	opened   bool
}

// NewFileIterator creates an iterator over file for the given transaction.
func NewFileIterator(file *HeapFile, tid *primitives.TransactionID, pool page.PageProvider) *FileIterator {
	return &FileIterator{
		file:   file,
		tid:    tid,
		pool:   pool,
		pageNo: -1,
	}
}

// Open positions the cursor before the first tuple.
func (it *FileIterator) Open() error {
	it.pageNo = -1
	it.pageIter = nil
	it.opened = true
	return it.advancePage()
}

// HasNext reports whether another tuple remains.
func (it *FileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"iterator not opened")
	}

	for {
		if it.pageIter != nil && it.pageIter.HasNext() {
			return true, nil
		}
		more, err := it.morePages()
		if err != nil {
			return false, err
		}
		if !more {
			return false, nil
		}
		if err := it.advancePage(); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple.
func (it *FileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"no more tuples")
	}
	return it.pageIter.Next()
}

// Rewind restarts the scan from the first page.
func (it *FileIterator) Rewind() error {
	return it.Open()
}

// Close releases the cursor. Locks stay with the transaction until it
// completes.
func (it *FileIterator) Close() {
	it.pageIter = nil
	it.opened = false
}

func (it *FileIterator) morePages() (bool, error) {
	numPages, err := it.file.NumPages()
	if err != nil {
		return false, err
	}
	return it.pageNo+1 < int64(numPages), nil
}

func (it *FileIterator) advancePage() error {
	more, err := it.morePages()
	if err != nil {
		return err
	}
	if !more {
		it.pageIter = nil
		return nil
	}

	it.pageNo++
	pid := page.NewPageDescriptor(it.file.TableID(), primitives.PageNumber(it.pageNo))
	pg, err := it.pool.GetPage(it.tid, pid, primitives.ReadOnly)
	if err != nil {
		return err
	}

	hp, ok := pg.(*HeapPage)
	if !ok {
		return dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
			"page %v is not a heap page", pid)
	}
	it.pageIter = hp.Iterator()
	return nil
}
