package heap

import (
	"github.com/spf13/afero"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// HeapFile is a table backed by a single file of heap pages. Page k lives at
// byte offset k * page.PageSize; the page count is the file length divided
// by the page size. It implements page.DbFile.
//
// All tuple-level operations go through the buffer pool (the PageProvider
// argument): inserts and deletes with ReadWrite permission, scans with
// ReadOnly, so locking, caching and dirty tracking remain the pool's business; this type only performs the raw page
// I/O and chooses where tuples go.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
}

// NewHeapFile opens (creating if needed) the heap file at filePath on fs.
func NewHeapFile(fs afero.Fs, filePath primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	base, err := page.NewBaseFile(fs, filePath)
	if err != nil {
		return nil, err
	}
	return &HeapFile{BaseFile: base, tupleDesc: td}, nil
}

// TupleDesc returns the schema of tuples stored in this file.
func (hf *HeapFile) TupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads one page from disk. The id must belong to this table and
// its page number must be within the file's current bounds.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	desc, err := hf.validatePageID(pid)
	if err != nil {
		return nil, err
	}

	data, err := hf.ReadPageData(desc.PageNo())
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to read page data").In("HeapFile", "ReadPage")
	}

	return NewHeapPage(desc, data, hf.tupleDesc)
}

// WritePage persists a page at the offset given by its page number.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return dberr.New(dberr.CategoryUser, dberr.CodeInvalidPage, "page cannot be nil")
	}
	return hf.WritePageData(p.GetID().PageNo(), p.GetPageData())
}

// AddTuple walks the existing pages looking for a free slot, fetching each
// candidate through the pool with ReadWrite. When every page is full it
// appends a fresh page to the file, fetches it through the pool, and inserts
// there. Returns the single page that was modified.
func (hf *HeapFile) AddTuple(tid *primitives.TransactionID, t *tuple.Tuple, pool page.PageProvider) ([]page.Page, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := page.NewPageDescriptor(hf.TableID(), pageNo)
		pg, err := pool.GetPage(tid, pid, primitives.ReadWrite)
		if err != nil {
			return nil, err
		}

		hp, ok := pg.(*HeapPage)
		if !ok {
			return nil, dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
				"page %v is not a heap page", pid)
		}
		if hp.NumEmptySlots() == 0 {
			continue
		}

		if err := hp.InsertTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{hp}, nil
	}

	// Every existing page is full: extend the file, then take the new page
	// through the pool so it is cached and locked like any other.
	pageNo, err := hf.AllocateNewPage()
	if err != nil {
		return nil, err
	}

	pid := page.NewPageDescriptor(hf.TableID(), pageNo)
	pg, err := pool.GetPage(tid, pid, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}

	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
			"page %v is not a heap page", pid)
	}
	if err := hp.InsertTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{hp}, nil
}

// DeleteTuple removes t from the page named by its record id, fetched with
// ReadWrite through the pool.
func (hf *HeapFile) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, pool page.PageProvider) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"tuple has no record id")
	}

	pg, err := pool.GetPage(tid, t.RecordID.PageID, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}

	hp, ok := pg.(*HeapPage)
	if !ok {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
			"page %v is not a heap page", t.RecordID.PageID)
	}
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator returns a lazy cursor over every tuple in the file. Pages are
// acquired ReadOnly through the pool as the cursor advances.
func (hf *HeapFile) Iterator(tid *primitives.TransactionID, pool page.PageProvider) *FileIterator {
	return NewFileIterator(hf, tid, pool)
}

func (hf *HeapFile) validatePageID(pid primitives.PageID) (*page.PageDescriptor, error) {
	if pid == nil {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeInvalidPage,
			"page id cannot be nil")
	}
	if pid.TableID() != hf.TableID() {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidPage,
			"page %v does not belong to table %d", pid, hf.TableID())
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}
	if pid.PageNo() >= numPages {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodePageOutOfRange,
			"page %d beyond end of file (%d pages)", pid.PageNo(), numPages)
	}

	return page.NewPageDescriptor(pid.TableID(), pid.PageNo()), nil
}
