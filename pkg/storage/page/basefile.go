package page

import (
	"os"
	"sync"

	"github.com/spf13/afero"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

// BaseFile provides the common page-granular file operations shared by all
// database file types: random-access page reads and writes, page counting,
// and atomic allocation of new pages. All I/O goes through an afero
// filesystem so tests can run against an in-memory one.
//
// Thread-safety: public methods take a read/write mutex; a write also syncs
// the file so page data is durable when the call returns.
type BaseFile struct {
	fs       afero.Fs
	file     afero.File
	tableID  primitives.TableID
	filePath primitives.Filepath
	mutex    sync.RWMutex
}

// NewBaseFile opens (creating if needed) the file at filePath on fs. The
// file's table id is the hash of its path.
func NewBaseFile(fs afero.Fs, filePath primitives.Filepath) (*BaseFile, error) {
	if filePath.IsEmpty() {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeIOFailure,
			"file path cannot be empty")
	}

	file, err := fs.OpenFile(filePath.String(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to open "+filePath.String())
	}

	return &BaseFile{
		fs:       fs,
		file:     file,
		tableID:  filePath.Hash(),
		filePath: filePath,
	}, nil
}

// TableID returns the identifier derived from the file path.
func (bf *BaseFile) TableID() primitives.TableID {
	return bf.tableID
}

// FilePath returns the path this file was opened with.
func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// NumPages returns the page count: file length divided by PageSize, rounding
// a trailing partial page up.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return 0, dberr.New(dberr.CategorySystem, dberr.CodeIOFailure, "file is closed")
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to stat file")
	}

	n := primitives.PageNumber(info.Size() / int64(PageSize))
	if info.Size()%int64(PageSize) != 0 {
		n++
	}
	return n, nil
}

// ReadPageData reads exactly PageSize bytes at offset pageNo*PageSize.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return nil, dberr.New(dberr.CategorySystem, dberr.CodeIOFailure, "file is closed")
	}

	data := make([]byte, PageSize)
	if _, err := bf.file.ReadAt(data, int64(pageNo)*int64(PageSize)); err != nil {
		return nil, err
	}
	return data, nil
}

// WritePageData writes exactly PageSize bytes at offset pageNo*PageSize and
// syncs the file.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return dberr.New(dberr.CategorySystem, dberr.CodeIOFailure, "file is closed")
	}
	if len(data) != PageSize {
		return dberr.Newf(dberr.CategoryData, dberr.CodeInvalidPage,
			"invalid page data size: expected %d, got %d", PageSize, len(data))
	}

	if _, err := bf.file.WriteAt(data, int64(pageNo)*int64(PageSize)); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to write page data")
	}
	if err := bf.file.Sync(); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to sync file")
	}
	return nil
}

// AllocateNewPage reserves the next page number by extending the file with a
// zero-filled page. The extension happens under the write lock, so
// concurrent inserts receive distinct page numbers.
func (bf *BaseFile) AllocateNewPage() (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return 0, dberr.New(dberr.CategorySystem, dberr.CodeIOFailure, "file is closed")
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to stat file")
	}

	pageNo := primitives.PageNumber(info.Size() / int64(PageSize))
	if info.Size()%int64(PageSize) != 0 {
		pageNo++
	}

	zero := make([]byte, PageSize)
	if _, err := bf.file.WriteAt(zero, int64(pageNo)*int64(PageSize)); err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to reserve page space")
	}
	if err := bf.file.Sync(); err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to sync file after page allocation")
	}

	return pageNo, nil
}

// Close closes the underlying file handle. Idempotent.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return nil
	}
	err := bf.file.Close()
	bf.file = nil
	return err
}
