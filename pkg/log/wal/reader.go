package wal

import (
	"encoding/binary"
	"io"

	"github.com/spf13/afero"

	"heapstore/pkg/dberr"
	"heapstore/pkg/log/record"
	"heapstore/pkg/primitives"
)

// MaxRecordSize bounds a single record read; anything larger means the log
// is corrupt.
const MaxRecordSize = 10 * 1024 * 1024

// LogReader scans a WAL file sequentially, record by record. ReadNext
// returns io.EOF once the log is exhausted.
type LogReader struct {
	file   afero.File
	offset int64
}

// NewLogReader opens the log at path on fs for scanning.
func NewLogReader(fs afero.Fs, path primitives.Filepath) (*LogReader, error) {
	file, err := fs.Open(path.String())
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to open log file")
	}
	return &LogReader{file: file}, nil
}

// ReadNext decodes the record at the current offset and advances past it.
func (lr *LogReader) ReadNext() (*record.LogRecord, error) {
	sizeBuf := make([]byte, record.SizePrefixLen)
	if _, err := lr.file.ReadAt(sizeBuf, lr.offset); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
			"failed to read record size")
	}

	size := binary.BigEndian.Uint32(sizeBuf)
	if size < record.SizePrefixLen || size > MaxRecordSize {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeWALFailure,
			"invalid record size %d at offset %d", size, lr.offset)
	}

	buf := make([]byte, size)
	if _, err := lr.file.ReadAt(buf, lr.offset); err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
			"failed to read record bytes")
	}

	rec, err := record.Deserialize(buf)
	if err != nil {
		return nil, err
	}

	rec.LSN = primitives.LSN(lr.offset)
	lr.offset += int64(size)
	return rec, nil
}

// Close releases the underlying file.
func (lr *LogReader) Close() error {
	return lr.file.Close()
}
