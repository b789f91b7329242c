package wal

import (
	"io"

	"heapstore/pkg/primitives"
)

// LogWriter appends serialized records through a fixed buffer. The LSN of a
// record is its byte offset in the log file; currentLSN tracks the append
// position including buffered bytes, flushedLSN tracks what is on disk.
type LogWriter struct {
	out          io.WriterAt
	currentLSN   primitives.LSN
	flushedLSN   primitives.LSN
	buffer       []byte
	bufferOffset int
}

// NewLogWriter creates a writer positioned at the end of the existing log.
func NewLogWriter(out io.WriterAt, bufferSize int, end primitives.LSN) *LogWriter {
	return &LogWriter{
		out:        out,
		buffer:     make([]byte, bufferSize),
		currentLSN: end,
		flushedLSN: end,
	}
}

// Append buffers data and returns the LSN assigned to it. Records larger
// than the buffer bypass it and go straight to disk.
func (w *LogWriter) Append(data []byte) (primitives.LSN, error) {
	assigned := w.currentLSN

	if len(data) > len(w.buffer) {
		if err := w.flush(); err != nil {
			return 0, err
		}
		if _, err := w.out.WriteAt(data, int64(w.flushedLSN)); err != nil {
			return 0, err
		}
		w.currentLSN += primitives.LSN(len(data))
		w.flushedLSN = w.currentLSN
		return assigned, nil
	}

	if w.bufferOffset+len(data) > len(w.buffer) {
		if err := w.flush(); err != nil {
			return 0, err
		}
	}

	copy(w.buffer[w.bufferOffset:], data)
	w.bufferOffset += len(data)
	w.currentLSN += primitives.LSN(len(data))
	return assigned, nil
}

// Force guarantees every byte up to lsn is on disk.
func (w *LogWriter) Force(lsn primitives.LSN) error {
	if w.flushedLSN > lsn {
		return nil
	}
	return w.flush()
}

// CurrentLSN returns the next append position.
func (w *LogWriter) CurrentLSN() primitives.LSN {
	return w.currentLSN
}

// Close flushes any buffered bytes.
func (w *LogWriter) Close() error {
	return w.flush()
}

func (w *LogWriter) flush() error {
	if w.bufferOffset == 0 {
		return nil
	}
	if _, err := w.out.WriteAt(w.buffer[:w.bufferOffset], int64(w.flushedLSN)); err != nil {
		return err
	}
	w.flushedLSN = w.currentLSN
	w.bufferOffset = 0
	return nil
}
