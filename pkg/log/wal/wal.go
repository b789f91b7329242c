// Package wal implements the write-ahead log. The engine writes an update
// record (before- and after-image) for every dirty page and forces the log
// before that page reaches its data file; commit records are forced before
// commit returns.
package wal

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"heapstore/pkg/dberr"
	"heapstore/pkg/log/record"
	"heapstore/pkg/primitives"
)

// txnLogInfo tracks a transaction's record chain.
type txnLogInfo struct {
	firstLSN primitives.LSN
	lastLSN  primitives.LSN
}

// WAL is the write-ahead log facade. All operations are serialized by one
// mutex, which stays held across disk writes and syncs (Force, LogCommit,
// Close, and any append that spills the writer's buffer).
type WAL struct {
	mu         sync.Mutex
	file       afero.File
	writer     *LogWriter
	activeTxns map[*primitives.TransactionID]*txnLogInfo
	log        *zap.SugaredLogger
}

// NewWAL opens (creating if needed) the log file at path on fs and positions
// the writer at its end.
func NewWAL(fs afero.Fs, path primitives.Filepath, bufferSize int, log *zap.SugaredLogger) (*WAL, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	file, err := fs.OpenFile(path.String(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to open WAL file")
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to seek to end of WAL")
	}

	return &WAL{
		file:       file,
		writer:     NewLogWriter(file, bufferSize, primitives.LSN(end)),
		activeTxns: make(map[*primitives.TransactionID]*txnLogInfo),
		log:        log,
	}, nil
}

// LogBegin writes a BEGIN record for tid.
func (w *WAL) LogBegin(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lsn, err := w.append(record.NewTransactionRecord(record.BeginRecord, tid, 0))
	if err != nil {
		return 0, err
	}

	w.activeTxns[tid] = &txnLogInfo{firstLSN: lsn, lastLSN: lsn}
	return lsn, nil
}

// LogUpdate writes an update record carrying the page's before- and
// after-image. Called before the page itself is written to its data file.
func (w *WAL) LogUpdate(tid *primitives.TransactionID, pid primitives.PageID, before, after []byte) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.txnInfo(tid)
	if err != nil {
		return 0, err
	}

	rec := record.NewUpdateRecord(tid, primitives.KeyOf(pid), before, after, info.lastLSN)
	lsn, err := w.append(rec)
	if err != nil {
		return 0, err
	}

	info.lastLSN = lsn
	return lsn, nil
}

// LogCommit writes a COMMIT record and forces the log. Once it returns the
// transaction is durable regardless of when its pages reach disk.
func (w *WAL) LogCommit(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.txnInfo(tid)
	if err != nil {
		return 0, err
	}

	lsn, err := w.append(record.NewTransactionRecord(record.CommitRecord, tid, info.lastLSN))
	if err != nil {
		return 0, err
	}

	if err := w.force(lsn); err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to force commit record")
	}

	delete(w.activeTxns, tid)
	w.log.Debugw("transaction committed in WAL", "tid", tid.ID(), "lsn", uint64(lsn))
	return lsn, nil
}

// LogAbort writes an ABORT record for tid.
func (w *WAL) LogAbort(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.txnInfo(tid)
	if err != nil {
		return 0, err
	}

	lsn, err := w.append(record.NewTransactionRecord(record.AbortRecord, tid, info.lastLSN))
	if err != nil {
		return 0, err
	}

	delete(w.activeTxns, tid)
	return lsn, nil
}

// Force guarantees all records up to and including lsn are on disk.
func (w *WAL) Force(lsn primitives.LSN) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.force(lsn)
}

// LastLSN returns the most recent record LSN of an active transaction.
func (w *WAL) LastLSN(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.txnInfo(tid)
	if err != nil {
		return 0, err
	}
	return info.lastLSN, nil
}

// ActiveTransactions returns the ids with a BEGIN but no COMMIT/ABORT yet.
func (w *WAL) ActiveTransactions() []*primitives.TransactionID {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*primitives.TransactionID, 0, len(w.activeTxns))
	for tid := range w.activeTxns {
		out = append(out, tid)
	}
	return out
}

// Close flushes buffered records and closes the log file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Close(); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to flush WAL writer")
	}
	if err := w.file.Sync(); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to sync WAL file")
	}
	return w.file.Close()
}

func (w *WAL) force(lsn primitives.LSN) error {
	if err := w.writer.Force(lsn); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *WAL) append(rec *record.LogRecord) (primitives.LSN, error) {
	data, err := rec.Serialize()
	if err != nil {
		return 0, err
	}
	lsn, err := w.writer.Append(data)
	if err != nil {
		return 0, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
			"failed to append log record")
	}
	return lsn, nil
}

func (w *WAL) txnInfo(tid *primitives.TransactionID) (*txnLogInfo, error) {
	info, ok := w.activeTxns[tid]
	if !ok {
		return nil, dberr.Newf(dberr.CategorySystem, dberr.CodeWALFailure,
			"transaction %d has no BEGIN record", tid.ID())
	}
	return info, nil
}
