// Package record defines the WAL record types and their binary codec.
package record

import (
	"bytes"
	"encoding/binary"
	"time"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

// Type tags a WAL record.
type Type uint8

const (
	BeginRecord Type = iota
	CommitRecord
	AbortRecord

	// UpdateRecord carries a page's before- and after-image. One is written
	// and forced before the page's data-file write (write-ahead rule).
	UpdateRecord
)

func (t Type) String() string {
	switch t {
	case BeginRecord:
		return "BEGIN"
	case CommitRecord:
		return "COMMIT"
	case AbortRecord:
		return "ABORT"
	case UpdateRecord:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// SizePrefixLen is the length of the record's leading size field.
const SizePrefixLen = 4

// headerLen covers type, tid, prevLSN and timestamp.
const headerLen = 1 + 8 + 8 + 8

// LogRecord is one entry in the WAL.
//
// Binary format, big-endian:
//
//	[size:4][type:1][tid:8][prevLSN:8][timestamp:8][payload]
//
// Update records carry a payload of
// [tableID:8][pageNo:8][beforeLen:4][before][afterLen:4][after]; transaction
// records have no payload. The size field counts the whole record including
// itself, enabling sequential scans. PrevLSN links a transaction's records
// into a backward chain.
type LogRecord struct {
	LSN     primitives.LSN
	Type    Type
	TID     *primitives.TransactionID
	PrevLSN primitives.LSN

	Page        primitives.PageKey
	BeforeImage []byte
	AfterImage  []byte

	Timestamp time.Time
}

// NewTransactionRecord builds a Begin/Commit/Abort record.
func NewTransactionRecord(t Type, tid *primitives.TransactionID, prevLSN primitives.LSN) *LogRecord {
	return &LogRecord{
		Type:      t,
		TID:       tid,
		PrevLSN:   prevLSN,
		Timestamp: time.Now(),
	}
}

// NewUpdateRecord builds an update record for a page write.
func NewUpdateRecord(tid *primitives.TransactionID, pg primitives.PageKey, before, after []byte, prevLSN primitives.LSN) *LogRecord {
	return &LogRecord{
		Type:        UpdateRecord,
		TID:         tid,
		PrevLSN:     prevLSN,
		Page:        pg,
		BeforeImage: before,
		AfterImage:  after,
		Timestamp:   time.Now(),
	}
}

// Serialize encodes the record, including its size prefix.
func (l *LogRecord) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	var tid uint64
	if l.TID != nil {
		tid = l.TID.ID()
	}

	header := []any{
		byte(l.Type),
		tid,
		uint64(l.PrevLSN),
		uint64(l.Timestamp.Unix()),
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
				"failed to encode record header")
		}
	}

	if l.Type == UpdateRecord {
		payload := []any{
			uint64(l.Page.Table),
			uint64(l.Page.Page),
			uint32(len(l.BeforeImage)),
		}
		for _, v := range payload {
			if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
				return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
					"failed to encode update payload")
			}
		}
		buf.Write(l.BeforeImage)
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(l.AfterImage))); err != nil {
			return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeWALFailure,
				"failed to encode update payload")
		}
		buf.Write(l.AfterImage)
	}

	body := buf.Bytes()
	out := make([]byte, SizePrefixLen+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	copy(out[SizePrefixLen:], body)
	return out, nil
}

// Deserialize decodes a full record (size prefix included).
func Deserialize(data []byte) (*LogRecord, error) {
	if len(data) < SizePrefixLen+headerLen {
		return nil, dberr.New(dberr.CategoryData, dberr.CodeWALFailure,
			"log record too short")
	}
	size := binary.BigEndian.Uint32(data)
	if int(size) != len(data) {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeWALFailure,
			"log record size mismatch: header says %d, have %d", size, len(data))
	}

	r := bytes.NewReader(data[SizePrefixLen:])
	rec := &LogRecord{}

	var (
		typ byte
		tid uint64
		pl  uint64
		ts  uint64
	)
	for _, dst := range []any{&typ, &tid, &pl, &ts} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
				"failed to decode record header")
		}
	}
	rec.Type = Type(typ)
	rec.TID = primitives.NewTransactionIDFromValue(tid)
	rec.PrevLSN = primitives.LSN(pl)
	rec.Timestamp = time.Unix(int64(ts), 0)

	if rec.Type == UpdateRecord {
		var (
			table  uint64
			pageNo uint64
		)
		if err := binary.Read(r, binary.BigEndian, &table); err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
				"failed to decode update payload")
		}
		if err := binary.Read(r, binary.BigEndian, &pageNo); err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
				"failed to decode update payload")
		}
		rec.Page = primitives.PageKey{
			Table: primitives.TableID(table),
			Page:  primitives.PageNumber(pageNo),
		}

		var err error
		if rec.BeforeImage, err = readImage(r); err != nil {
			return nil, err
		}
		if rec.AfterImage, err = readImage(r); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func readImage(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
			"failed to decode image length")
	}
	if n == 0 {
		return nil, nil
	}
	if int(n) > r.Len() {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeWALFailure,
			"image length %d exceeds remaining record bytes %d", n, r.Len())
	}
	img := make([]byte, n)
	if _, err := r.Read(img); err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeWALFailure,
			"failed to read image bytes")
	}
	return img, nil
}
