package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"heapstore/pkg/primitives"
)

// PageDescriptor is the concrete page identity: the owning table and the
// page number within the table file.
type PageDescriptor struct {
	tableID primitives.TableID
	pageNum primitives.PageNumber
}

// NewPageDescriptor creates a page id for the given table and page number.
func NewPageDescriptor(tableID primitives.TableID, pageNum primitives.PageNumber) *PageDescriptor {
	return &PageDescriptor{tableID: tableID, pageNum: pageNum}
}

// TableID returns the table this page belongs to.
func (pd *PageDescriptor) TableID() primitives.TableID {
	return pd.tableID
}

// PageNo returns the page number within the table.
func (pd *PageDescriptor) PageNo() primitives.PageNumber {
	return pd.pageNum
}

// Serialize returns the id as 16 little-endian bytes: table id then page
// number.
func (pd *PageDescriptor) Serialize() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(pd.tableID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(pd.pageNum))
	return buf
}

// Equals checks if two page ids name the same page.
func (pd *PageDescriptor) Equals(other primitives.PageID) bool {
	if other == nil {
		return false
	}
	return pd.tableID == other.TableID() && pd.pageNum == other.PageNo()
}

// HashCode hashes the serialized (tableID, pageNumber) pair.
func (pd *PageDescriptor) HashCode() primitives.HashCode {
	return primitives.HashCode(xxhash.Sum64(pd.Serialize()))
}

func (pd *PageDescriptor) String() string {
	return fmt.Sprintf("PageDescriptor(table=%d, page=%d)", pd.tableID, pd.pageNum)
}
