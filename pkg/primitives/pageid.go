package primitives

// PageID identifies a page: the table it belongs to and its position within
// the table file. Concrete implementations live with the storage layer.
type PageID interface {
	// TableID returns the table this page belongs to.
	TableID() TableID

	// PageNo returns the page number within the table.
	PageNo() PageNumber

	// Serialize returns the id as a fixed 16-byte little-endian encoding.
	Serialize() []byte

	// Equals checks if two page ids name the same page.
	Equals(other PageID) bool

	// HashCode returns a hash of this page id.
	HashCode() HashCode

	String() string
}

// PageKey is the comparable value form of a PageID, used as the key of every
// map keyed by page (buffer pool slots, lock table, wait registry). Two
// PageID instances naming the same page always collapse to one PageKey.
type PageKey struct {
	Table TableID
	Page  PageNumber
}

// KeyOf derives the map key for a page id.
func KeyOf(pid PageID) PageKey {
	return PageKey{Table: pid.TableID(), Page: pid.PageNo()}
}
