package tuple

import "heapstore/pkg/dberr"

// Iterator walks an in-memory slice of tuples. It backs per-page iteration
// and is restartable via Rewind.
type Iterator struct {
	tuples []*Tuple
	index  int
}

// NewIterator creates an iterator over the given tuples.
func NewIterator(tuples []*Tuple) *Iterator {
	return &Iterator{tuples: tuples, index: -1}
}

// HasNext reports whether another tuple remains.
func (it *Iterator) HasNext() bool {
	return it.index+1 < len(it.tuples)
}

// Next returns the next tuple.
func (it *Iterator) Next() (*Tuple, error) {
	if !it.HasNext() {
		return nil, dberr.New(dberr.CategoryUser, dberr.CodeNoSuchTuple,
			"no more tuples")
	}
	it.index++
	return it.tuples[it.index], nil
}

// Rewind resets the iterator to the beginning.
func (it *Iterator) Rewind() {
	it.index = -1
}
