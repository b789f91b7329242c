package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
)

// fakePage is a minimal page.Page for cache tests.
type fakePage struct {
	id      *page.PageDescriptor
	dirtier *primitives.TransactionID
}

func (f *fakePage) GetID() *page.PageDescriptor            { return f.id }
func (f *fakePage) IsDirty() *primitives.TransactionID     { return f.dirtier }
func (f *fakePage) MarkDirty(d bool, tid *primitives.TransactionID) {
	if d {
		f.dirtier = tid
	} else {
		f.dirtier = nil
	}
}
func (f *fakePage) GetPageData() []byte     { return make([]byte, page.PageSize) }
func (f *fakePage) GetBeforeImage() page.Page { return f }
func (f *fakePage) SetBeforeImage()         {}

func fp(n primitives.PageNumber) (*fakePage, primitives.PageKey) {
	p := &fakePage{id: page.NewPageDescriptor(1, n)}
	return p, primitives.KeyOf(p.GetID())
}

func TestClockCache_PutGet(t *testing.T) {
	c := NewClockCache(2)

	p0, k0 := fp(0)
	require.NoError(t, c.Put(k0, p0))

	got, ok := c.Get(k0)
	require.True(t, ok)
	assert.Same(t, page.Page(p0), got)
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, 2, c.Capacity())

	_, ok = c.Get(primitives.PageKey{Table: 1, Page: 99})
	assert.False(t, ok)
}

func TestClockCache_PutReplacesInPlace(t *testing.T) {
	c := NewClockCache(2)

	p0, k0 := fp(0)
	require.NoError(t, c.Put(k0, p0))

	replacement := &fakePage{id: p0.id}
	require.NoError(t, c.Put(k0, replacement))
	assert.Equal(t, 1, c.Size())

	got, _ := c.Peek(k0)
	assert.Same(t, page.Page(replacement), got)
}

func TestClockCache_PutWhenFull(t *testing.T) {
	c := NewClockCache(1)

	p0, k0 := fp(0)
	require.NoError(t, c.Put(k0, p0))

	_, k1 := fp(1)
	assert.Error(t, c.Put(k1, &fakePage{}))
}

func TestClockCache_EvictSecondChance(t *testing.T) {
	c := NewClockCache(3)

	var keys []primitives.PageKey
	for n := primitives.PageNumber(0); n < 3; n++ {
		p, k := fp(n)
		require.NoError(t, c.Put(k, p))
		keys = append(keys, k)
	}

	// All reference bits are set; the sweep clears them in order and evicts
	// the slot it started from.
	victim, err := c.Evict()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(0), victim.GetID().PageNo())
	assert.Equal(t, 2, c.Size())
	_, ok := c.Peek(keys[0])
	assert.False(t, ok)

	// Touching page 2 gives it a second chance over page 1.
	_, ok = c.Get(keys[2])
	require.True(t, ok)
	victim, err = c.Evict()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(1), victim.GetID().PageNo())
}

func TestClockCache_EvictSkipsDirty(t *testing.T) {
	c := NewClockCache(3)
	tid := primitives.NewTransactionID()

	for n := primitives.PageNumber(0); n < 3; n++ {
		p, k := fp(n)
		if n != 2 {
			p.MarkDirty(true, tid)
		}
		require.NoError(t, c.Put(k, p))
	}

	victim, err := c.Evict()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(2), victim.GetID().PageNo())
}

func TestClockCache_EvictAllDirty(t *testing.T) {
	c := NewClockCache(2)
	tid := primitives.NewTransactionID()

	for n := primitives.PageNumber(0); n < 2; n++ {
		p, k := fp(n)
		p.MarkDirty(true, tid)
		require.NoError(t, c.Put(k, p))
	}

	_, err := c.Evict()
	require.Error(t, err)
	assert.True(t, dberr.HasCode(err, dberr.CodeAllPagesDirty))
}

func TestClockCache_EvictEmpty(t *testing.T) {
	c := NewClockCache(2)
	_, err := c.Evict()
	assert.Error(t, err)
}

func TestClockCache_Remove(t *testing.T) {
	c := NewClockCache(2)

	p0, k0 := fp(0)
	require.NoError(t, c.Put(k0, p0))
	c.Remove(k0)

	assert.Equal(t, 0, c.Size())
	c.Remove(k0) // idempotent

	// The freed slot is reusable.
	p1, k1 := fp(1)
	require.NoError(t, c.Put(k1, p1))
	assert.Equal(t, 1, c.Size())
}
