package memtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns a clock.Source that ticks 1, 2, 3, ... so tests get
// deterministic, strictly increasing timestamps.
func sequence() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestUpsertNewKeySizeDelta(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("a"), []byte("1"))
	assert.EqualValues(t, len("a")+len("1"), m.SizeInBytes())
	assert.Equal(t, 1, m.Size())
}

func TestUpsertReplaceLiveSizeDelta(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("a"), []byte("1"))
	m.Upsert([]byte("a"), []byte("22"))
	assert.EqualValues(t, len("a")+len("22"), m.SizeInBytes())
	assert.Equal(t, 1, m.Size())
}

func TestUpsertReplaceTombstoneSizeDelta(t *testing.T) {
	m := New(sequence())
	m.Remove([]byte("a"))
	assert.EqualValues(t, len("a"), m.SizeInBytes())
	m.Upsert([]byte("a"), []byte("123"))
	assert.EqualValues(t, len("a")+len("123"), m.SizeInBytes())
}

func TestRemoveNewKeySizeDelta(t *testing.T) {
	m := New(sequence())
	m.Remove([]byte("abc"))
	assert.EqualValues(t, len("abc"), m.SizeInBytes())
}

func TestRemoveLiveKeySizeDelta(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("a"), []byte("12345"))
	m.Remove([]byte("a"))
	assert.EqualValues(t, len("a"), m.SizeInBytes())
}

func TestRemoveTombstoneIsNoOp(t *testing.T) {
	m := New(sequence())
	m.Remove([]byte("a"))
	before := m.SizeInBytes()
	m.Remove([]byte("a"))
	assert.Equal(t, before, m.SizeInBytes())
}

func TestIteratorOrderAndLowerBound(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("b"), []byte("2"))
	m.Upsert([]byte("d"), []byte("4"))
	m.Upsert([]byte("a"), []byte("1"))
	m.Upsert([]byte("c"), []byte("3"))

	it := m.Iterator([]byte("b"))
	var keys []string
	for {
		cell, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, string(cell.Key))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"b", "c", "d"}, keys)
}

func TestIteratorFromEmptyYieldsEverything(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("a"), []byte("1"))
	m.Upsert([]byte("b"), []byte("2"))

	it := m.Iterator(nil)
	var count int
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestIteratorIsSnapshotAtConstruction(t *testing.T) {
	m := New(sequence())
	m.Upsert([]byte("a"), []byte("1"))

	it := m.Iterator(nil)
	m.Upsert([]byte("b"), []byte("2"))

	var keys []string
	for {
		cell, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, string(cell.Key))
	}
	assert.Equal(t, []string{"a"}, keys)
}
