// Package memtable implements the in-memory write buffer: an ordered map
// from key to base.Value, with byte-accurate size accounting (spec.md
// §4.2).
package memtable

import (
	"bytes"

	"github.com/zhangyunhao116/skipmap"

	"github.com/maksimshengeliia/lsmkv/internal/base"
	"github.com/maksimshengeliia/lsmkv/internal/clock"
	"github.com/maksimshengeliia/lsmkv/internal/iterator"
)

// MemTable is an ordered in-memory buffer of pending writes. It is not
// internally synchronized: per spec.md §5, callers must serialize
// operations on a single engine instance themselves.
type MemTable struct {
	entries *skipmap.FuncMap[string, base.Value]
	size    int64
	now     clock.Source
}

// New returns an empty MemTable that assigns write timestamps by calling
// now. now must be monotonically nondecreasing across calls.
func New(now clock.Source) *MemTable {
	return &MemTable{
		entries: skipmap.NewFunc[string, base.Value](func(a, b string) bool { return a < b }),
		now:     now,
	}
}

// Upsert assigns a fresh timestamp and inserts or replaces key's entry.
func (m *MemTable) Upsert(key, payload []byte) {
	k := string(key)
	v := base.Live(base.Timestamp(m.now()), payload)
	if prev, ok := m.entries.Load(k); ok {
		m.size += int64(len(payload)) - int64(prev.PayloadLen())
	} else {
		m.size += int64(len(key)) + int64(len(payload))
	}
	m.entries.Store(k, v)
}

// Remove installs a tombstone for key with a fresh timestamp.
func (m *MemTable) Remove(key []byte) {
	k := string(key)
	v := base.Tombstone(base.Timestamp(m.now()))
	if prev, ok := m.entries.Load(k); ok {
		if !prev.IsRemoved() {
			m.size -= int64(prev.PayloadLen())
		}
	} else {
		m.size += int64(len(key))
	}
	m.entries.Store(k, v)
}

// SizeInBytes is the running byte-accounting total: the sum over entries
// of len(key)+len(payload), where a tombstone contributes only len(key).
func (m *MemTable) SizeInBytes() int64 {
	return m.size
}

// Size is the number of entries (live and tombstone) currently held.
func (m *MemTable) Size() int {
	return m.entries.Len()
}

// Iterator returns a snapshot, forward CellIterator over entries whose key
// is >= from, in ascending key order. The snapshot is consistent with the
// MemTable's state at the time Iterator is called; it does not observe
// later writes. Pass a nil or empty from to iterate from the beginning.
func (m *MemTable) Iterator(from []byte) iterator.CellIterator {
	cells := make([]base.Cell, 0, m.entries.Len())
	m.entries.Range(func(key string, v base.Value) bool {
		k := []byte(key)
		if bytes.Compare(k, from) >= 0 {
			cells = append(cells, base.Cell{Key: k, Value: v})
		}
		return true
	})
	return iterator.NewSlice(cells)
}

// Close is a no-op; the buffer may simply be dropped.
func (m *MemTable) Close() error {
	return nil
}
