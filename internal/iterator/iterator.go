// Package iterator defines the forward-only cursor interfaces shared by
// the memtable, sstable and merge packages.
package iterator

import "github.com/maksimshengeliia/lsmkv/internal/base"

// CellIterator yields Cells in ascending key order (Cell.COMPARATOR's
// primary key, per spec.md §4.2/§4.3). Next returns (Cell{}, false) once
// exhausted or after an error; callers must check Err after a false
// return to distinguish the two.
type CellIterator interface {
	Next() (base.Cell, bool)
	Err() error
	Close() error
}

// RecordIterator yields the host-facing view: live records, tombstones and
// timestamps already stripped by the merge operator (spec.md §4.4).
type RecordIterator interface {
	Next() (base.Record, bool)
	Err() error
	Close() error
}

// Slice adapts an in-memory, already-ordered []base.Cell into a
// CellIterator. Used for the MemTable snapshot and for feeding a
// compacted, collected Cell set back into sstable.Serialize.
type Slice struct {
	cells []base.Cell
	pos   int
}

// NewSlice returns a CellIterator over cells, which must already be in
// ascending key order.
func NewSlice(cells []base.Cell) *Slice {
	return &Slice{cells: cells}
}

func (s *Slice) Next() (base.Cell, bool) {
	if s.pos >= len(s.cells) {
		return base.Cell{}, false
	}
	c := s.cells[s.pos]
	s.pos++
	return c, true
}

func (s *Slice) Err() error   { return nil }
func (s *Slice) Close() error { return nil }
