// Package merge implements the merge operator of spec.md §4.4: a k-way
// sorted merge of Cell iterators under Cell.COMPARATOR, collapse-equals
// (keep the freshest Cell per key), and the tombstone filter that projects
// surviving Cells to Records.
package merge

import (
	"bytes"
	"container/heap"

	"github.com/hashicorp/go-multierror"

	"github.com/maksimshengeliia/lsmkv/internal/base"
	"github.com/maksimshengeliia/lsmkv/internal/iterator"
)

// heapItem is one source's current head Cell, tracked alongside the
// source's index so Next can pull its replacement.
type heapItem struct {
	cell base.Cell
	src  int
}

type cellHeap []heapItem

func (h cellHeap) Len() int            { return len(h) }
func (h cellHeap) Less(i, j int) bool  { return base.Less(h[i].cell, h[j].cell) }
func (h cellHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cellHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *cellHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// cellMerger is a k-way merge over its sources, collapsed to one Cell per
// key (the freshest, per Cell.COMPARATOR's tie-break). It does not filter
// tombstones; callers that want the host-facing view should wrap it with
// Records, and callers that want compact's live-view (tombstones dropped,
// Cells kept) should wrap it with FilterLive.
type cellMerger struct {
	sources []iterator.CellIterator
	h       cellHeap
	err     error
	lastKey []byte
	hasLast bool
}

// MergeCells returns a CellIterator over the union of sources under
// Cell.COMPARATOR order, collapsed so that only the freshest Cell for each
// key survives. The order of sources is irrelevant for correctness, but by
// convention the MemTable is placed first, then SSTables in descending
// generation, so the comparator naturally prefers the newest duplicate.
func MergeCells(sources []iterator.CellIterator) iterator.CellIterator {
	m := &cellMerger{sources: sources}
	for i, s := range sources {
		if c, ok := s.Next(); ok {
			m.h = append(m.h, heapItem{cell: c, src: i})
		} else if err := s.Err(); err != nil {
			m.err = err
		}
	}
	heap.Init(&m.h)
	return m
}

func (m *cellMerger) Next() (base.Cell, bool) {
	for {
		cell, ok := m.nextRaw()
		if !ok {
			return base.Cell{}, false
		}
		if m.hasLast && bytes.Equal(cell.Key, m.lastKey) {
			continue
		}
		m.lastKey = cell.Key
		m.hasLast = true
		return cell, true
	}
}

// nextRaw pops the minimum Cell across all sources without collapsing
// duplicate keys.
func (m *cellMerger) nextRaw() (base.Cell, bool) {
	if m.err != nil || m.h.Len() == 0 {
		return base.Cell{}, false
	}
	top := heap.Pop(&m.h).(heapItem)
	if c, ok := m.sources[top.src].Next(); ok {
		heap.Push(&m.h, heapItem{cell: c, src: top.src})
	} else if err := m.sources[top.src].Err(); err != nil {
		m.err = err
	}
	return top.cell, true
}

func (m *cellMerger) Err() error { return m.err }

// Close closes every source iterator, even after one fails, and returns
// all failures aggregated into a single hashicorp/go-multierror error (nil
// if every source closed cleanly). Nothing is logged here.
func (m *cellMerger) Close() error {
	var errs *multierror.Error
	for _, s := range m.sources {
		if err := s.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Records wraps a CellIterator with the tombstone filter and projects
// surviving Cells to Records: the host-facing view spec.md §4.4 describes.
func Records(cells iterator.CellIterator) iterator.RecordIterator {
	return &recordFilter{cells: cells}
}

type recordFilter struct {
	cells iterator.CellIterator
}

func (r *recordFilter) Next() (base.Record, bool) {
	for {
		cell, ok := r.cells.Next()
		if !ok {
			return base.Record{}, false
		}
		if cell.Value.IsRemoved() {
			continue
		}
		return base.Record{Key: cell.Key, Payload: cell.Value.Data()}, true
	}
}

func (r *recordFilter) Err() error   { return r.cells.Err() }
func (r *recordFilter) Close() error { return r.cells.Close() }

// FilterLive drops tombstone Cells while keeping the Cell type (timestamp
// and all), for compact's live-view serialization: spec.md §9 resolves the
// "does compact drop tombstones" open question by allowing it once nothing
// older remains underneath the compacted table.
func FilterLive(cells iterator.CellIterator) iterator.CellIterator {
	return &liveFilter{cells: cells}
}

type liveFilter struct {
	cells iterator.CellIterator
}

func (f *liveFilter) Next() (base.Cell, bool) {
	for {
		cell, ok := f.cells.Next()
		if !ok {
			return base.Cell{}, false
		}
		if cell.Value.IsRemoved() {
			continue
		}
		return cell, true
	}
}

func (f *liveFilter) Err() error   { return f.cells.Err() }
func (f *liveFilter) Close() error { return f.cells.Close() }
