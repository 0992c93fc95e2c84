// Package sstable implements the immutable, on-disk sorted run: binary
// layout, random access by binary search, forward iteration, and
// serialization (spec.md §4.3).
//
// A file is a concatenation of an entry region, an offsets region, and a
// 4-byte footer. See codec.go for the exact byte layout.
package sstable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/maksimshengeliia/lsmkv/internal/base"
	"github.com/maksimshengeliia/lsmkv/internal/iterator"
	"github.com/maksimshengeliia/lsmkv/internal/lsmerr"
)

// SSTable is an immutable, random-access sorted run identified by a
// nonnegative generation number.
type SSTable struct {
	generation uint64
	path       string
	file       *os.File
	rows       int
	size       int64
}

// Generation returns the SSTable's generation number.
func (s *SSTable) Generation() uint64 {
	return s.generation
}

// Rows returns the number of entries in the table.
func (s *SSTable) Rows() int {
	return s.rows
}

// Open opens path as an SSTable identified by generation. It returns an
// error wrapping lsmerr.ErrMalformed if the file is too short to contain a
// valid footer or the footer's row count is inconsistent with the file
// size; callers should log and skip such files per spec.md §4.5 rather
// than fail outright. Any other error is an Io failure.
func Open(path string, generation uint64) (*SSTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %q: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sstable: stat %q: %w", path, err)
	}
	size := stat.Size()

	if size < footerSize {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q is %d bytes, shorter than the footer", lsmerr.ErrMalformed, path, size)
	}

	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, size-footerSize); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sstable: read footer of %q: %w", path, err)
	}
	rows := int(decodeUint32(footer))

	minSize := footerSize + int64(rows)*offsetSize
	if rows < 0 || minSize > size {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q declares %d rows, inconsistent with file size %d", lsmerr.ErrMalformed, path, rows, size)
	}

	return &SSTable{
		generation: generation,
		path:       path,
		file:       f,
		rows:       rows,
		size:       size,
	}, nil
}

// offsetAt returns the absolute file offset at which entry i begins.
func (s *SSTable) offsetAt(i int) (int64, error) {
	buf := make([]byte, offsetSize)
	pos := s.size - footerSize - offsetSize*int64(s.rows-i)
	if _, err := s.file.ReadAt(buf, pos); err != nil {
		return 0, fmt.Errorf("sstable: read offset %d in %q: %w", i, s.path, err)
	}
	return int64(decodeUint64(buf)), nil
}

// keyAt reads only the key of entry i, for use during binary search.
func (s *SSTable) keyAt(i int) ([]byte, error) {
	offset, err := s.offsetAt(i)
	if err != nil {
		return nil, err
	}
	r := io.NewSectionReader(s.file, offset, s.size-offset)
	keyLen, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("sstable: read key length at row %d in %q: %w", i, s.path, err)
	}
	key := make([]byte, keyLen)
	if _, err := readFull(r, key); err != nil {
		return nil, fmt.Errorf("sstable: read key at row %d in %q: %w", i, s.path, err)
	}
	return key, nil
}

// cellAt reads the full Cell (key and, for live entries, value) of entry i.
func (s *SSTable) cellAt(i int) (base.Cell, error) {
	offset, err := s.offsetAt(i)
	if err != nil {
		return base.Cell{}, err
	}
	r := io.NewSectionReader(s.file, offset, s.size-offset)
	cell, _, err := decodeEntry(r)
	if err != nil {
		return base.Cell{}, fmt.Errorf("sstable: decode row %d in %q: %w", i, s.path, err)
	}
	return cell, nil
}

// binarySearch performs the lower-bound search described in spec.md
// §4.3: on an exact match it returns that entry's index; otherwise it
// returns the index of the first entry whose key is strictly greater than
// from (or Rows() if none is).
func (s *SSTable) binarySearch(from []byte) (int, error) {
	var searchErr error
	idx := sort.Search(s.rows, func(i int) bool {
		if searchErr != nil {
			return true
		}
		key, err := s.keyAt(i)
		if err != nil {
			searchErr = err
			return true
		}
		return compareBytes(key, from) >= 0
	})
	if searchErr != nil {
		return 0, searchErr
	}
	return idx, nil
}

// Iterator returns a forward CellIterator starting at the lower-bound
// search result for from, advancing sequentially to Rows().
func (s *SSTable) Iterator(from []byte) iterator.CellIterator {
	start, err := s.binarySearch(from)
	if err != nil {
		return &errIterator{err: err}
	}
	return &tableIterator{table: s, next: start}
}

// Upsert always fails: the SSTable is immutable.
func (s *SSTable) Upsert([]byte, []byte) error {
	return lsmerr.ErrNotSupported
}

// Remove always fails: the SSTable is immutable.
func (s *SSTable) Remove([]byte) error {
	return lsmerr.ErrNotSupported
}

// Close releases the table's file handle.
func (s *SSTable) Close() error {
	return s.file.Close()
}

type tableIterator struct {
	table *SSTable
	next  int
	err   error
}

func (it *tableIterator) Next() (base.Cell, bool) {
	if it.err != nil || it.next >= it.table.rows {
		return base.Cell{}, false
	}
	cell, err := it.table.cellAt(it.next)
	if err != nil {
		it.err = err
		return base.Cell{}, false
	}
	it.next++
	return cell, true
}

func (it *tableIterator) Err() error   { return it.err }
func (it *tableIterator) Close() error { return nil }

// errIterator is a CellIterator that immediately reports err, used when
// constructing the iterator itself fails (e.g. binary search hit an Io
// error).
type errIterator struct{ err error }

func (it *errIterator) Next() (base.Cell, bool) { return base.Cell{}, false }
func (it *errIterator) Err() error              { return it.err }
func (it *errIterator) Close() error            { return nil }

// Serialize writes cells (which must already be in ascending key order,
// and must yield exactly rows Cells) to path as a new SSTable file. The
// caller is responsible for atomically publishing path afterwards (see
// pkg/lsm's flush/compact, which write to a *.tmp path and os.Rename it
// into place) — Serialize itself only guarantees that path, once fully
// written, holds a complete and well-formed file.
func Serialize(path string, cells iterator.CellIterator, rows int) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sstable: create %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("sstable: close %q: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	offsets := make([]uint64, 0, rows)
	var offset uint64

	for {
		cell, ok := cells.Next()
		if !ok {
			break
		}
		offsets = append(offsets, offset)
		n, encErr := encodeEntry(w, cell)
		if encErr != nil {
			return fmt.Errorf("sstable: write entry to %q: %w", path, encErr)
		}
		offset += uint64(n)
	}
	if cerr := cells.Err(); cerr != nil {
		return fmt.Errorf("sstable: source iterator failed while serializing %q: %w", path, cerr)
	}

	for _, off := range offsets {
		if err := writeUint64(w, off); err != nil {
			return fmt.Errorf("sstable: write offset table to %q: %w", path, err)
		}
	}
	if err := writeUint32(w, uint32(rows)); err != nil {
		return fmt.Errorf("sstable: write footer to %q: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("sstable: flush %q: %w", path, err)
	}
	return nil
}
