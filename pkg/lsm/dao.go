// Package lsm is the host-facing engine: LsmDAO from spec.md §4.5. It
// routes writes to the MemTable, triggers flushes on threshold, merges the
// MemTable with every on-disk generation into a single logical view, and
// performs full compaction.
package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/maksimshengeliia/lsmkv/internal/base"
	"github.com/maksimshengeliia/lsmkv/internal/clock"
	"github.com/maksimshengeliia/lsmkv/internal/iterator"
	"github.com/maksimshengeliia/lsmkv/internal/logging"
	"github.com/maksimshengeliia/lsmkv/internal/memtable"
	"github.com/maksimshengeliia/lsmkv/internal/merge"
	"github.com/maksimshengeliia/lsmkv/internal/sstable"
)

// datFilePattern recognizes published SSTable files per spec.md §6. Files
// ending in .tmp, and anything else, are ignored silently on open.
var datFilePattern = regexp.MustCompile(`^(0|[1-9][0-9]*)\.dat$`)

// DAO is the top-level LSM engine: storage directory, flush threshold, the
// active MemTable, every on-disk generation, and the next generation
// counter. It is not internally synchronized (spec.md §5): callers must
// serialize Upsert/Remove/Iterator/Compact/Close on a given instance
// themselves.
type DAO struct {
	dir            string
	flushThreshold int64
	now            clock.Source

	memtable       *memtable.MemTable
	tables         map[uint64]*sstable.SSTable
	nextGeneration uint64
}

// Open creates an empty MemTable and scans dir for existing SSTable files.
// Malformed file names or I/O failures opening a single file are logged
// and skipped; they do not fail Open. next_generation is set to one past
// the largest generation found (zero if none).
func Open(dir string, flushThreshold int64, opts ...Option) (*DAO, error) {
	if flushThreshold <= 0 {
		return nil, ErrFlushThreshold
	}

	d := &DAO{
		dir:            dir,
		flushThreshold: flushThreshold,
		now:            clock.NewMonotonic().Now,
		tables:         make(map[uint64]*sstable.SSTable),
	}
	for _, o := range opts {
		o.apply(d)
	}
	d.memtable = memtable.New(d.now)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: read storage directory %q: %w", dir, err)
	}

	var maxGeneration uint64
	var haveAny bool
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !datFilePattern.MatchString(name) {
			continue
		}

		generation, err := strconv.ParseUint(name[:len(name)-len(".dat")], 10, 64)
		if err != nil {
			logging.Warnf("lsmkv: skipping sstable with malformed name %q: %v", name, err)
			continue
		}

		table, err := sstable.Open(filepath.Join(dir, name), generation)
		if err != nil {
			logging.Warnf("lsmkv: skipping malformed sstable %q: %v", name, err)
			continue
		}

		d.tables[table.Generation()] = table
		if !haveAny || table.Generation() > maxGeneration {
			maxGeneration = table.Generation()
			haveAny = true
		}
	}

	if haveAny {
		d.nextGeneration = maxGeneration + 1
	}

	return d, nil
}

// Upsert writes key=payload, then flushes the MemTable if its tracked size
// now exceeds the configured threshold.
func (d *DAO) Upsert(key, payload []byte) error {
	d.memtable.Upsert(key, payload)
	return d.maybeFlush()
}

// Remove marks key as deleted, then flushes the MemTable if its tracked
// size now exceeds the configured threshold.
func (d *DAO) Remove(key []byte) error {
	d.memtable.Remove(key)
	return d.maybeFlush()
}

func (d *DAO) maybeFlush() error {
	if d.memtable.SizeInBytes() > d.flushThreshold {
		return d.flush()
	}
	return nil
}

// flush serializes the current MemTable into a new, atomically published
// SSTable and replaces it with an empty one.
func (d *DAO) flush() error {
	generation := d.nextGeneration
	tmpPath := filepath.Join(d.dir, fmt.Sprintf("%d.tmp", generation))
	datPath := filepath.Join(d.dir, fmt.Sprintf("%d.dat", generation))
	rows := d.memtable.Size()

	if err := sstable.Serialize(tmpPath, d.memtable.Iterator(nil), rows); err != nil {
		return fmt.Errorf("lsmkv: flush: serialize generation %d: %w", generation, err)
	}
	if err := os.Rename(tmpPath, datPath); err != nil {
		return fmt.Errorf("lsmkv: flush: publish generation %d: %w", generation, err)
	}

	table, err := sstable.Open(datPath, generation)
	if err != nil {
		return fmt.Errorf("lsmkv: flush: reopen generation %d: %w", generation, err)
	}

	d.tables[table.Generation()] = table
	d.memtable = memtable.New(d.now)
	d.nextGeneration++

	logging.Infof("lsmkv: flushed memtable to generation %d (%d rows)", table.Generation(), rows)
	return nil
}

// Iterator returns a Record iterator over the merged, de-duplicated, live
// view of the MemTable and every SSTable generation, starting at the first
// key >= from. The returned iterator is a snapshot consistent with the
// engine's state at the time Iterator is called.
func (d *DAO) Iterator(from []byte) iterator.RecordIterator {
	return merge.Records(merge.MergeCells(d.cellSources(from)))
}

// cellSources builds the merge-operator input list: the MemTable first,
// then every SSTable in descending generation order, so that Cell's
// comparator naturally prefers the freshest duplicate (spec.md §4.4/§4.5).
func (d *DAO) cellSources(from []byte) []iterator.CellIterator {
	sources := make([]iterator.CellIterator, 0, len(d.tables)+1)
	sources = append(sources, d.memtable.Iterator(from))
	for _, generation := range d.descendingGenerations() {
		sources = append(sources, d.tables[generation].Iterator(from))
	}
	return sources
}

func (d *DAO) descendingGenerations() []uint64 {
	generations := make([]uint64, 0, len(d.tables))
	for g := range d.tables {
		generations = append(generations, g)
	}
	sort.Slice(generations, func(i, j int) bool { return generations[i] > generations[j] })
	return generations
}

// Compact merges the MemTable with every SSTable generation, collapses
// duplicate keys to the freshest Cell, drops tombstones (nothing older
// remains underneath a freshly compacted table to hide), and serializes
// the result as the sole new generation 0. This is the corrected behavior
// spec.md §9 adopts as normative: the source's compact() serialized only
// the MemTable and silently lost any key held solely in an SSTable.
func (d *DAO) Compact() error {
	live := merge.FilterLive(merge.MergeCells(d.cellSources(nil)))
	collected, err := collectCells(live)
	if err != nil {
		return fmt.Errorf("lsmkv: compact: merge live view: %w", err)
	}

	tmpPath := filepath.Join(d.dir, "compact-0.tmp")
	if err := sstable.Serialize(tmpPath, iterator.NewSlice(collected), len(collected)); err != nil {
		return fmt.Errorf("lsmkv: compact: serialize merged view: %w", err)
	}

	cleanupErrs := d.removeAllGenerations()

	datPath := filepath.Join(d.dir, "0.dat")
	if err := os.Rename(tmpPath, datPath); err != nil {
		return compactError(fmt.Errorf("lsmkv: compact: publish generation 0: %w", err), cleanupErrs)
	}

	table, err := sstable.Open(datPath, 0)
	if err != nil {
		return compactError(fmt.Errorf("lsmkv: compact: reopen generation 0: %w", err), cleanupErrs)
	}

	d.tables = map[uint64]*sstable.SSTable{table.Generation(): table}
	d.nextGeneration = table.Generation() + 1
	d.memtable = memtable.New(d.now)

	logging.Infof("lsmkv: compacted into generation %d (%d rows)", table.Generation(), len(collected))
	return compactError(nil, cleanupErrs)
}

// compactError folds removeAllGenerations' result into Compact's return
// value, logging every cleanup error but the first (spec.md §7's "first
// error surfaced, rest logged" rule) regardless of which point in Compact
// is returning. When err is itself non-nil (publish/reopen failed), the
// first cleanup error is appended to it rather than discarded, so a
// cleanup failure is never silently dropped just because a later step
// also failed.
func compactError(err error, cleanupErrs *multierror.Error) error {
	if cleanupErrs.ErrorOrNil() == nil {
		return err
	}
	for _, cleanupErr := range cleanupErrs.Errors[1:] {
		logging.Warnf("lsmkv: compact: %v", cleanupErr)
	}
	if err == nil {
		return fmt.Errorf("lsmkv: compact: cleanup of stale generations: %w", cleanupErrs.Errors[0])
	}
	return fmt.Errorf("%w (additionally, cleanup of stale generations failed: %v)", err, cleanupErrs.Errors[0])
}

// removeAllGenerations closes and deletes every current SSTable's file.
// Called only after the compacted replacement has already been fully
// serialized to a distinct temp path, so a failure partway through never
// leaves compact() without a recoverable set of source files.
//
// A file that cannot be removed (e.g. a transient permission or I/O error)
// is renamed out of datFilePattern instead of left in place: Open matches
// files by a strict "<generation>.dat" pattern, so a stale generation
// Compact already collapsed away can never be reopened and merged back
// into the read path, silently resurrecting keys or tombstones it dropped.
// The failure itself is still reported to the caller (spec.md §7's "Io …
// propagated"): the *multierror.Error returned here is folded into
// Compact's return value by compactError.
func (d *DAO) removeAllGenerations() *multierror.Error {
	var errs *multierror.Error
	for generation, table := range d.tables {
		path := filepath.Join(d.dir, fmt.Sprintf("%d.dat", generation))
		if err := table.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing generation %d: %w", generation, err))
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			quarantinePath := path + ".stale"
			if renameErr := os.Rename(path, quarantinePath); renameErr != nil {
				errs = multierror.Append(errs, fmt.Errorf("removing generation %d: %w (and failed to quarantine it out of datFilePattern: %v)", generation, err, renameErr))
				continue
			}
			errs = multierror.Append(errs, fmt.Errorf("removing generation %d: %w (quarantined as %s so it cannot be reopened as a live generation)", generation, err, quarantinePath))
		}
	}
	return errs
}

func collectCells(cells iterator.CellIterator) ([]base.Cell, error) {
	var collected []base.Cell
	for {
		cell, ok := cells.Next()
		if !ok {
			break
		}
		collected = append(collected, cell)
	}
	return collected, cells.Err()
}

// Close flushes a nonempty MemTable, then closes every SSTable's file
// handle. The first close failure is returned; any later ones are logged
// (spec.md §7).
func (d *DAO) Close() error {
	if d.memtable.SizeInBytes() > 0 {
		if err := d.flush(); err != nil {
			return fmt.Errorf("lsmkv: close: flush pending writes: %w", err)
		}
	}

	var errs *multierror.Error
	for generation, table := range d.tables {
		if err := table.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("sstable generation %d: %w", generation, err))
		}
	}
	if errs == nil {
		return nil
	}
	for _, err := range errs.Errors[1:] {
		logging.Warnf("lsmkv: close: %v", err)
	}
	return errs.Errors[0]
}
