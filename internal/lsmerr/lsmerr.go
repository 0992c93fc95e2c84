// Package lsmerr holds the sentinel errors for the error kinds spec.md §7
// distinguishes. Io failures are not sentinels: they are plain errors
// wrapped with fmt.Errorf("...: %w", err) at the point of failure and
// propagated to the caller unchanged in kind.
package lsmerr

import "errors"

var (
	// ErrNotSupported is returned by a mutating operation (Upsert, Remove)
	// attempted on an immutable SSTable.
	ErrNotSupported = errors.New("lsmkv: operation not supported on an immutable sstable")

	// ErrMalformed marks a per-file problem detected while opening an
	// SSTable (a file too short for its footer, or a footer count
	// inconsistent with the file size). Bad file names are skipped by
	// DAO.Open without this error. It is never returned from DAO.Open: callers
	// only ever see it logged, with the offending file skipped.
	ErrMalformed = errors.New("lsmkv: malformed sstable file")
)
