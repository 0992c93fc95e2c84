package lsm

import (
	"errors"

	"github.com/maksimshengeliia/lsmkv/internal/lsmerr"
)

// ErrNotSupported and ErrMalformed re-export the error kinds internal
// packages raise, so callers can errors.Is against them without importing
// internal/lsmerr directly.
var (
	ErrNotSupported = lsmerr.ErrNotSupported
	ErrMalformed    = lsmerr.ErrMalformed
)

// ErrFlushThreshold is returned by Open when flushThreshold is not a
// positive number of bytes (spec.md §6: "flush_threshold: positive integer
// bytes").
var ErrFlushThreshold = errors.New("lsmkv: flush_threshold must be positive")
