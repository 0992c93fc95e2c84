package lsm

import "github.com/maksimshengeliia/lsmkv/internal/clock"

// Option configures a DAO at Open time. Grounded on the functional-options
// pattern used throughout the teacher repository's db/memtable packages.
type Option interface {
	apply(*DAO)
}

type optionFunc func(*DAO)

func (f optionFunc) apply(d *DAO) { f(d) }

// WithClock overrides the engine's write-timestamp source. Tests use this
// to get deterministic, controllable timestamps instead of the wall clock.
func WithClock(now clock.Source) Option {
	return optionFunc(func(d *DAO) {
		d.now = now
	})
}
