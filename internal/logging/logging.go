// Package logging is a thin wrapper over logrus used for the engine's
// ambient log sites: skipping a malformed sstable file on open, recording
// flush/compact completion, and reporting the close/compact cleanup errors
// beyond the first one returned. Grounded on
// patchbrain-mini-bitcask's util/log package.
package logging

import "github.com/sirupsen/logrus"

var std = logrus.New()

// Warnf logs a warning, e.g. a malformed file skipped during open.
func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Infof logs routine engine progress, e.g. a completed flush or compact.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}
