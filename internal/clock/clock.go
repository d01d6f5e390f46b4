// clock.go: shared elapsed-time source for the hot write/aggregation paths.
//
// Record timestamps, loss-tracker timestamps, and pull-delay
// measurements read "now" through here instead of calling time.Now()
// directly, so tests can substitute a deterministic clock without
// threading a parameter through every call site.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clock

import (
	"github.com/agilira/go-timecache"
)

// NowNs returns the current time in nanoseconds. Production code calls
// this directly; tests overwrite the package-level Source variable.
func NowNs() int64 {
	return Source()
}

// Source is the active time source, backed by go-timecache's background
// cached clock by default. Tests replace it with a fake clock to drive
// bucket-boundary scenarios deterministically.
var Source func() int64 = timecache.CachedTimeNano

// WithSource temporarily swaps the time source for the duration of fn,
// restoring the previous source afterward. Intended for tests.
func WithSource(fn func() int64, body func()) {
	prev := Source
	Source = fn
	defer func() { Source = prev }()
	body()
}
