// tracker.go: per-producer socket loss accounting (4.D).
//
// Every failed send from the Socket Writer lands here instead of being
// dropped silently. The tracker keeps a small table of (atom id, error
// code) -> count plus first/last loss timestamps, and on the next
// successful send encodes the table as a synthetic atom and resets.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package losstracker

import (
	"sync"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
)

// AtomIDSocketLossReported is the schema id of the synthetic atom this
// package emits. Part of the core wire contract, not producer-specific.
const AtomIDSocketLossReported atom.AtomID = 99999

// kMaxLossTrackerEntries bounds the number of distinct (atom id, error
// code) pairs tracked per producer before additional distinct pairs are
// folded into the overflow counter instead of growing the table
// unbounded. No defining header survived for this constant; picked in
// the same order of magnitude as the other kMax* bounds this daemon
// carries (see DESIGN.md).
const kMaxLossTrackerEntries = 32

type lossKey struct {
	atomID    atom.AtomID
	errorCode int32
}

type lossEntry struct {
	count       int64
	firstLossNs int64
	lastLossNs  int64
}

// Tracker accumulates socket send failures for one producer. The zero
// value is ready to use.
type Tracker struct {
	mu              sync.Mutex
	entries         map[lossKey]*lossEntry
	overflowCounter int64
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[lossKey]*lossEntry)}
}

// RecordLoss accounts one failed send of atomID with the given negative
// errno (errorCode). nowNs is the monotonic timestamp of the failure.
func (t *Tracker) RecordLoss(atomID atom.AtomID, errorCode int32, nowNs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries == nil {
		t.entries = make(map[lossKey]*lossEntry)
	}
	key := lossKey{atomID: atomID, errorCode: errorCode}
	e, ok := t.entries[key]
	if !ok {
		if len(t.entries) >= kMaxLossTrackerEntries {
			t.overflowCounter++
			return
		}
		e = &lossEntry{firstLossNs: nowNs}
		t.entries[key] = e
	}
	e.count++
	e.lastLossNs = nowNs
}

// Empty reports whether there is nothing to report: no tracked losses
// and no overflow.
func (t *Tracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) == 0 && t.overflowCounter == 0
}

// EncodeAndReset serializes the current table as a socket_loss_reported
// atom and clears the tracker. Returns nil if there is nothing to report.
// Intended to be called once a send has succeeded, per 4.D: losses are
// reported lazily, riding on the next atom that actually gets through.
func (t *Tracker) EncodeAndReset(nowNs int64) *atom.Buffer {
	t.mu.Lock()
	if len(t.entries) == 0 && t.overflowCounter == 0 {
		t.mu.Unlock()
		return nil
	}

	atomIDs := make([]int32, 0, len(t.entries))
	errorCodes := make([]int32, 0, len(t.entries))
	counts := make([]int32, 0, len(t.entries))
	firstLossNs := make([]int64, 0, len(t.entries))
	lastLossNs := make([]int64, 0, len(t.entries))

	for k, e := range t.entries {
		atomIDs = append(atomIDs, int32(k.atomID))
		errorCodes = append(errorCodes, k.errorCode)
		counts = append(counts, int32(e.count))
		firstLossNs = append(firstLossNs, e.firstLossNs)
		lastLossNs = append(lastLossNs, e.lastLossNs)
	}
	overflow := t.overflowCounter

	t.entries = make(map[lossKey]*lossEntry)
	t.overflowCounter = 0
	t.mu.Unlock()

	b := atom.Obtain()
	b.WriteAtomID(AtomIDSocketLossReported)
	b.WriteInt32Array(atomIDs)
	b.WriteInt32Array(errorCodes)
	b.WriteInt32Array(counts)
	b.WriteInt64Array(firstLossNs)
	b.WriteInt64Array(lastLossNs)
	b.WriteInt32(int32(overflow))
	// AtomIDSocketLossReported is a fixed non-zero id, so Build cannot
	// fail here; the error is only possible when a caller forgets
	// WriteAtomID or passes the reserved id.
	_ = b.Build()
	return b
}
