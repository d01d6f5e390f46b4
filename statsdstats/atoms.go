// atoms.go: pushed-atom accounting, socket loss, queue overflow, uid-map,
// alarm registration counts.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

// NoteAtomLogged records one successfully logged atom, or a skipped one
// if isSkipped is true.
func (s *Store) NoteAtomLogged(atomID int32, isSkipped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateAtomStats(atomID)
	if st == nil {
		return
	}
	if isSkipped {
		st.skipCount++
	} else {
		st.count++
	}
}

// NoteAtomError records a malformed or rejected atom (a builder error
// bit set, or a decode failure).
func (s *Store) NoteAtomError(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateAtomStats(atomID)
	if st == nil {
		return
	}
	st.errorCount++
}

// NoteAtomDropped records an atom dropped before it could be logged
// (for example, the Producer-side Queue was full).
func (s *Store) NoteAtomDropped(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateAtomStats(atomID)
	if st == nil {
		return
	}
	st.dropsCount++
}

// NoteEventQueueOverflow records the Producer-side Queue rejecting a
// write as a drop of atomID. The oldest pending event's timestamp is
// accepted for signature parity and is not stored.
func (s *Store) NoteEventQueueOverflow(oldestEventTimestampNs int64, atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.noteAtomDroppedLocked(atomID)
	_ = oldestEventTimestampNs // retained for parity with the original signature
}

// noteAtomDroppedLocked is the lock-already-held variant of
// NoteAtomDropped, used by callers that already hold the store's mutex
// via another note_* entry point.
func (s *Store) noteAtomDroppedLocked(atomID int32) {
	st := s.getOrCreateAtomStats(atomID)
	if st == nil {
		return
	}
	st.dropsCount++
}

// NoteEventQueueSize records the largest Producer-side Queue occupancy
// observed so far.
func (s *Store) NoteEventQueueSize(size int32, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size > s.queueMaxSizeObserved {
		s.queueMaxSizeObserved = size
		s.queueMaxSizeObservedElapsed = nowNs
	}
}

// NoteLogLost records a batch of lost log events reported by the Loss
// Tracker, bounded to kMaxLoggerErrors most recent entries.
func (s *Store) NoteLogLost(wallClockTimeSec int32, count int32, lastError int32, lastAtomTag int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loggerErrors = append(s.loggerErrors, logLossRecord{
		wallClockTimeSec: wallClockTimeSec,
		count:            count,
		lastError:        lastError,
		lastAtomTag:      lastAtomTag,
	})
	if len(s.loggerErrors) > kMaxLoggerErrors {
		s.loggerErrors = s.loggerErrors[len(s.loggerErrors)-kMaxLoggerErrors:]
	}
}

// NoteUidMapDropped records a batch of uid-map delta updates dropped
// for exceeding capacity.
func (s *Store) NoteUidMapDropped(deltas int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uidMapDrops += int64(deltas)
}

// NoteUidMapAppDeletionDropped records an app-deletion uid-map update
// dropped for exceeding capacity.
func (s *Store) NoteUidMapAppDeletionDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uidMapAppDelDrops++
}

// SetUidMapChanges records the current pending uid-map delta count.
func (s *Store) SetUidMapChanges(changes int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uidMapChanges = changes
}

// SetCurrentUidMapMemory records the current uid-map memory footprint.
func (s *Store) SetCurrentUidMapMemory(bytes int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uidMapMemoryBytes = bytes
}

// NoteRegisteredAnomalyAlarmChanged increments the anomaly alarm
// registration counter.
func (s *Store) NoteRegisteredAnomalyAlarmChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalyAlarmRegistrations++
}

// NoteRegisteredPeriodicAlarmChanged increments the periodic alarm
// registration counter.
func (s *Store) NoteRegisteredPeriodicAlarmChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodicAlarmRegistrations++
}
