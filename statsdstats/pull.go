// pull.go: pulled-atom accounting and the socket batch-read histogram.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

// pullStats accumulates per-pull-atom counters. Grouped by atomID since
// the original keys this table the same way.
type pullStats struct {
	pullCount                int64
	pullFromCacheCount       int64
	pullTimeNs               int64
	maxPullDelayNs           int64
	pullDataErrorCount       int64
	pullTimeoutCount         int64
	pullExceedMaxDelayCount  int64
	pullFailedCount          int64
	pullUidProviderNotFound  int64
	pullerNotFoundCount      int64
	pullBinderCallFailed     int64
	emptyDataCount           int64
	minPullIntervalSec       int64
}

func (s *Store) getOrCreatePullStats(atomID int32) *pullStats {
	if s.pullStatsTable == nil {
		s.pullStatsTable = make(map[int32]*pullStats)
	}
	st, ok := s.pullStatsTable[atomID]
	if !ok {
		st = &pullStats{}
		s.pullStatsTable[atomID] = st
	}
	return st
}

// NotePull records one pull attempt for atomID.
func (s *Store) NotePull(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullCount++
}

// NotePullFromCache records a pull served from the puller's cache
// instead of a fresh pull.
func (s *Store) NotePullFromCache(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullFromCacheCount++
}

// NotePullTime accumulates wall time spent pulling atomID.
func (s *Store) NotePullTime(atomID int32, pullTimeNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullTimeNs += pullTimeNs
}

// NotePullDelay records the largest pull delay observed for atomID.
func (s *Store) NotePullDelay(atomID int32, pullDelayNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreatePullStats(atomID)
	if pullDelayNs > st.maxPullDelayNs {
		st.maxPullDelayNs = pullDelayNs
	}
}

// NotePullDataError records a pull whose returned data failed
// validation.
func (s *Store) NotePullDataError(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullDataErrorCount++
}

// NotePullTimeout records a pull that exceeded its deadline.
func (s *Store) NotePullTimeout(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullTimeoutCount++
}

// NotePullExceedMaxDelay records a pull whose result arrived later than
// max_pull_delay_ns, matching 4.F.4's PULL_DELAYED invalidation path.
func (s *Store) NotePullExceedMaxDelay(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullExceedMaxDelayCount++
}

// NotePullFailed records a pull that failed outright (not just slow).
func (s *Store) NotePullFailed(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullFailedCount++
}

// NotePullUidProviderNotFound records a pull that could not resolve a
// uid provider.
func (s *Store) NotePullUidProviderNotFound(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullUidProviderNotFound++
}

// NotePullerNotFound records a pull request for an atom id with no
// registered puller.
func (s *Store) NotePullerNotFound(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullerNotFoundCount++
}

// NotePullBinderCallFailed records a pull whose underlying binder call
// failed.
func (s *Store) NotePullBinderCallFailed(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).pullBinderCallFailed++
}

// NoteEmptyData records a pull that returned zero atoms.
func (s *Store) NoteEmptyData(atomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).emptyDataCount++
}

// UpdateMinPullIntervalSec records the configured minimum pull interval
// for atomID.
func (s *Store) UpdateMinPullIntervalSec(atomID int32, intervalSec int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreatePullStats(atomID).minPullIntervalSec = intervalSec
}

// batchReadBin maps a batch size to the fixed histogram bin layout
// described in 4.E, reproducing StatsdStats::noteBatchSocketRead's exact
// formula: 0-4 get their own bin, 5-9 share bin 5, each decade from
// 10-99 gets its own bin (6-14), each hundred from 100-999 gets its own
// bin (15-23), each pair-of-hundreds from 1000-1999 gets its own bin
// (24-28), and 2000+ all land in bin 29 — 30 bins total.
func batchReadBin(size int32) int {
	switch {
	case size < 0:
		return 0
	case size < 5:
		return int(size)
	case size < 10:
		return 4 + int(size/5)
	case size < 100:
		return 5 + int(size/10)
	case size < 1000:
		return 14 + int(size/100)
	case size < 2000:
		return 19 + int(size/200)
	default:
		return 29
	}
}

// NoteBatchSocketRead records one socket batch read of size atoms,
// bucketing it into the fixed-width histogram and, for unusually large
// batches, retaining a detailed per-atom breakdown.
func (s *Store) NoteBatchSocketRead(size int32, readTimeNs int64, perAtomCounts map[int32]int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin := batchReadBin(size)
	if bin >= 0 && bin < kNumBinsInSocketBatchReadHistogram {
		s.batchReadHistogram[bin]++
	}

	if size < kLargeBatchReadThreshold {
		return
	}

	filtered := make(map[int32]int32, len(perAtomCounts))
	for atomID, count := range perAtomCounts {
		if count >= kMaxLargeBatchReadAtomThreshold {
			filtered[atomID] = count
		}
	}
	s.largeBatchRecords = append(s.largeBatchRecords, LargeBatchRead{
		Size:       size,
		ReadTimeNs: readTimeNs,
		AtomCounts: filtered,
	})
}
