// store_test.go
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

import "testing"

func TestStore_ConfigLifecycle(t *testing.T) {
	s := New(1000)
	key := ConfigKey{UID: 1, ID: 42}

	s.NoteConfigReceived(key, 1000, 3, 2, 5, 1, true)
	if _, ok := s.configs[key]; !ok {
		t.Fatal("expected config to be tracked")
	}

	s.NoteBroadcastSent(key, 1100)
	s.NoteMetricsReportSent(key, 1200)

	s.NoteConfigRemoved(key, 1300)
	if _, ok := s.configs[key]; ok {
		t.Fatal("expected config to be removed from active set")
	}
	if len(s.iceBox) != 1 {
		t.Fatalf("expected 1 ice box entry, got %d", len(s.iceBox))
	}
}

func TestStore_IceBoxBounded(t *testing.T) {
	s := New(0)
	for i := 0; i < kMaxIceBoxSize+10; i++ {
		key := ConfigKey{UID: int32(i), ID: int64(i)}
		s.NoteConfigReceived(key, 0, 0, 0, 0, 0, true)
		s.NoteConfigRemoved(key, int64(i))
	}
	if len(s.iceBox) != kMaxIceBoxSize {
		t.Errorf("expected ice box capped at %d, got %d", kMaxIceBoxSize, len(s.iceBox))
	}
}

func TestStore_AtomLoggedSkippedDropped(t *testing.T) {
	s := New(0)
	s.NoteAtomLogged(100, false)
	s.NoteAtomLogged(100, false)
	s.NoteAtomLogged(100, true)
	s.NoteAtomDropped(100)
	s.NoteAtomError(100)

	st := s.atomStats[100]
	if st.count != 2 || st.skipCount != 1 || st.dropsCount != 1 || st.errorCount != 1 {
		t.Errorf("unexpected atom stats: %+v", st)
	}
}

func TestStore_NonPlatformAtomCap(t *testing.T) {
	s := New(0)
	for i := 0; i < kMaxNonPlatformPushedAtoms+10; i++ {
		s.NoteAtomLogged(int32(platformAtomIDCeiling+i), false)
	}
	count := 0
	for atomID := range s.atomStats {
		if atomID >= platformAtomIDCeiling {
			count++
		}
	}
	if count != kMaxNonPlatformPushedAtoms {
		t.Errorf("expected non-platform atoms capped at %d, got %d", kMaxNonPlatformPushedAtoms, count)
	}
}

func TestStore_BatchReadHistogramBins(t *testing.T) {
	s := New(0)
	s.NoteBatchSocketRead(2, 1, nil)
	s.NoteBatchSocketRead(7, 1, nil)
	s.NoteBatchSocketRead(50, 1, nil)
	s.NoteBatchSocketRead(500, 1, nil)
	s.NoteBatchSocketRead(1500, 1, nil)
	s.NoteBatchSocketRead(5000, 1, map[int32]int32{1: 60, 2: 10})

	if s.batchReadHistogram[2] != 1 {
		t.Errorf("expected bin 2 to have 1 entry (size 2), got %d", s.batchReadHistogram[2])
	}
	if s.batchReadHistogram[5] != 1 {
		t.Errorf("expected bin 5 (5-9) to have 1 entry, got %d", s.batchReadHistogram[5])
	}
	if s.batchReadHistogram[10] != 1 {
		t.Errorf("expected bin 10 (size 50, decade bin 5+50/10) to have 1 entry, got %d", s.batchReadHistogram[10])
	}
	if s.batchReadHistogram[19] != 1 {
		t.Errorf("expected bin 19 (size 500, hundred bin 14+500/100) to have 1 entry, got %d", s.batchReadHistogram[19])
	}
	if s.batchReadHistogram[26] != 1 {
		t.Errorf("expected bin 26 (size 1500, pair-of-hundreds bin 19+1500/200) to have 1 entry, got %d", s.batchReadHistogram[26])
	}
	if s.batchReadHistogram[29] != 1 {
		t.Errorf("expected bin 29 (2000+) to have 1 entry, got %d", s.batchReadHistogram[29])
	}
	if len(s.largeBatchRecords) != 3 {
		t.Fatalf("expected 3 large batch records (sizes 500, 1500, 5000), got %d", len(s.largeBatchRecords))
	}
	if _, ok := s.largeBatchRecords[2].AtomCounts[1]; !ok {
		t.Error("expected atom 1 (count 60) to survive the per-atom threshold filter")
	}
	if _, ok := s.largeBatchRecords[2].AtomCounts[2]; ok {
		t.Error("expected atom 2 (count 10) to be filtered out below the large-atom threshold")
	}
}

func TestStore_RestrictedQueryBounded(t *testing.T) {
	s := New(0)
	for i := 0; i < kMaxRestrictedMetricQueryCount+5; i++ {
		s.NoteQueryRestrictedMetricSucceed(int64(i), 1, 2, 10)
	}
	if len(s.restrictedQueries) != kMaxRestrictedMetricQueryCount {
		t.Errorf("expected %d queries retained, got %d", kMaxRestrictedMetricQueryCount, len(s.restrictedQueries))
	}
}

func TestStore_DumpAndReset(t *testing.T) {
	s := New(0)
	key := ConfigKey{UID: 1, ID: 1}
	s.NoteConfigReceived(key, 0, 1, 1, 1, 1, true)
	s.NoteAtomLogged(100, false)
	s.NoteLogLost(1, 5, -4, 100)

	data := s.Dump(true, 500)
	if len(data) == 0 {
		t.Fatal("expected non-empty dump")
	}

	if _, ok := s.configs[key]; !ok {
		t.Error("expected active config to survive a reset dump")
	}
	if len(s.atomStats) != 0 {
		t.Error("expected atom stats to be cleared after a reset dump")
	}
	if len(s.loggerErrors) != 0 {
		t.Error("expected logger errors to be cleared after a reset dump")
	}
}
