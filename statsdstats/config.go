// config.go: config lifecycle and ice-box accounting.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

// NoteConfigReceived records a newly (re)configured ConfigKey, replacing
// any previous stats for the same key.
func (s *Store) NoteConfigReceived(key ConfigKey, nowNs int64, metricCount, conditionCount, matcherCount, alertCount int32, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[key] = &ConfigStats{
		UID:            key.UID,
		ID:             key.ID,
		CreationNs:     nowNs,
		MetricCount:    metricCount,
		ConditionCount: conditionCount,
		MatcherCount:   matcherCount,
		AlertCount:     alertCount,
		Valid:          valid,
	}
}

func (s *Store) addToIceBoxLocked(stats *ConfigStats) {
	s.iceBox = append(s.iceBox, stats)
	if len(s.iceBox) > kMaxIceBoxSize {
		s.iceBox = s.iceBox[len(s.iceBox)-kMaxIceBoxSize:]
	}
}

// NoteConfigRemoved moves a config's stats into the ice box so the next
// dump can still report its final state once.
func (s *Store) NoteConfigRemoved(key ConfigKey, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.configs[key]
	if !ok {
		return
	}
	stats.DeletionNs = nowNs
	delete(s.configs, key)
	s.addToIceBoxLocked(stats)
}

// NoteConfigReset records a config reload that keeps the same key alive
// (unlike removal, the active entry is retained, matching
// noteConfigResetInternalLocked).
func (s *Store) NoteConfigReset(key ConfigKey, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stats, ok := s.configs[key]; ok {
		stats.ResetNs = nowNs
	}
}

// NoteBroadcastSent appends a broadcast timestamp to the config's
// bounded history.
func (s *Store) NoteBroadcastSent(key ConfigKey, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.configs[key]
	if !ok {
		return
	}
	bounded := appendBounded(stats.BroadcastNs, nowNs, kMaxTimestampCount)
	stats.BroadcastNs = bounded
}

// NoteDataDropped records a data-drop event with its byte size for the
// given config.
func (s *Store) NoteDataDropped(key ConfigKey, totalBytes int64, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.configs[key]
	if !ok {
		return
	}
	stats.DataDropTimeNs = appendBounded(stats.DataDropTimeNs, nowNs, kMaxTimestampCount)
	stats.DataDropBytes = appendBounded(stats.DataDropBytes, totalBytes, kMaxTimestampCount)
}

// NoteMetricsReportSent records a successful report dump timestamp.
func (s *Store) NoteMetricsReportSent(key ConfigKey, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.configs[key]
	if !ok {
		return
	}
	stats.DumpReportNs = appendBounded(stats.DumpReportNs, nowNs, kMaxTimestampCount)
}

// NoteActivationBroadcastGuardrailHit records a uid hitting the
// broadcast rate guardrail.
func (s *Store) NoteActivationBroadcastGuardrailHit(uid int32, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activationBroadcastGuardrailHits[uid] = appendBounded(s.activationBroadcastGuardrailHits[uid], nowNs, kMaxTimestampCount)
}

// NoteSystemServerRestart records a system-server restart timestamp.
func (s *Store) NoteSystemServerRestart(nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.systemServerRestartsNs = appendBounded(s.systemServerRestartsNs, nowNs, kMaxTimestampCount)
}
