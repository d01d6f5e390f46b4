// metrics.go: per-metric bucket accounting and restricted-metric query /
// subscription lifecycle bookkeeping.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

// metricStats accumulates the per-metric counters NumericValueMetricProducer
// reports through its failure and dimension-guardrail paths (4.F.6, 4.F.7).
type metricStats struct {
	hardDimensionLimitReached int64
	lateLogEventSkipped       int64
	skippedForwardBuckets     int64
	badValueType              int64
	bucketDropped             int64
	bucketUnknownCondition    int64
	conditionChangeNextBucket int64
	invalidatedBucket         int64
	bucketCount               int64
	bucketBoundaryDelayNs     int64
	matcherMatchedCount       int64
	anomalyDeclaredCount      int64
	conditionDimensionSize    int
	metricDimensionSize       int
	metricDimInConditionSize  int
}

func (s *Store) getOrCreateMetricStats(metricID int64) *metricStats {
	if s.metricStats == nil {
		s.metricStats = make(map[int64]*metricStats)
	}
	st, ok := s.metricStats[metricID]
	if !ok {
		st = &metricStats{}
		s.metricStats[metricID] = st
	}
	return st
}

// NoteHardDimensionLimitReached records the dimension guardrail (4.F.6)
// rejecting a new dimension because the hard cap was hit.
func (s *Store) NoteHardDimensionLimitReached(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).hardDimensionLimitReached++
}

// NoteLateLogEventSkipped records a matched event arriving after its
// bucket had already closed, per 4.F.7's late-event drop reason.
func (s *Store) NoteLateLogEventSkipped(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).lateLogEventSkipped++
}

// NoteSkippedForwardBuckets records buckets skipped entirely when the
// producer fast-forwards past a gap with no activity.
func (s *Store) NoteSkippedForwardBuckets(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).skippedForwardBuckets++
}

// NoteBadValueType records a matched event whose value field failed the
// numeric-type check in 4.F.3 step 1.
func (s *Store) NoteBadValueType(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).badValueType++
}

// NoteBucketDropped records an entire bucket discarded, per 4.F.7.
func (s *Store) NoteBucketDropped(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).bucketDropped++
}

// NoteBucketUnknownCondition records a bucket closed while the
// condition tracker had not yet resolved.
func (s *Store) NoteBucketUnknownCondition(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).bucketUnknownCondition++
}

// NoteConditionChangeInNextBucket records a condition change that was
// observed one bucket later than it took effect.
func (s *Store) NoteConditionChangeInNextBucket(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).conditionChangeNextBucket++
}

// NoteInvalidatedBucket records a bucket invalidated by a pull delay or
// other corrective action (4.F.4).
func (s *Store) NoteInvalidatedBucket(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).invalidatedBucket++
}

// NoteBucketCount increments the count of buckets this metric has
// closed.
func (s *Store) NoteBucketCount(metricID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(metricID).bucketCount++
}

// NoteBucketBoundaryDelayNs records the largest bucket-boundary snapping
// correction applied in 4.F.4.
func (s *Store) NoteBucketBoundaryDelayNs(metricID int64, delayNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateMetricStats(metricID)
	if delayNs > st.bucketBoundaryDelayNs {
		st.bucketBoundaryDelayNs = delayNs
	}
}

// NoteMatcherMatched records a matcher firing for the given matcher id.
func (s *Store) NoteMatcherMatched(matcherID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(matcherID).matcherMatchedCount++
}

// NoteAnomalyDeclared records an anomaly alert firing for alertID.
func (s *Store) NoteAnomalyDeclared(alertID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateMetricStats(alertID).anomalyDeclaredCount++
}

// NoteConditionDimensionSize records the largest condition dimension
// table size observed for id.
func (s *Store) NoteConditionDimensionSize(id int64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateMetricStats(id)
	if size > st.conditionDimensionSize {
		st.conditionDimensionSize = size
	}
}

// NoteMetricDimensionSize records the largest metric dimension table
// size observed for id.
func (s *Store) NoteMetricDimensionSize(id int64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateMetricStats(id)
	if size > st.metricDimensionSize {
		st.metricDimensionSize = size
	}
}

// NoteMetricDimensionInConditionSize records the largest
// dimension-in-condition table size observed for id.
func (s *Store) NoteMetricDimensionInConditionSize(id int64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateMetricStats(id)
	if size > st.metricDimInConditionSize {
		st.metricDimInConditionSize = size
	}
}

// NoteQueryRestrictedMetricSucceed records a successful restricted-metric
// query, bounded to kMaxRestrictedMetricQueryCount most recent entries.
func (s *Store) NoteQueryRestrictedMetricSucceed(configID int64, configUID, callingUID int32, latencyNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRestrictedQueryLocked(RestrictedMetricQuery{
		ConfigID:   configID,
		ConfigUID:  configUID,
		CallingUID: callingUID,
		Succeeded:  true,
		LatencyNs:  latencyNs,
	})
}

// NoteQueryRestrictedMetricFailed records a rejected restricted-metric
// query with the reason it was rejected.
func (s *Store) NoteQueryRestrictedMetricFailed(configID int64, configUID, callingUID int32, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRestrictedQueryLocked(RestrictedMetricQuery{
		ConfigID:      configID,
		ConfigUID:     configUID,
		CallingUID:    callingUID,
		Succeeded:     false,
		InvalidReason: reason,
	})
}

func (s *Store) appendRestrictedQueryLocked(q RestrictedMetricQuery) {
	s.restrictedQueries = append(s.restrictedQueries, q)
	if len(s.restrictedQueries) > kMaxRestrictedMetricQueryCount {
		s.restrictedQueries = s.restrictedQueries[len(s.restrictedQueries)-kMaxRestrictedMetricQueryCount:]
	}
}

// NoteSubscriptionStarted, NoteSubscriptionFlushed and
// NoteSubscriptionError track the shell subscriber lifecycle.
func (s *Store) NoteSubscriptionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptionStarts++
}

func (s *Store) NoteSubscriptionFlushed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptionFlushes++
}

func (s *Store) NoteSubscriptionError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptionErrors++
}
