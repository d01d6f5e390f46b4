// producer.go: NumericValueMetricProducer, the aggregation engine
// (§4.F). Covers pulled and pushed atoms, per-dimension diff bases,
// bucket boundary snapping, multi-aggregate intervals, condition/active
// gating, the dimension guardrail, and threshold-filtered emission.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"sync"

	"github.com/WangTingMan/packages-modules-StatsD/event"
	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
	"github.com/WangTingMan/packages-modules-StatsD/statsdstats"
)

// ConditionState is the external condition-tracker signal gating
// aggregation, per the §4.F.2 state machine.
type ConditionState int

const (
	ConditionUnknown ConditionState = iota
	ConditionFalse
	ConditionTrue
)

// PullResult is the outcome of one scheduled pull, reported back to the
// producer through OnDataPulled.
type PullResult int

const (
	PullResultSuccess PullResult = iota
	PullResultFail
)

// Puller is the external collaborator a pulled metric calls to fetch
// fresh data synchronously (first-bucket seeding) or asynchronously (the
// pull scheduler feeding OnDataPulled). The registry and scheduling
// policy live outside this core, per §1.
type Puller interface {
	Pull(atomID int32, timestampNs int64) ([]*event.LogEvent, error)
}

// AnomalyTracker is the external collaborator notified once per matched
// event when anomaly detection is available for that event (§4.F.3,
// §4.F.8). The tracker implementation itself is out of scope per §1.
type AnomalyTracker interface {
	DetectAndDeclareAnomaly(eventTimeNs, bucketNum, metricID int64, key MetricDimensionKey, wholeBucketValue int64)
}

type slicedEntry struct {
	Key    MetricDimensionKey
	Bucket bucketEntry
}

// Producer is one NumericValueMetricProducer instance, guarded by its
// own mutex per §5's "metric producers are guarded by a per-producer
// mutex" policy. The zero value is not usable; construct with
// NewProducer.
type Producer struct {
	mu sync.Mutex

	cfg    *Config
	stats  *statsdstats.Store
	puller Puller

	anomalyTrackers []AnomalyTracker

	isActive  bool
	condition ConditionState

	hasGlobalBase   bool
	hasHitGuardrail bool

	currentBucketStartNs int64
	currentBucketNum     int64

	currentBucketIsSkipped       bool
	skipReason                   BucketDropReason
	currentConditionCorrectionNs int64

	slicedBucket map[mapKey]*slicedEntry
	dimInfos     map[string]*DimInfo

	pastBuckets    []PastBucket
	skippedBuckets []SkippedBucket
}

// NewProducer builds a Producer from cfg. stats may be nil in tests that
// don't care about introspection counters; puller may be nil for
// push-only metrics.
func NewProducer(cfg *Config, stats *statsdstats.Store, puller Puller) *Producer {
	return &Producer{
		cfg:          cfg,
		stats:        stats,
		puller:       puller,
		condition:    ConditionUnknown,
		slicedBucket: make(map[mapKey]*slicedEntry),
		dimInfos:     make(map[string]*DimInfo),

		currentBucketStartNs: cfg.TimeBaseNs,
	}
}

// AddAnomalyTracker registers a tracker to be notified on each matched
// event with usable anomaly-detection data (§4.F.3).
func (p *Producer) AddAnomalyTracker(t AnomalyTracker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anomalyTrackers = append(p.anomalyTrackers, t)
}

// CurrentBucketStartNs reports the start of the bucket currently being
// accumulated.
func (p *Producer) CurrentBucketStartNs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentBucketStartNs
}

// resetBaseLocked clears every dimension's diff bases, matching
// resetBase(): called whenever a drop reason or condition/active
// transition invalidates the running diff (§4.F.2, §4.F.7).
func (p *Producer) resetBaseLocked() {
	for _, di := range p.dimInfos {
		for i := range di.DimExtras {
			di.DimExtras[i] = NumericValue{}
		}
	}
	p.hasGlobalBase = false
}

// OnActiveChanged implements the §4.F.2 transition: for diffed metrics,
// going from active to inactive clears the diff base so stale data isn't
// used once aggregation resumes.
func (p *Producer) OnActiveChanged(nowNs int64, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasActive := p.isActive
	p.isActive = active
	if p.cfg.UseDiff && wasActive && !active {
		p.resetBaseLocked()
	}
}

// OnConditionChanged implements the other half of the §4.F.2 transition
// table and the condition-correction bookkeeping of §8 scenario 6: a
// condition turning true later than ConditionCorrectionThresholdNs past
// the current bucket's scheduled start records the delay so it surfaces
// on the bucket this sample lands in.
func (p *Producer) OnConditionChanged(old, updated ConditionState, nowNs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.UseDiff && old == ConditionTrue && updated == ConditionFalse {
		p.resetBaseLocked()
	}
	if updated == ConditionTrue && p.cfg.ConditionCorrectionThresholdNs > 0 {
		delay := nowNs - p.currentBucketStartNs
		if delay > p.cfg.ConditionCorrectionThresholdNs {
			p.currentConditionCorrectionNs = delay
		}
	}
	p.condition = updated
}

// PrepareFirstBucket kicks off a synchronous pull to seed diff bases
// when the producer starts out active, pulled, diffed, and already
// condition-true, so the very first sample doesn't emit a spurious
// diff against an empty base (§4.F.2).
func (p *Producer) PrepareFirstBucket() {
	p.mu.Lock()
	active := p.isActive
	cond := p.condition
	bucketStart := p.currentBucketStartNs
	p.mu.Unlock()

	if active && p.cfg.Pulled && p.cfg.UseDiff && cond == ConditionTrue {
		p.pullAndMatchEvents(bucketStart)
	}
}

func (p *Producer) pullAndMatchEvents(timestampNs int64) {
	if p.puller == nil {
		return
	}
	data, err := p.puller.Pull(p.cfg.PullAtomID, timestampNs)
	if err != nil {
		if p.stats != nil {
			p.stats.NotePullFailed(p.cfg.PullAtomID)
		}
		p.mu.Lock()
		p.invalidateCurrentBucketLocked(timestampNs, DropPullFailed)
		p.mu.Unlock()
		return
	}
	p.accumulateEvents(data, timestampNs, timestampNs)
}

// calcPreviousBucketEndTimeLocked matches the source's
// calcPreviousBucketEndTime: the bucket boundary at or before
// currentTimeNs, counting whole bucket_size_ns units from time_base_ns.
func (p *Producer) calcPreviousBucketEndTimeLocked(currentTimeNs int64) int64 {
	return p.cfg.TimeBaseNs + ((currentTimeNs-p.cfg.TimeBaseNs)/p.cfg.BucketSizeNs)*p.cfg.BucketSizeNs
}

// OnDataPulled is the scheduled-pull completion callback (§4.F.4). The
// pull scheduler itself is an external collaborator; this is the
// contract it drives.
func (p *Producer) OnDataPulled(data []*event.LogEvent, result PullResult, originalPullTimeNs int64) {
	p.mu.Lock()
	cond := p.condition
	p.mu.Unlock()

	if cond == ConditionTrue {
		if result == PullResultFail {
			p.mu.Lock()
			p.invalidateCurrentBucketLocked(originalPullTimeNs, DropPullFailed)
			p.mu.Unlock()
		} else {
			p.mu.Lock()
			bucketEnd := p.currentBucketStartNs + p.cfg.BucketSizeNs
			p.mu.Unlock()

			if originalPullTimeNs < bucketEnd {
				p.accumulateEvents(data, originalPullTimeNs, originalPullTimeNs)
			} else {
				p.mu.Lock()
				prevEnd := p.calcPreviousBucketEndTimeLocked(originalPullTimeNs) - 1
				p.mu.Unlock()
				if p.stats != nil {
					p.stats.NoteBucketBoundaryDelayNs(p.cfg.MetricID, originalPullTimeNs-prevEnd)
				}
				p.accumulateEvents(data, originalPullTimeNs, prevEnd)
			}
		}
	}

	p.mu.Lock()
	p.flushIfNeededLocked(originalPullTimeNs)
	p.mu.Unlock()
}

// numericFromField extracts a NumericValue out of a decoded event field,
// matching the source's getDoubleOrLong: only int32/int64/float32/float64
// fields qualify as value fields.
func numericFromField(f event.FieldValue) (NumericValue, bool) {
	if i, ok := f.AsInt64(); ok {
		return Int64Value(i), true
	}
	if d, ok := f.AsFloat64(); ok {
		return Float64Value(d), true
	}
	return NumericValue{}, false
}

func writeNumericIntoField(f *event.FieldValue, v NumericValue) {
	switch v.Kind {
	case I64:
		if f.Kind == event.KindInt32 {
			f.Int32Val = int32(v.I64)
		} else {
			f.Kind = event.KindInt64
			f.Int64Val = v.I64
		}
	case F64:
		if f.Kind == event.KindFloat32 {
			f.Float32Val = float32(v.F64)
		} else {
			f.Kind = event.KindFloat64
			f.Float64Val = v.F64
		}
	}
}

// combineValueFields sums src's value fields into dst's, matching the
// source's combineValueFields: pulled duplicates sharing a
// dimensions_in_what key are pre-aggregated before diffing.
func combineValueFields(dst, src *event.LogEvent, sels []FieldSelector) {
	for _, sel := range sels {
		idx := sel.FieldIndex
		if idx < 0 || idx >= len(dst.Fields) || idx >= len(src.Fields) {
			continue
		}
		dv, dok := numericFromField(dst.Fields[idx])
		sv, sok := numericFromField(src.Fields[idx])
		if !dok || !sok {
			continue
		}
		sum, err := Add(dv, sv)
		if err != nil {
			continue
		}
		writeNumericIntoField(&dst.Fields[idx], sum)
	}
}

// accumulateEvents processes one batch of (usually pulled) events,
// pre-aggregating duplicates by dimensions_in_what when diffing, per
// §4.F.4. Per the source's documented behavior (and SPEC_FULL.md's
// open-question note carried from §9), the anomaly tracker still runs
// against the *summed* synthetic event rather than each raw event —
// that quirk is reproduced here rather than corrected.
func (p *Producer) accumulateEvents(data []*event.LogEvent, originalPullTimeNs, eventElapsedTimeNs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isEventLateLocked(eventElapsedTimeNs) {
		if p.stats != nil {
			p.stats.NoteLateLogEventSkipped(p.cfg.MetricID)
		}
		p.invalidateCurrentBucketLocked(eventElapsedTimeNs, DropEventInWrongBucket)
		return
	}

	pullDelayNs := clock.NowNs() - originalPullTimeNs
	if p.stats != nil {
		p.stats.NotePullDelay(p.cfg.PullAtomID, pullDelayNs)
	}
	if pullDelayNs > p.cfg.MaxPullDelayNs {
		if p.stats != nil {
			p.stats.NotePullExceedMaxDelay(p.cfg.PullAtomID)
		}
		p.invalidateCurrentBucketLocked(eventElapsedTimeNs, DropPullDelayed)
		return
	}

	p.flushIfNeededLocked(eventElapsedTimeNs)

	matchedWhatKeys := make(map[string]struct{})

	if p.cfg.UseDiff {
		type group struct {
			ev *event.LogEvent
		}
		order := make([]string, 0, len(data))
		groups := make(map[string]*group)
		for _, raw := range data {
			dimKey := NewHashableDimensionKey(raw, p.cfg.DimensionsInWhat)
			ks := dimKey.String()
			matchedWhatKeys[ks] = struct{}{}
			g, ok := groups[ks]
			if !ok {
				g = &group{ev: raw.Clone()}
				groups[ks] = g
				order = append(order, ks)
			} else {
				combineValueFields(g.ev, raw, p.cfg.ValueFields)
			}
		}
		for _, ks := range order {
			g := groups[ks]
			g.ev.SetElapsedTimestampNs(eventElapsedTimeNs)
			p.onMatchedLogEventLocked(g.ev)
		}
	} else {
		for _, raw := range data {
			dimKey := NewHashableDimensionKey(raw, p.cfg.DimensionsInWhat)
			matchedWhatKeys[dimKey.String()] = struct{}{}
			localCopy := raw.Clone()
			localCopy.SetElapsedTimestampNs(eventElapsedTimeNs)
			p.onMatchedLogEventLocked(localCopy)
		}
	}

	// A dimension currently tracked but absent from this pull has gone
	// stale: erase its diff base so the next reading reseeds it, and turn
	// off its condition timer (§4.F.4). Full state-linked primary-key
	// matching is out of scope (state trackers are external collaborators
	// per §1); every tracked-but-absent key is treated as stale.
	for _, entry := range p.slicedBucket {
		ks := entry.Key.What.String()
		if _, present := matchedWhatKeys[ks]; !present {
			delete(p.dimInfos, ks)
			entry.Bucket.Timer.onConditionChanged(false, eventElapsedTimeNs)
		}
	}

	p.hasGlobalBase = true
}

// checkGuardrailLocked enforces the dimension guardrail (§4.F.6) before
// a brand-new dimension key is admitted. Existing keys are always
// accepted. A new key past the hard limit invalidates the whole current
// bucket and clears it, matching §8's guardrail scenario exactly.
func (p *Producer) checkGuardrailLocked(key MetricDimensionKey, nowNs int64) (rejected bool) {
	if _, exists := p.slicedBucket[key.mapKey()]; exists {
		return false
	}

	lim := p.cfg.DimensionLimitsFor(p.whatAtomIDLocked())
	newCount := len(p.slicedBucket) + 1

	if p.stats != nil {
		p.stats.NoteMetricDimensionSize(p.cfg.MetricID, newCount)
	}
	if newCount <= lim.Hard {
		return false
	}

	if p.stats != nil {
		p.stats.NoteHardDimensionLimitReached(p.cfg.MetricID)
	}
	p.hasHitGuardrail = true
	p.invalidateCurrentBucketLocked(nowNs, DropDimensionGuardrailReached)
	p.slicedBucket = make(map[mapKey]*slicedEntry)
	return true
}

// whatAtomIDLocked returns the atom id the per-atom dimension-limit
// override table is keyed on. Kept as its own accessor since a future
// multi-atom "what" matcher would need to resolve this per event instead
// of once per producer.
func (p *Producer) whatAtomIDLocked() int32 {
	return p.cfg.WhatAtomID
}

// onMatchedLogEventLocked is the single-event admission path shared by
// the push path (OnMatchedEvent) and the pulled/pre-aggregated path
// (accumulateEvents). Only Active&ConditionTrue admits events into
// aggregates, per the §4.F.2 state machine.
func (p *Producer) onMatchedLogEventLocked(ev *event.LogEvent) {
	if !(p.isActive && p.condition == ConditionTrue) {
		return
	}

	dimKey := NewHashableDimensionKey(ev, p.cfg.DimensionsInWhat)
	metricKey := MetricDimensionKey{What: dimKey}

	if p.checkGuardrailLocked(metricKey, ev.TimestampNs) {
		return
	}

	entry, ok := p.slicedBucket[metricKey.mapKey()]
	if !ok {
		entry = &slicedEntry{
			Key: metricKey,
			Bucket: bucketEntry{
				Intervals: make([]Interval, len(p.cfg.ValueFields)),
				Timer:     newConditionTimer(ev.TimestampNs, true),
			},
		}
		for i := range entry.Bucket.Intervals {
			entry.Bucket.Intervals[i].AggIndex = uint32(i)
		}
		p.slicedBucket[metricKey.mapKey()] = entry
	}

	di, ok := p.dimInfos[dimKey.String()]
	if !ok {
		di = &DimInfo{DimExtras: make([]NumericValue, len(p.cfg.ValueFields))}
		p.dimInfos[dimKey.String()] = di
	}

	p.aggregateFieldsLocked(ev, entry, di)
}

// aggregateFieldsLocked is §4.F.3's per-event field loop: project each
// value field, diff it against the dimension's base when configured,
// fold it into the interval's running aggregate, and feed any anomaly
// trackers once per event if every field's data was clean.
func (p *Producer) aggregateFieldsLocked(ev *event.LogEvent, entry *slicedEntry, di *DimInfo) {
	if len(di.DimExtras) < len(p.cfg.ValueFields) {
		grown := make([]NumericValue, len(p.cfg.ValueFields))
		copy(grown, di.DimExtras)
		di.DimExtras = grown
	}

	useAnomalyDetection := true

	for i, sel := range p.cfg.ValueFields {
		interval := &entry.Bucket.Intervals[i]
		interval.AggIndex = uint32(i)

		fv, found := sel.Field(ev)
		value, typed := numericFromField(fv)
		if !found || !typed {
			if p.stats != nil {
				p.stats.NoteBadValueType(p.cfg.MetricID)
			}
			return
		}

		if p.cfg.UseDiff {
			base := &di.DimExtras[i]
			if !base.HasValue() {
				if p.hasGlobalBase && p.cfg.UseZeroDefaultBase {
					if value.Kind == I64 {
						*base = Int64Value(0)
					} else {
						*base = Float64Value(0)
					}
				} else {
					*base = value
					useAnomalyDetection = false
					continue
				}
			}

			diff, ok := p.computeDiffLocked(value, base)
			if !ok {
				useAnomalyDetection = false
				continue
			}
			*base = value
			value = diff
		}

		if interval.HasValue() {
			var folded NumericValue
			var err error
			switch p.cfg.AggregationFor(i) {
			case AggSum, AggAvg:
				folded, err = Add(interval.Aggregate, value)
			case AggMin:
				folded, err = Min(interval.Aggregate, value)
			case AggMax:
				folded, err = Max(interval.Aggregate, value)
			}
			if err != nil {
				if p.stats != nil {
					p.stats.NoteBadValueType(p.cfg.MetricID)
				}
				continue
			}
			interval.Aggregate = folded
		} else {
			interval.Aggregate = value
		}
		interval.SampleSize++
	}

	if useAnomalyDetection && len(p.anomalyTrackers) > 0 && len(entry.Bucket.Intervals) > 0 {
		whole := entry.Bucket.Intervals[0].Aggregate.I64
		for _, tr := range p.anomalyTrackers {
			tr.DetectAndDeclareAnomaly(ev.TimestampNs, p.currentBucketNum, p.cfg.MetricID, entry.Key, whole)
		}
	}
}

// computeDiffLocked implements §4.F.3 step 3's per-direction diff rule.
// On a counter reset without UseAbsoluteValueOnReset it reseeds *base
// with value itself; on every other path updating base is left to the
// caller. ok is false when the sample should be skipped for this field
// (reseed-only or bad-comparison paths).
func (p *Producer) computeDiffLocked(value NumericValue, base *NumericValue) (NumericValue, bool) {
	switch p.cfg.ValueDirection {
	case DirIncreasing:
		cmp, err := Compare(value, *base)
		if err != nil {
			if p.stats != nil {
				p.stats.NoteBadValueType(p.cfg.MetricID)
			}
			return NumericValue{}, false
		}
		if cmp >= 0 {
			diff, _ := Sub(value, *base)
			return diff, true
		}
		if p.cfg.UseAbsoluteValueOnReset {
			return value, true
		}
		if p.stats != nil {
			p.stats.NotePullDataError(p.cfg.PullAtomID)
		}
		*base = value
		return NumericValue{}, false

	case DirDecreasing:
		cmp, err := Compare(*base, value)
		if err != nil {
			if p.stats != nil {
				p.stats.NoteBadValueType(p.cfg.MetricID)
			}
			return NumericValue{}, false
		}
		if cmp >= 0 {
			diff, _ := Sub(*base, value)
			return diff, true
		}
		if p.cfg.UseAbsoluteValueOnReset {
			return value, true
		}
		if p.stats != nil {
			p.stats.NotePullDataError(p.cfg.PullAtomID)
		}
		*base = value
		return NumericValue{}, false

	default: // DirAny
		diff, err := Sub(value, *base)
		if err != nil {
			if p.stats != nil {
				p.stats.NoteBadValueType(p.cfg.MetricID)
			}
			return NumericValue{}, false
		}
		return diff, true
	}
}

// OnMatchedEvent is the push-path entry point: a matcher dispatcher
// outside this core has already determined ev matches this producer's
// "what" and hands it over directly (no pull, no pre-aggregation).
func (p *Producer) OnMatchedEvent(ev *event.LogEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isEventLateLocked(ev.TimestampNs) {
		if p.stats != nil {
			p.stats.NoteLateLogEventSkipped(p.cfg.MetricID)
		}
		p.invalidateCurrentBucketLocked(ev.TimestampNs, DropEventInWrongBucket)
		return
	}

	p.flushIfNeededLocked(ev.TimestampNs)
	p.onMatchedLogEventLocked(ev)
}

func (p *Producer) isEventLateLocked(eventTimeNs int64) bool {
	return eventTimeNs < p.currentBucketStartNs
}

func (p *Producer) currentBucketEndNsLocked() int64 {
	return p.currentBucketStartNs + p.cfg.BucketSizeNs
}

// flushIfNeededLocked implements §4.F.5: while the event time has
// crossed the current bucket's end, close it and advance. A second or
// later iteration of the loop means a whole bucket elapsed with no
// activity to close it on time; that gap is invalidated with
// MULTIPLE_BUCKETS_SKIPPED (§4.F.7) rather than emitted as an ordinary
// (necessarily empty) past bucket, and accounted separately in the stats
// store from an ordinary close.
func (p *Producer) flushIfNeededLocked(eventTimeNs int64) {
	first := true
	for eventTimeNs >= p.currentBucketEndNsLocked() {
		nextStart := p.currentBucketEndNsLocked()
		if !first {
			if p.stats != nil {
				p.stats.NoteSkippedForwardBuckets(p.cfg.MetricID)
			}
			p.invalidateCurrentBucketLocked(eventTimeNs, DropMultipleBucketsSkipped)
		}
		p.closeCurrentBucketLocked(eventTimeNs, nextStart)
		p.initNextSlicedBucketLocked(nextStart)
		first = false
	}
}

// invalidateCurrentBucketLocked marks the current bucket for skipped
// emission and, per §4.F.7, resets diff bases for the reasons that call
// for it.
func (p *Producer) invalidateCurrentBucketLocked(dropTimeNs int64, reason BucketDropReason) {
	if !p.currentBucketIsSkipped {
		if p.stats != nil {
			p.stats.NoteInvalidatedBucket(p.cfg.MetricID)
		}
	}
	p.currentBucketIsSkipped = true
	p.skipReason = reason
	if reason.resetsBase() {
		p.resetBaseLocked()
	}
}

// finalValueLocked applies AVG's division-on-close, per the source's
// getFinalValue: every other aggregation type emits its running
// aggregate unchanged.
func (p *Producer) finalValueLocked(iv Interval) NumericValue {
	if p.cfg.AggregationFor(int(iv.AggIndex)) != AggAvg {
		return iv.Aggregate
	}
	if iv.SampleSize == 0 {
		return iv.Aggregate
	}
	return Float64Value(iv.Aggregate.ToFloat64() / float64(iv.SampleSize))
}

// closeCurrentBucketLocked implements §4.F.5's close_current_bucket:
// one PastBucket per dimension whose first interval passes the upload
// threshold and that has at least one interval to emit, or a single
// SkippedBucket record if the whole bucket was invalidated.
func (p *Producer) closeCurrentBucketLocked(eventTimeNs, nextStartNs int64) {
	if !p.currentBucketIsSkipped && p.condition == ConditionUnknown {
		if p.stats != nil {
			p.stats.NoteBucketUnknownCondition(p.cfg.MetricID)
		}
		p.invalidateCurrentBucketLocked(eventTimeNs, DropConditionUnknown)
	}

	if p.stats != nil {
		p.stats.NoteBucketCount(p.cfg.MetricID)
	}

	bucketStart := p.currentBucketStartNs

	if p.currentBucketIsSkipped {
		p.skippedBuckets = append(p.skippedBuckets, SkippedBucket{
			StartNs:    bucketStart,
			EndNs:      nextStartNs,
			DropReason: p.skipReason,
		})
		if p.stats != nil {
			p.stats.NoteBucketDropped(p.cfg.MetricID)
		}
		return
	}

	for _, entry := range p.slicedBucket {
		if len(entry.Bucket.Intervals) == 0 {
			continue
		}
		first := entry.Bucket.Intervals[0]
		if first.HasValue() {
			finalFirst := p.finalValueLocked(first)
			if !p.cfg.UploadThreshold.Passes(finalFirst) {
				continue
			}
		}

		var results []IntervalResult
		for _, iv := range entry.Bucket.Intervals {
			if !iv.HasValue() {
				continue
			}
			if p.cfg.UseDiff && p.cfg.SkipZeroDiffOutput && iv.Aggregate.IsZero() {
				continue
			}
			res := IntervalResult{AggIndex: iv.AggIndex, Value: p.finalValueLocked(iv)}
			if p.cfg.IncludeSampleSize {
				res.SampleSize = iv.SampleSize
			}
			results = append(results, res)
		}
		if len(results) == 0 {
			continue
		}

		p.pastBuckets = append(p.pastBuckets, PastBucket{
			Dimension:             entry.Key,
			BucketNum:             p.currentBucketNum,
			StartNs:               bucketStart,
			EndNs:                 nextStartNs,
			Intervals:             results,
			ConditionTrueNs:       entry.Bucket.Timer.trueNs(eventTimeNs),
			ConditionCorrectionNs: p.currentConditionCorrectionNs,
		})
	}
}

// initNextSlicedBucketLocked implements §4.F.5's init_next_sliced_bucket:
// intervals reset, but dim_extras (bases) and the sliced-bucket entries
// themselves persist so cross-bucket diffing keeps working.
func (p *Producer) initNextSlicedBucketLocked(nextStartNs int64) {
	p.currentBucketStartNs = nextStartNs
	p.currentBucketNum++
	p.currentConditionCorrectionNs = 0
	p.hasHitGuardrail = false
	p.currentBucketIsSkipped = false
	p.skipReason = DropNone

	for _, entry := range p.slicedBucket {
		for i := range entry.Bucket.Intervals {
			entry.Bucket.Intervals[i].SampleSize = 0
			entry.Bucket.Intervals[i].Aggregate = NumericValue{}
		}
		entry.Bucket.Timer.newBucket(nextStartNs)
	}
}

// RequestDump forces the current (possibly partial) bucket closed —
// because the owning config is being dumped or uninstalled — and
// returns every PastBucket accumulated so far, including the one just
// closed. A bucket closed before min_bucket_size_ns has elapsed is
// marked BUCKET_TOO_SMALL instead of emitted; a pulled metric forced
// closed early is marked DUMP_REPORT_REQUESTED, since its pull for this
// bucket hasn't happened yet and its data is necessarily incomplete.
func (p *Producer) RequestDump(nowNs int64) []PastBucket {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := nowNs - p.currentBucketStartNs
	if elapsed > 0 {
		switch {
		case p.cfg.MinBucketSizeNs > 0 && elapsed < p.cfg.MinBucketSizeNs:
			p.invalidateCurrentBucketLocked(nowNs, DropBucketTooSmall)
		case p.cfg.Pulled:
			p.invalidateCurrentBucketLocked(nowNs, DropDumpReportRequested)
		}
		p.closeCurrentBucketLocked(nowNs, nowNs)
		p.initNextSlicedBucketLocked(nowNs)
	}

	out := p.pastBuckets
	p.pastBuckets = nil
	return out
}

// TakeSkippedBuckets drains and returns every skipped-bucket record
// accumulated so far.
func (p *Producer) TakeSkippedBuckets() []SkippedBucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.skippedBuckets
	p.skippedBuckets = nil
	return out
}

// TakePastBuckets drains and returns every past-bucket record
// accumulated so far without forcing the current bucket closed.
func (p *Producer) TakePastBuckets() []PastBucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pastBuckets
	p.pastBuckets = nil
	return out
}

// HasHitGuardrail reports whether the dimension guardrail has rejected a
// new key in the current bucket; the flag clears when the next bucket
// starts.
func (p *Producer) HasHitGuardrail() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasHitGuardrail
}
