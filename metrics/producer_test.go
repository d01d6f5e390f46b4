package metrics

import (
	"testing"

	"github.com/WangTingMan/packages-modules-StatsD/event"
	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
)

func makeEvent(ts int64, val int64) *event.LogEvent {
	e := event.New(ts, 0)
	e.AddField(event.FieldValue{Kind: event.KindInt64, Int64Val: val})
	return e
}

func makeDimEvent(ts, dim, val int64) *event.LogEvent {
	e := event.New(ts, 0)
	e.AddField(event.FieldValue{Kind: event.KindInt64, Int64Val: dim})
	e.AddField(event.FieldValue{Kind: event.KindInt64, Int64Val: val})
	return e
}

func mustConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()
	cfg, err := NewConfig(1, opts...)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

// TestPulledDiffMonotonicity replays the classic pulled-counter scenario:
// the first reading only seeds the diff base (no bucket emitted for it),
// and each subsequent reading reports the delta since the last one, not
// the running total.
func TestPulledDiffMonotonicity(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithPulled(42),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	clock.WithSource(func() int64 { return 0 }, func() {
		p.OnDataPulled([]*event.LogEvent{makeEvent(0, 10)}, PullResultSuccess, 0)
	})
	clock.WithSource(func() int64 { return 1_000_000_000 }, func() {
		p.OnDataPulled([]*event.LogEvent{makeEvent(0, 25)}, PullResultSuccess, 1_000_000_000)
	})
	clock.WithSource(func() int64 { return 2_000_000_000 }, func() {
		p.OnDataPulled([]*event.LogEvent{makeEvent(0, 40)}, PullResultSuccess, 2_000_000_000)
	})

	buckets := p.TakePastBuckets()
	if len(buckets) != 2 {
		t.Fatalf("past buckets = %d, want 2 (first reading only seeds the base)", len(buckets))
	}
	for i, want := range []int64{15, 15} {
		if len(buckets[i].Intervals) != 1 || buckets[i].Intervals[0].Value.I64 != want {
			t.Fatalf("bucket %d intervals = %+v, want value %d", i, buckets[i].Intervals, want)
		}
	}
}

// TestDiffBaseResetsOnConditionFalse confirms a condition-false
// transition clears the diff base so the next true reading reseeds
// rather than diffing against stale data.
func TestDiffBaseResetsOnConditionFalse(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithPulled(42),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	clock.WithSource(func() int64 { return 0 }, func() {
		p.OnDataPulled([]*event.LogEvent{makeEvent(0, 10)}, PullResultSuccess, 0)
	})

	p.OnConditionChanged(ConditionTrue, ConditionFalse, 100)
	p.OnConditionChanged(ConditionFalse, ConditionTrue, 200)

	clock.WithSource(func() int64 { return 1_000_000_000 }, func() {
		p.OnDataPulled([]*event.LogEvent{makeEvent(0, 99)}, PullResultSuccess, 1_000_000_000)
	})

	buckets := p.TakePastBuckets()
	if len(buckets) != 0 {
		t.Fatalf("past buckets = %d, want 0: the post-reset reading should only reseed the base", len(buckets))
	}
}

// TestUploadThresholdGating exercises §4.F.5's gate on the first
// interval's final value: a bucket whose lead value doesn't clear the
// threshold is dropped outright.
func TestUploadThresholdGating(t *testing.T) {
	run := func(val int64) []PastBucket {
		cfg := mustConfig(t,
			WithValueFields(FieldSelector{FieldIndex: 0}),
			WithAggregationTypes(AggSum),
			WithBucketSizeNs(1_000_000_000),
			WithTimeBaseNs(0),
			WithUploadThreshold(&UploadThreshold{Comparison: ThresholdGtInt, IntValue: 100}),
		)
		p := NewProducer(cfg, nil, nil)
		p.OnActiveChanged(0, true)
		p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)
		p.OnMatchedEvent(makeEvent(0, val))
		p.RequestDump(1_000_000_000)
		return p.TakePastBuckets()
	}

	if got := run(99); len(got) != 0 {
		t.Fatalf("value 99 (threshold gt 100): buckets = %d, want 0", len(got))
	}
	if got := run(101); len(got) != 1 {
		t.Fatalf("value 101 (threshold gt 100): buckets = %d, want 1", len(got))
	}
}

// TestDimensionGuardrailReached confirms the fourth distinct dimension
// key past a soft=2/hard=3 limit drops the whole current bucket and
// empties the sliced map, per §4.F.6.
func TestDimensionGuardrailReached(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithDimensionsInWhat(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
		WithDimensionLimits(2, 3),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	for _, dim := range []int64{10, 20, 30, 40} {
		p.OnMatchedEvent(makeEvent(0, dim))
	}

	if !p.HasHitGuardrail() {
		t.Fatalf("HasHitGuardrail() = false, want true after a 4th distinct key past hard=3")
	}

	p.RequestDump(1_000_000_000)

	if got := p.TakePastBuckets(); len(got) != 0 {
		t.Fatalf("past buckets = %d, want 0: the guardrail invalidated the whole bucket", len(got))
	}
	skipped := p.TakeSkippedBuckets()
	if len(skipped) != 1 || skipped[0].DropReason != DropDimensionGuardrailReached {
		t.Fatalf("skipped buckets = %+v, want one DIMENSION_GUARDRAIL_REACHED entry", skipped)
	}
}

// TestAvgAggregationDividesBySampleCount checks AVG's close-time
// division and that sample_size is attached automatically once any
// field uses AVG.
func TestAvgAggregationDividesBySampleCount(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggAvg),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	p.OnMatchedEvent(makeEvent(0, 10))
	p.OnMatchedEvent(makeEvent(100, 30))
	p.RequestDump(1_000_000_000)

	buckets := p.TakePastBuckets()
	if len(buckets) != 1 || len(buckets[0].Intervals) != 1 {
		t.Fatalf("buckets = %+v, want one bucket with one interval", buckets)
	}
	iv := buckets[0].Intervals[0]
	if iv.Value.Kind != F64 || iv.Value.F64 != 20.0 {
		t.Fatalf("avg value = %+v, want F64 20.0", iv.Value)
	}
	if iv.SampleSize != 2 {
		t.Fatalf("sample size = %d, want 2", iv.SampleSize)
	}
}

// TestConditionCorrectionRecordsLateTrueTransition matches §8's
// condition-correction scenario: a condition going true later than the
// configured threshold past the bucket start stamps the delay onto the
// bucket it lands in.
func TestConditionCorrectionRecordsLateTrueTransition(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
		WithConditionCorrectionThresholdNs(1_000_000),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 2_000_000)

	p.OnMatchedEvent(makeEvent(2_000_000, 5))
	p.RequestDump(1_000_000_000)

	buckets := p.TakePastBuckets()
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	if buckets[0].ConditionCorrectionNs != 2_000_000 {
		t.Fatalf("condition_correction_ns = %d, want 2000000", buckets[0].ConditionCorrectionNs)
	}
}

// TestPushedCountAcrossBucketBoundary is the end-to-end scenario from
// §8: three pushed events straddling a 1s bucket boundary produce two
// past buckets with counts 1 and 2.
func TestPushedCountAcrossBucketBoundary(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	p.OnMatchedEvent(makeEvent(0, 1))
	p.OnMatchedEvent(makeEvent(1_000_000_000, 1))
	p.OnMatchedEvent(makeEvent(1_500_000_000, 1))
	p.RequestDump(2_000_000_000)

	buckets := p.TakePastBuckets()
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[0].Intervals[0].Value.I64 != 1 {
		t.Fatalf("bucket 0 count = %d, want 1", buckets[0].Intervals[0].Value.I64)
	}
	if buckets[1].Intervals[0].Value.I64 != 2 {
		t.Fatalf("bucket 1 count = %d, want 2", buckets[1].Intervals[0].Value.I64)
	}
}

// TestDimensionKeysStayIndependent confirms two distinct what-dimensions
// accumulate their own counts rather than sharing one aggregate.
func TestDimensionKeysStayIndependent(t *testing.T) {
	cfg := mustConfig(t,
		WithDimensionsInWhat(FieldSelector{FieldIndex: 0}),
		WithValueFields(FieldSelector{FieldIndex: 1}),
		WithAggregationTypes(AggSum),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	p.OnMatchedEvent(makeDimEvent(0, 1, 5))
	p.OnMatchedEvent(makeDimEvent(0, 2, 7))
	p.OnMatchedEvent(makeDimEvent(0, 1, 3))
	p.RequestDump(1_000_000_000)

	buckets := p.TakePastBuckets()
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (one per dimension key)", len(buckets))
	}
	totals := map[string]int64{}
	for _, b := range buckets {
		totals[b.Dimension.What.String()] = b.Intervals[0].Value.I64
	}
	var sawEight, sawSeven bool
	for _, v := range totals {
		if v == 8 {
			sawEight = true
		}
		if v == 7 {
			sawSeven = true
		}
	}
	if !sawEight || !sawSeven {
		t.Fatalf("dimension totals = %+v, want one dim at 8 (5+3) and one at 7", totals)
	}
}

// TestMultipleBucketsSkippedOnLargeForwardJump confirms that an event
// landing more than one bucket boundary past the current bucket emits a
// skipped-bucket record with MULTIPLE_BUCKETS_SKIPPED for the
// intervening, activity-free bucket (§4.F.7) rather than a silent
// zero-valued past bucket.
func TestMultipleBucketsSkippedOnLargeForwardJump(t *testing.T) {
	cfg := mustConfig(t,
		WithValueFields(FieldSelector{FieldIndex: 0}),
		WithAggregationTypes(AggSum),
		WithBucketSizeNs(1_000_000_000),
		WithTimeBaseNs(0),
	)
	p := NewProducer(cfg, nil, nil)
	p.OnActiveChanged(0, true)
	p.OnConditionChanged(ConditionUnknown, ConditionTrue, 0)

	p.OnMatchedEvent(makeEvent(0, 1))
	// Jumps three bucket boundaries forward in one event: bucket 0 closes
	// normally, buckets 1 and 2 have no activity and must be recorded as
	// skipped rather than emitted as empty past buckets.
	p.OnMatchedEvent(makeEvent(3_000_000_000, 1))

	buckets := p.TakePastBuckets()
	if len(buckets) != 1 {
		t.Fatalf("past buckets = %d, want 1 (only bucket 0 had activity)", len(buckets))
	}
	if buckets[0].Intervals[0].Value.I64 != 1 {
		t.Fatalf("bucket 0 count = %d, want 1", buckets[0].Intervals[0].Value.I64)
	}

	skipped := p.TakeSkippedBuckets()
	if len(skipped) != 2 {
		t.Fatalf("skipped buckets = %d, want 2", len(skipped))
	}
	for _, sb := range skipped {
		if sb.DropReason != DropMultipleBucketsSkipped {
			t.Fatalf("skip reason = %v, want DropMultipleBucketsSkipped", sb.DropReason)
		}
	}
}
