// report.go: protobuf field layout for a closed bucket, reproduced from
// NumericValueMetricProducer.cpp's FIELD_ID_* constants and
// writePastBucketAggregateToProto/getDumpProtoFields (§4.F.8).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package metrics

import "github.com/WangTingMan/packages-modules-StatsD/report"

// ValueMetricData sub-message fields, one instance per dimension per
// bucket.
const (
	FieldBucketNum                = 4
	FieldStartBucketElapsedMillis = 5
	FieldEndBucketElapsedMillis   = 6
	FieldValueMetrics             = 7
	FieldConditionTrueNs          = 10
	FieldConditionCorrectionNs    = 11
)

// AggregatedValue sub-message fields (one per configured value field).
const (
	FieldValueIndex      = 1
	FieldValueLong       = 2
	FieldValueDouble     = 3
	FieldValueSampleSize = 4
	FieldValues          = 9
)

// writeIntervalProto appends one AggregatedValue sub-message for iv into
// b, matching writePastBucketAggregateToProto's per-field write.
func writeIntervalProto(b *report.Builder, iv IntervalResult, includeSampleSize bool) *report.Builder {
	b.Int32(FieldValueIndex, int32(iv.AggIndex))
	if includeSampleSize {
		b.Int32(FieldValueSampleSize, int32(iv.SampleSize))
	}
	switch iv.Value.Kind {
	case I64:
		b.Int64(FieldValueLong, iv.Value.I64)
	case F64:
		b.Double(FieldValueDouble, iv.Value.F64)
	}
	return b
}

// BuildBucketProto encodes one closed PastBucket as the wire bytes of a
// ValueMetricData message, ready to be embedded as one repeated
// FieldValueMetrics entry of the owning metric's report.
// includeSampleSize should mirror the producing Config's
// IncludeSampleSize: a PastBucket built with that flag off never
// populated IntervalResult.SampleSize, so writing it regardless would
// emit a spurious zero sample count.
func BuildBucketProto(pb PastBucket, includeSampleSize bool) []byte {
	b := report.NewBuilder()
	b.Int64(FieldBucketNum, pb.BucketNum)
	b.Int64(FieldStartBucketElapsedMillis, pb.StartNs/1_000_000)
	b.Int64(FieldEndBucketElapsedMillis, pb.EndNs/1_000_000)
	if pb.ConditionTrueNs > 0 {
		b.Int64(FieldConditionTrueNs, pb.ConditionTrueNs)
	}
	if pb.ConditionCorrectionNs != 0 {
		b.Int64(FieldConditionCorrectionNs, pb.ConditionCorrectionNs)
	}

	for _, iv := range pb.Intervals {
		child := report.NewBuilder()
		writeIntervalProto(child, iv, includeSampleSize)
		b.Message(FieldValues, child)
	}

	return b.Bytes()
}
