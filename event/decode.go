// decode.go: projects a decoded atom.Record into a LogEvent, flattening
// arrays and attribution chains into individually addressable
// FieldValues the way the matcher/metric layer expects.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package event

import "github.com/WangTingMan/packages-modules-StatsD/atom"

// FromRecord builds a LogEvent out of a parsed atom.Record. Annotations
// are intentionally not carried into the LogEvent: they influence
// pipeline-external concerns (uid resolution, restriction tagging) that
// this package's consumers (matchers, NumericValueMetricProducer) never
// read directly, so keeping them off FieldValue keeps the aggregation
// hot path free of annotation bookkeeping.
func FromRecord(rec *atom.Record) *LogEvent {
	e := New(rec.TimestampNs, 0)
	e.SetAtomID(rec.AtomID)

	for i, f := range rec.Fields {
		appendField(e, rec.AtomID, i, f)
	}
	return e
}

func appendField(e *LogEvent, atomID atom.AtomID, index int, f atom.Field) {
	base := Path{AtomID: atomID, Pos: [3]int32{int32(index), 0, 0}, Depth: 1}

	switch f.Tag {
	case atom.TagInt32:
		e.AddField(FieldValue{Path: base, Kind: KindInt32, Int32Val: f.Int32Val})
	case atom.TagInt64:
		e.AddField(FieldValue{Path: base, Kind: KindInt64, Int64Val: f.Int64Val})
	case atom.TagFloat32:
		e.AddField(FieldValue{Path: base, Kind: KindFloat32, Float32Val: f.Float32Val})
	case atom.TagFloat64:
		e.AddField(FieldValue{Path: base, Kind: KindFloat64, Float64Val: f.Float64Val})
	case atom.TagBool:
		e.AddField(FieldValue{Path: base, Kind: KindBool, BoolVal: f.BoolVal})
	case atom.TagString:
		e.AddField(FieldValue{Path: base, Kind: KindString, StringVal: f.StringVal})
	case atom.TagBytes:
		e.AddField(FieldValue{Path: base, Kind: KindBytes, BytesVal: f.BytesVal})

	case atom.TagAttributionChain:
		for node := range f.AttributionUIDs {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(node), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindAttributionUID, Int32Val: int32(f.AttributionUIDs[node])})
			e.AddField(FieldValue{Path: p, Kind: KindAttributionTag, StringVal: f.AttributionTags[node]})
		}

	case atom.TagInt32Array:
		for n, v := range f.Int32ArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindInt32, Int32Val: v})
		}
	case atom.TagInt64Array:
		for n, v := range f.Int64ArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindInt64, Int64Val: v})
		}
	case atom.TagFloat32Array:
		for n, v := range f.Float32ArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindFloat32, Float32Val: v})
		}
	case atom.TagFloat64Array:
		for n, v := range f.Float64ArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindFloat64, Float64Val: v})
		}
	case atom.TagBoolArray:
		for n, v := range f.BoolArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindBool, BoolVal: v})
		}
	case atom.TagStringArray:
		for n, v := range f.StringArrayVal {
			p := Path{AtomID: atomID, Pos: [3]int32{int32(index), int32(n), 0}, Depth: 2}
			e.AddField(FieldValue{Path: p, Kind: KindString, StringVal: v})
		}
	}
}
