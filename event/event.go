// event.go: the parsed in-memory form of an atom record (§3 LogEvent /
// FieldValue), projected out of an atom.Record once the daemon reader
// has decoded it off the wire.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package event

import "github.com/WangTingMan/packages-modules-StatsD/atom"

// Kind tags the scalar variant a FieldValue actually carries. Arrays are
// flattened into one FieldValue per element at parse time; Kind never
// takes on an "array" value itself.
type Kind uint8

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindBytes
	// KindAttributionUID and KindAttributionTag are the two halves of one
	// attribution chain node. The original FieldValue nests a uid field and
	// a tag field under one repeated message; this is flattened to a pair
	// of sibling FieldValues sharing the same Path (Pos[0] the chain's
	// field index, Pos[1] the node index, Depth 2) and differing only in
	// Kind, to keep the value union scalar.
	KindAttributionUID
	KindAttributionTag
)

// Path locates a FieldValue within the atom it came from: the owning
// atom id, up to three nested positional indices (top-level field index,
// then array/attribution-node index, then a reserved third level for
// future nesting), and how many of those indices are in use.
type Path struct {
	AtomID atom.AtomID
	Pos    [3]int32
	Depth  int32
}

// FieldValue is one decoded, positionally addressable value: either a
// plain field, one element of an array field, or one half of an
// attribution chain node.
type FieldValue struct {
	Path Path
	Kind Kind

	Int32Val   int32
	Int64Val   int64
	Float32Val float32
	Float64Val float64
	BoolVal    bool
	StringVal  string
	BytesVal   []byte
}

// AsInt64 returns the field's value widened to int64 along with whether
// the field is an integral kind at all. Used by the metric producer's
// numeric type check (§4.F.3 step 1).
func (f FieldValue) AsInt64() (int64, bool) {
	switch f.Kind {
	case KindInt32:
		return int64(f.Int32Val), true
	case KindInt64:
		return f.Int64Val, true
	}
	return 0, false
}

// AsFloat64 returns the field's value widened to float64 along with
// whether the field is a floating kind at all.
func (f FieldValue) AsFloat64() (float64, bool) {
	switch f.Kind {
	case KindFloat32:
		return float64(f.Float32Val), true
	case KindFloat64:
		return f.Float64Val, true
	}
	return 0, false
}

// IsNumeric reports whether the field is int32/int64/float32/float64 —
// the four kinds a value field or a diffable dimension key component may
// legally hold.
func (f FieldValue) IsNumeric() bool {
	switch f.Kind {
	case KindInt32, KindInt64, KindFloat32, KindFloat64:
		return true
	}
	return false
}

// LogEvent is the parsed form of one atom record, ready for matcher
// dispatch and metric aggregation.
type LogEvent struct {
	atomID    atom.AtomID
	atomIDSet bool

	TimestampNs int64
	LoggerUID   int32

	Fields []FieldValue
}

// New returns an empty LogEvent stamped with the given timestamp. Fields
// are appended with AddField; the atom id is set once with SetAtomID.
func New(timestampNs int64, loggerUID int32) *LogEvent {
	return &LogEvent{TimestampNs: timestampNs, LoggerUID: loggerUID}
}

// SetAtomID sets the atom id exactly once, per §3's invariant that a
// LogEvent's atom_id is set exactly once and later sets are ignored.
func (e *LogEvent) SetAtomID(id atom.AtomID) {
	if e.atomIDSet {
		return
	}
	e.atomID = id
	e.atomIDSet = true
}

// AtomID returns the atom id assigned to this event.
func (e *LogEvent) AtomID() atom.AtomID {
	return e.atomID
}

// AddField appends one positionally-addressed value.
func (e *LogEvent) AddField(f FieldValue) {
	e.Fields = append(e.Fields, f)
}

// SetElapsedTimestampNs overwrites the event's effective timestamp. Used
// by the pulled-atom accumulation path (4.F.4) to snap a pull result's
// timestamp to a bucket boundary before replaying it through the
// matched-event path, mirroring the original's setElapsedTimestampNs.
func (e *LogEvent) SetElapsedTimestampNs(ns int64) {
	e.TimestampNs = ns
}

// Clone returns a deep-enough copy suitable for the pulled-duplicate
// pre-aggregation step (4.F.4), which mutates a synthetic event's fields
// without disturbing the original pulled data.
func (e *LogEvent) Clone() *LogEvent {
	c := &LogEvent{
		atomID:      e.atomID,
		atomIDSet:   e.atomIDSet,
		TimestampNs: e.TimestampNs,
		LoggerUID:   e.LoggerUID,
		Fields:      make([]FieldValue, len(e.Fields)),
	}
	copy(c.Fields, e.Fields)
	return c
}
