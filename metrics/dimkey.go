// dimkey.go: dimension projection and the structurally-hashed composite
// keys a numeric metric slices its buckets by (§3's MetricDimensionKey /
// HashableDimensionKey).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/WangTingMan/packages-modules-StatsD/event"
)

// FieldSelector projects one value out of a LogEvent's field list. The
// full matcher/field-selector expression language (nested message
// paths, repeated-field position qualifiers) lives in the configuration
// parser, which §1 treats as an external collaborator; this selector
// covers the one shape that matters to the aggregation core, a direct
// index into LogEvent.Fields, plus the positional repeated-field
// qualifiers the spec names (ANY/FIRST/ALL) for forward compatibility
// with a fuller selector once that external layer exists.
type FieldSelector struct {
	// FieldIndex is the position of the target field within
	// LogEvent.Fields, as assigned by the atom's declared field order.
	FieldIndex int

	// Position qualifies how a repeated source field resolves to a
	// scalar for dimensioning purposes. PositionExact uses FieldIndex
	// directly (the common case: a plain, non-repeated field).
	Position RepeatedFieldPosition
}

// RepeatedFieldPosition mirrors the source's position-matcher vocabulary
// for fields nested under a repeated group (most commonly an
// attribution chain).
type RepeatedFieldPosition uint8

const (
	PositionExact RepeatedFieldPosition = iota
	PositionFirst
	PositionAny
	PositionAll
)

// Field resolves sel against ev.Fields. PositionFirst and PositionExact
// both resolve to FieldIndex directly in this core (the indices a
// config supplies are already the matcher-resolved positions); PositionAny
// and PositionAll are accepted but, lacking the external matcher layer
// that would fan them out into multiple dimension rows, also resolve to
// the single FieldIndex position — callers needing true fan-out must
// pre-expand the selector list themselves.
func (sel FieldSelector) Field(ev *event.LogEvent) (event.FieldValue, bool) {
	if sel.FieldIndex < 0 || sel.FieldIndex >= len(ev.Fields) {
		return event.FieldValue{}, false
	}
	return ev.Fields[sel.FieldIndex], true
}

// DimValue is a simplified, hashable snapshot of one projected
// FieldValue, carrying only what's needed for structural equality and
// hashing of a dimension key.
type DimValue struct {
	Kind      event.Kind
	Int64Val  int64
	Float64Val float64
	BoolVal   bool
	StringVal string
}

func dimValueFromField(f event.FieldValue) DimValue {
	dv := DimValue{Kind: f.Kind}
	switch f.Kind {
	case event.KindInt32:
		dv.Int64Val = int64(f.Int32Val)
	case event.KindInt64:
		dv.Int64Val = f.Int64Val
	case event.KindFloat32:
		dv.Float64Val = float64(f.Float32Val)
	case event.KindFloat64:
		dv.Float64Val = f.Float64Val
	case event.KindBool:
		dv.BoolVal = f.BoolVal
	case event.KindString, event.KindAttributionTag:
		dv.StringVal = f.StringVal
	case event.KindAttributionUID:
		dv.Int64Val = int64(f.Int32Val)
	case event.KindBytes:
		dv.StringVal = string(f.BytesVal)
	}
	return dv
}

func (dv DimValue) writeTo(sb *strings.Builder) {
	sb.WriteByte(byte(dv.Kind))
	sb.WriteByte('|')
	switch dv.Kind {
	case event.KindInt32, event.KindInt64, event.KindAttributionUID:
		sb.WriteString(strconv.FormatInt(dv.Int64Val, 10))
	case event.KindFloat32, event.KindFloat64:
		sb.WriteString(strconv.FormatFloat(dv.Float64Val, 'g', -1, 64))
	case event.KindBool:
		if dv.BoolVal {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	default:
		sb.WriteString(dv.StringVal)
	}
	sb.WriteByte(';')
}

// HashableDimensionKey is an ordered sequence of DimValues projected out
// of an event by a metric's dimensions_in_what selectors. Equality and
// hashing are structural: two keys with the same ordered values compare
// equal regardless of which LogEvent produced them.
type HashableDimensionKey struct {
	values []DimValue
	hash   uint64
}

// NewHashableDimensionKey projects dims out of ev using sels, in order.
// A selector that fails to resolve (out-of-range index) is recorded as
// an Unset-kind DimValue rather than aborting the whole key, so a
// partially-matched dimension set still produces a stable, distinct key
// instead of silently colliding with the empty key.
func NewHashableDimensionKey(ev *event.LogEvent, sels []FieldSelector) HashableDimensionKey {
	values := make([]DimValue, len(sels))
	var sb strings.Builder
	for i, sel := range sels {
		f, ok := sel.Field(ev)
		if ok {
			values[i] = dimValueFromField(f)
		} else {
			values[i] = DimValue{Kind: 0xFF}
		}
		values[i].writeTo(&sb)
	}
	return HashableDimensionKey{values: values, hash: xxhash.Sum64String(sb.String())}
}

// Hash returns the structural hash of the key.
func (k HashableDimensionKey) Hash() uint64 { return k.hash }

// Equal reports structural equality between two keys.
func (k HashableDimensionKey) Equal(other HashableDimensionKey) bool {
	if k.hash != other.hash || len(k.values) != len(other.values) {
		return false
	}
	for i := range k.values {
		if k.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// String renders a debug-friendly form, used by dimension-guardrail log
// lines and tests.
func (k HashableDimensionKey) String() string {
	var sb strings.Builder
	for _, v := range k.values {
		v.writeTo(&sb)
	}
	return sb.String()
}

// StateValue is one discrete state-tracker reading folded into a
// MetricDimensionKey. The state-tracker implementation itself is an
// external collaborator per §1; this core only needs a state's
// (AtomID-scoped) key and the int64 value it resolved to, to mix into
// the dimension key's identity.
type StateValue struct {
	StateKey int32
	Value    int64
}

// MetricDimensionKey combines a projected dimensions_in_what key with
// the state values active when the event was aggregated (§3).
type MetricDimensionKey struct {
	What   HashableDimensionKey
	States []StateValue
}

// Hash combines the what-key hash with the state values so two events
// with identical dimensions_in_what but different state land in
// different buckets.
func (k MetricDimensionKey) Hash() uint64 {
	h := k.What.hash
	for _, sv := range k.States {
		h = h*1099511628211 ^ uint64(sv.StateKey)
		h = h*1099511628211 ^ uint64(sv.Value)
	}
	return h
}

// Equal reports structural equality, including the state slice.
func (k MetricDimensionKey) Equal(other MetricDimensionKey) bool {
	if !k.What.Equal(other.What) || len(k.States) != len(other.States) {
		return false
	}
	for i := range k.States {
		if k.States[i] != other.States[i] {
			return false
		}
	}
	return true
}

// mapKey renders a MetricDimensionKey into a form usable as a Go map
// key (the struct itself holds a slice, which isn't comparable).
type mapKey string

func (k MetricDimensionKey) mapKey() mapKey {
	var sb strings.Builder
	sb.WriteString(k.What.String())
	sb.WriteByte('#')
	for _, sv := range k.States {
		sb.WriteString(strconv.FormatInt(int64(sv.StateKey), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatInt(sv.Value, 10))
		sb.WriteByte(',')
	}
	return mapKey(sb.String())
}
