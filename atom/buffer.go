// buffer.go: the atom buffer codec — obtain/write/build/release.
//
// Format specification:
// [version u8][element_count u8][timestamp i64 LE][atom_id i32 LE][elements...]
//
// Element format:
// [tag u8][payload]
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"bytes"
	"encoding/binary"

	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
)

// Buffer builds one self-describing atom record. The zero value is not
// usable; construct one with Obtain.
//
// Calls must follow the order the atom defines: WriteAtomID once, then
// any interleaving of Write* (one per field, in field order) and
// AddBoolAnnotation/AddInt32Annotation (attaching to the atom as a whole
// if no field has been written yet, otherwise to the preceding field).
// Build freezes the record; further Write* calls after Build are ignored.
type Buffer struct {
	atomID    AtomID
	atomIDSet bool

	timestampNs    int64
	timestampFixed bool

	body         bytes.Buffer
	elementCount uint8
	haveField    bool

	errs ErrorBits

	built    bool
	released bool
	record   []byte
}

// Obtain returns a new Buffer ready to accept WriteAtomID and field
// writes. Every Obtain must be paired with a Release.
func Obtain() *Buffer {
	return &Buffer{}
}

// WriteAtomID sets the atom id for this record. Only the first call has
// an effect, matching the producer ABI's "set immediately after obtain"
// contract; later calls are silently ignored.
func (b *Buffer) WriteAtomID(id AtomID) {
	if b.released || b.built || b.atomIDSet {
		return
	}
	b.atomID = id
	b.atomIDSet = true
}

// AtomID returns the atom id assigned to this record.
func (b *Buffer) AtomID() AtomID {
	return b.atomID
}

// OverwriteTimestamp pins the record timestamp to an explicit value,
// bypassing the shared clock. Intended for tests only.
func (b *Buffer) OverwriteTimestamp(ns int64) {
	b.timestampNs = ns
	b.timestampFixed = true
}

// Errors returns the accumulated ErrorBits for this record.
func (b *Buffer) Errors() ErrorBits {
	return b.errs
}

func (b *Buffer) writable() bool {
	return !b.released && !b.built
}

func (b *Buffer) writeTag(tag Tag) {
	b.body.WriteByte(byte(tag))
}

// WriteInt32 appends an int32 field.
func (b *Buffer) WriteInt32(v int32) {
	if !b.writable() {
		return
	}
	b.writeTag(TagInt32)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.body.Write(tmp[:])
	b.fieldWritten()
}

// WriteInt64 appends an int64 field.
func (b *Buffer) WriteInt64(v int64) {
	if !b.writable() {
		return
	}
	b.writeTag(TagInt64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.body.Write(tmp[:])
	b.fieldWritten()
}

// WriteFloat32 appends a float32 field.
func (b *Buffer) WriteFloat32(v float32) {
	if !b.writable() {
		return
	}
	b.writeTag(TagFloat32)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math32bits(v))
	b.body.Write(tmp[:])
	b.fieldWritten()
}

// WriteFloat64 appends a float64 field.
func (b *Buffer) WriteFloat64(v float64) {
	if !b.writable() {
		return
	}
	b.writeTag(TagFloat64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math64bits(v))
	b.body.Write(tmp[:])
	b.fieldWritten()
}

// WriteBool appends a bool field.
func (b *Buffer) WriteBool(v bool) {
	if !b.writable() {
		return
	}
	b.writeTag(TagBool)
	if v {
		b.body.WriteByte(1)
	} else {
		b.body.WriteByte(0)
	}
	b.fieldWritten()
}

// WriteBytes appends a raw byte-array field.
func (b *Buffer) WriteBytes(v []byte) {
	if !b.writable() {
		return
	}
	b.writeTag(TagBytes)
	b.writeU32Len(len(v))
	b.body.Write(v)
	b.fieldWritten()
}

// WriteString appends a UTF-8 string field.
func (b *Buffer) WriteString(v string) {
	if !b.writable() {
		return
	}
	b.writeTag(TagString)
	b.writeU32Len(len(v))
	b.body.WriteString(v)
	b.fieldWritten()
}

// WriteAttributionChain appends an attribution chain: an ordered sequence
// of (uid, tag) pairs, length at most MaxArrayLen.
func (b *Buffer) WriteAttributionChain(uids []uint32, tags []string) {
	if !b.writable() {
		return
	}
	n := len(uids)
	if n != len(tags) || n > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagAttributionChain)
	b.body.WriteByte(byte(n))
	for i := 0; i < n; i++ {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uids[i])
		b.body.Write(tmp[:])
		b.writeU32Len(len(tags[i]))
		b.body.WriteString(tags[i])
	}
	b.fieldWritten()
}

// WriteInt32Array appends an int32 array field, at most MaxArrayLen long.
func (b *Buffer) WriteInt32Array(vals []int32) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagInt32Array)
	b.body.WriteByte(byte(len(vals)))
	var tmp [4]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(tmp[:], uint32(v))
		b.body.Write(tmp[:])
	}
	b.fieldWritten()
}

// WriteInt64Array appends an int64 array field, at most MaxArrayLen long.
func (b *Buffer) WriteInt64Array(vals []int64) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagInt64Array)
	b.body.WriteByte(byte(len(vals)))
	var tmp [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		b.body.Write(tmp[:])
	}
	b.fieldWritten()
}

// WriteFloat32Array appends a float32 array field, at most MaxArrayLen long.
func (b *Buffer) WriteFloat32Array(vals []float32) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagFloat32Array)
	b.body.WriteByte(byte(len(vals)))
	var tmp [4]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(tmp[:], math32bits(v))
		b.body.Write(tmp[:])
	}
	b.fieldWritten()
}

// WriteFloat64Array appends a float64 array field, at most MaxArrayLen long.
func (b *Buffer) WriteFloat64Array(vals []float64) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagFloat64Array)
	b.body.WriteByte(byte(len(vals)))
	var tmp [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(tmp[:], math64bits(v))
		b.body.Write(tmp[:])
	}
	b.fieldWritten()
}

// WriteBoolArray appends a bool array field, at most MaxArrayLen long.
func (b *Buffer) WriteBoolArray(vals []bool) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagBoolArray)
	b.body.WriteByte(byte(len(vals)))
	for _, v := range vals {
		if v {
			b.body.WriteByte(1)
		} else {
			b.body.WriteByte(0)
		}
	}
	b.fieldWritten()
}

// WriteStringArray appends a string array field, at most MaxArrayLen long.
func (b *Buffer) WriteStringArray(vals []string) {
	if !b.writable() {
		return
	}
	if len(vals) > MaxArrayLen {
		b.errs |= ErrorListTooLong
		return
	}
	b.writeTag(TagStringArray)
	b.body.WriteByte(byte(len(vals)))
	for _, v := range vals {
		b.writeU32Len(len(v))
		b.body.WriteString(v)
	}
	b.fieldWritten()
}

// annotationMarker prefixes every annotation entry in the body so the
// decoder can tell it apart from a field element: field tags occupy
// 0x01-0x0E, so 0x00 is free to reuse as the annotation marker.
const annotationMarker byte = 0x00

// AddBoolAnnotation attaches a bool annotation. Before the first field is
// written, it annotates the atom as a whole; afterward, it annotates the
// most recently written field.
func (b *Buffer) AddBoolAnnotation(id uint8, v bool) {
	if !b.writable() {
		return
	}
	b.body.WriteByte(annotationMarker)
	b.body.WriteByte(id)
	b.body.WriteByte(byte(AnnotationTypeBool))
	if v {
		b.body.WriteByte(1)
	} else {
		b.body.WriteByte(0)
	}
}

// AddInt32Annotation attaches an int32 annotation. Before the first field
// is written, it annotates the atom as a whole; afterward, it annotates
// the most recently written field.
func (b *Buffer) AddInt32Annotation(id uint8, v int32) {
	if !b.writable() {
		return
	}
	b.body.WriteByte(annotationMarker)
	b.body.WriteByte(id)
	b.body.WriteByte(byte(AnnotationTypeInt32))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.body.Write(tmp[:])
}

func (b *Buffer) fieldWritten() {
	b.haveField = true
	b.elementCount++
}

func (b *Buffer) writeU32Len(n int) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(n))
	b.body.Write(tmp[:])
}

// Build finalizes the record. Idempotent: calling it again after the
// first call is a no-op and returns nil. atom_id 0 is reserved (§3, §4.A)
// and is rejected outright: whether the id was never written or was
// explicitly written as 0, Build refuses to freeze the record and
// returns ErrCodeAtomIDUnset instead. Every other error condition (array
// truncation, buffer overflow) stays non-fatal per the producer ABI
// contract and is only ever reported through ErrorBits, never here.
func (b *Buffer) Build() error {
	if b.built || b.released {
		return nil
	}
	b.built = true

	if !b.atomIDSet || b.atomID == reservedAtomID {
		return newAtomError(ErrCodeAtomIDUnset, "atom buffer: atom id 0 is reserved and cannot be built")
	}
	if !b.timestampFixed {
		b.timestampNs = clock.NowNs()
	}

	var header bytes.Buffer
	header.Grow(1 + 1 + 8 + 4 + b.body.Len())
	header.WriteByte(RecordVersion)
	header.WriteByte(b.elementCount)

	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(b.timestampNs))
	header.Write(tmp8[:])

	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(b.atomID))
	header.Write(tmp4[:])

	header.Write(b.body.Bytes())
	b.record = header.Bytes()
	return nil
}

// Bytes returns the finalized record. Valid only after Build.
func (b *Buffer) Bytes() []byte {
	return b.record
}

// Release invalidates the handle. Subsequent calls on b are no-ops.
func (b *Buffer) Release() {
	b.released = true
	b.record = nil
}
