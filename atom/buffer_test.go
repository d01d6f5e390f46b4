// buffer_test.go: round-trip tests for the atom buffer codec.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package atom

import "testing"

func TestBuffer_RoundTrip_ScalarFields(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(1001)
	b.OverwriteTimestamp(12345)
	b.WriteInt32(42)
	b.WriteInt64(-7)
	b.WriteFloat32(1.5)
	b.WriteFloat64(2.25)
	b.WriteBool(true)
	b.WriteString("hello")
	b.WriteBytes([]byte{1, 2, 3})
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if b.Errors() != 0 {
		t.Fatalf("expected no errors, got %v", b.Errors())
	}

	rec, err := ReadBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}

	if rec.AtomID != 1001 {
		t.Errorf("expected atom id 1001, got %d", rec.AtomID)
	}
	if rec.TimestampNs != 12345 {
		t.Errorf("expected timestamp 12345, got %d", rec.TimestampNs)
	}
	if len(rec.Fields) != 7 {
		t.Fatalf("expected 7 fields, got %d", len(rec.Fields))
	}

	if rec.Fields[0].Tag != TagInt32 || rec.Fields[0].Int32Val != 42 {
		t.Errorf("field 0 mismatch: %+v", rec.Fields[0])
	}
	if rec.Fields[1].Tag != TagInt64 || rec.Fields[1].Int64Val != -7 {
		t.Errorf("field 1 mismatch: %+v", rec.Fields[1])
	}
	if rec.Fields[2].Tag != TagFloat32 || rec.Fields[2].Float32Val != 1.5 {
		t.Errorf("field 2 mismatch: %+v", rec.Fields[2])
	}
	if rec.Fields[3].Tag != TagFloat64 || rec.Fields[3].Float64Val != 2.25 {
		t.Errorf("field 3 mismatch: %+v", rec.Fields[3])
	}
	if rec.Fields[4].Tag != TagBool || !rec.Fields[4].BoolVal {
		t.Errorf("field 4 mismatch: %+v", rec.Fields[4])
	}
	if rec.Fields[5].Tag != TagString || rec.Fields[5].StringVal != "hello" {
		t.Errorf("field 5 mismatch: %+v", rec.Fields[5])
	}
	if rec.Fields[6].Tag != TagBytes || string(rec.Fields[6].BytesVal) != "\x01\x02\x03" {
		t.Errorf("field 6 mismatch: %+v", rec.Fields[6])
	}
}

func TestBuffer_RoundTrip_AttributionChain(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(2002)
	b.OverwriteTimestamp(1)
	b.WriteAttributionChain([]uint32{10, 20}, []string{"foo", "bar"})
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rec, err := ReadBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if len(rec.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(rec.Fields))
	}
	f := rec.Fields[0]
	if f.Tag != TagAttributionChain {
		t.Fatalf("expected attribution chain tag, got %v", f.Tag)
	}
	if len(f.AttributionUIDs) != 2 || f.AttributionUIDs[0] != 10 || f.AttributionUIDs[1] != 20 {
		t.Errorf("unexpected uids: %v", f.AttributionUIDs)
	}
	if len(f.AttributionTags) != 2 || f.AttributionTags[0] != "foo" || f.AttributionTags[1] != "bar" {
		t.Errorf("unexpected tags: %v", f.AttributionTags)
	}
}

func TestBuffer_ArrayTooLong_SetsErrorAndOmitsField(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(3003)
	b.OverwriteTimestamp(1)
	b.WriteInt32(7) // a field before the oversized array, must survive intact

	oversized := make([]int32, 200)
	b.WriteInt32Array(oversized)

	b.WriteBool(true) // a field after, must also survive intact
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if b.Errors()&ErrorListTooLong == 0 {
		t.Fatal("expected ErrorListTooLong to be set")
	}

	rec, err := ReadBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if len(rec.Fields) != 2 {
		t.Fatalf("expected the oversized array to be omitted, leaving 2 fields, got %d", len(rec.Fields))
	}
	if rec.Fields[0].Int32Val != 7 {
		t.Errorf("expected first field intact, got %+v", rec.Fields[0])
	}
	if !rec.Fields[1].BoolVal {
		t.Errorf("expected second field intact, got %+v", rec.Fields[1])
	}
}

func TestBuffer_Annotations(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(4004)
	b.OverwriteTimestamp(1)
	b.AddBoolAnnotation(5, false) // atom-level: no field written yet
	b.WriteInt32(24)
	b.AddBoolAnnotation(1, true) // attaches to the int32 field
	b.AddInt32Annotation(2, 128)
	b.WriteFloat32(2.0)
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rec, err := ReadBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}

	if len(rec.AtomAnnotations) != 1 {
		t.Fatalf("expected 1 atom-level annotation, got %d", len(rec.AtomAnnotations))
	}
	if rec.AtomAnnotations[0].ID != 5 || rec.AtomAnnotations[0].BoolVal != false {
		t.Errorf("unexpected atom annotation: %+v", rec.AtomAnnotations[0])
	}

	if len(rec.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(rec.Fields))
	}
	if len(rec.Fields[0].Annotations) != 2 {
		t.Fatalf("expected 2 annotations on first field, got %d", len(rec.Fields[0].Annotations))
	}
	if rec.Fields[0].Annotations[0].ID != 1 || !rec.Fields[0].Annotations[0].BoolVal {
		t.Errorf("unexpected first field annotation: %+v", rec.Fields[0].Annotations[0])
	}
	if rec.Fields[0].Annotations[1].ID != 2 || rec.Fields[0].Annotations[1].Int32Val != 128 {
		t.Errorf("unexpected second field annotation: %+v", rec.Fields[0].Annotations[1])
	}
	if len(rec.Fields[1].Annotations) != 0 {
		t.Errorf("expected no annotations on second field, got %d", len(rec.Fields[1].Annotations))
	}
}

func TestBuffer_BuildIsIdempotent(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(5005)
	b.OverwriteTimestamp(1)
	b.WriteInt32(1)
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	first := append([]byte(nil), b.Bytes()...)

	if err := b.Build(); err != nil { // second call must be a no-op
		t.Fatalf("second Build: %v", err)
	}
	b.WriteInt32(99) // must be ignored, buffer is built

	if string(b.Bytes()) != string(first) {
		t.Error("Build was not idempotent, or writes after Build were not ignored")
	}
}

func TestBuffer_SecondAtomIDIgnored(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(1)
	b.WriteAtomID(2)
	if b.AtomID() != 1 {
		t.Errorf("expected first atom id to stick, got %d", b.AtomID())
	}
}

func TestBuffer_BuildRejectsUnsetAtomID(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.OverwriteTimestamp(1)
	b.WriteInt32(1)

	err := b.Build()
	if err == nil {
		t.Fatal("expected Build to reject a record with no atom id")
	}
	if b.Bytes() != nil {
		t.Errorf("expected no bytes to be produced on a rejected build, got %v", b.Bytes())
	}
}

func TestBuffer_BuildRejectsExplicitZeroAtomID(t *testing.T) {
	b := Obtain()
	defer b.Release()

	b.WriteAtomID(0)
	b.OverwriteTimestamp(1)
	b.WriteInt32(1)

	err := b.Build()
	if err == nil {
		t.Fatal("expected Build to reject the reserved atom id 0")
	}
	if b.Bytes() != nil {
		t.Errorf("expected no bytes to be produced on a rejected build, got %v", b.Bytes())
	}
}
