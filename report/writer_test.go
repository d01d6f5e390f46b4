// writer_test.go
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package report

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestBuilder_RoundTrip_ScalarFields(t *testing.T) {
	b := NewBuilder()
	b.Int64(FieldBeginTime, 100)
	b.Int32(FieldConfigStatsMetricCount, 3)
	b.Bool(FieldConfigStatsValid, true)
	b.String(FieldConfigStatsID, "cfg-1")

	data := b.Bytes()

	num, typ, n := protowire.ConsumeTag(data)
	if n <= 0 {
		t.Fatalf("failed to consume tag: %v", n)
	}
	if num != FieldBeginTime || typ != protowire.VarintType {
		t.Fatalf("unexpected first field: num=%d typ=%v", num, typ)
	}
	v, n2 := protowire.ConsumeVarint(data[n:])
	if n2 <= 0 || v != 100 {
		t.Fatalf("expected varint 100, got %d (consumed %d)", v, n2)
	}
}

func TestBuilder_NestedMessage(t *testing.T) {
	child := NewBuilder()
	child.Int32(FieldAtomStatsTag, 42)
	child.Int32(FieldAtomStatsCount, 7)

	parent := NewBuilder()
	parent.Message(FieldAtomStats, child)

	data := parent.Bytes()
	num, typ, n := protowire.ConsumeTag(data)
	if n <= 0 || num != FieldAtomStats || typ != protowire.BytesType {
		t.Fatalf("unexpected parent tag: num=%d typ=%v n=%d", num, typ, n)
	}
	nested, n2 := protowire.ConsumeBytes(data[n:])
	if n2 <= 0 {
		t.Fatalf("failed to consume nested bytes")
	}
	if string(nested) != string(child.Bytes()) {
		t.Error("nested message bytes do not match child builder output")
	}
}
