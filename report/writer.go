// writer.go: a small append-only protobuf wire-format builder.
//
// There is no protoc in this environment to generate a message type for
// StatsdStatsReport, so the report is built the same way the C++ core
// itself builds it: field-by-field, with explicit field numbers, using
// the low-level wire primitives rather than a generated struct.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package report

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Builder accumulates an encoded protobuf message one field at a time.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Int64(field int, v int64) *Builder {
	b.buf = protowire.AppendTag(b.buf, protowire.Number(field), protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, uint64(v))
	return b
}

func (b *Builder) Int32(field int, v int32) *Builder {
	return b.Int64(field, int64(v))
}

func (b *Builder) Bool(field int, v bool) *Builder {
	if v {
		return b.Int64(field, 1)
	}
	return b.Int64(field, 0)
}

func (b *Builder) String(field int, v string) *Builder {
	b.buf = protowire.AppendTag(b.buf, protowire.Number(field), protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, []byte(v))
	return b
}

func (b *Builder) Bytes(field int, v []byte) *Builder {
	b.buf = protowire.AppendTag(b.buf, protowire.Number(field), protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
	return b
}

// Double encodes a float64 field using the fixed64 wire type, matching
// protobuf's "double" scalar.
func (b *Builder) Double(field int, v float64) *Builder {
	b.buf = protowire.AppendTag(b.buf, protowire.Number(field), protowire.Fixed64Type)
	b.buf = protowire.AppendFixed64(b.buf, math.Float64bits(v))
	return b
}

// Message embeds a nested message built by a child Builder as a
// length-delimited field, mirroring a repeated or singular sub-message.
func (b *Builder) Message(field int, child *Builder) *Builder {
	return b.Bytes(field, child.Bytes())
}

// Bytes returns the accumulated wire bytes. The Builder remains usable
// after this call.
func (b *Builder) Bytes() []byte {
	return b.buf
}
