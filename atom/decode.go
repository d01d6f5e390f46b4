// decode.go: parses a finalized atom record back into its elements.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"encoding/binary"
)

// Annotation is one decoded (id, value) pair attached to the atom as a
// whole or to the field that precedes it.
type Annotation struct {
	ID      uint8
	Type    AnnotationType
	BoolVal bool
	Int32Val int32
}

// Field is one decoded element plus the annotations that trail it.
type Field struct {
	Tag Tag

	Int32Val   int32
	Int64Val   int64
	Float32Val float32
	Float64Val float64
	BoolVal    bool
	BytesVal   []byte
	StringVal  string

	AttributionUIDs []uint32
	AttributionTags []string

	Int32ArrayVal   []int32
	Int64ArrayVal   []int64
	Float32ArrayVal []float32
	Float64ArrayVal []float64
	BoolArrayVal    []bool
	StringArrayVal  []string

	Annotations []Annotation
}

// Record is the fully parsed form of one atom buffer, ready for
// projection into a LogEvent.
type Record struct {
	Version     byte
	TimestampNs int64
	AtomID      AtomID

	AtomAnnotations []Annotation
	Fields          []Field
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) remaining() int { return len(r.data) - r.pos }

func (r *byteReader) readByte() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	v := r.data[r.pos]
	r.pos++
	return v, true
}

func (r *byteReader) readN(n int) ([]byte, bool) {
	if r.remaining() < n {
		return nil, false
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, true
}

func (r *byteReader) readU32() (uint32, bool) {
	b, ok := r.readN(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *byteReader) readI32() (int32, bool) {
	v, ok := r.readU32()
	return int32(v), ok
}

func (r *byteReader) readU64() (uint64, bool) {
	b, ok := r.readN(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (r *byteReader) readI64() (int64, bool) {
	v, ok := r.readU64()
	return int64(v), ok
}

func (r *byteReader) readLenPrefixedString() (string, bool) {
	n, ok := r.readU32()
	if !ok {
		return "", false
	}
	b, ok := r.readN(int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

// ReadBuffer parses a finalized atom record. A malformed or truncated
// record returns ErrCodeMalformedFrame; a well-formed record with
// ErrorBits set in flight (e.g. an omitted oversized array) parses
// cleanly since the writer already honored those bits when encoding.
func ReadBuffer(data []byte) (*Record, error) {
	r := &byteReader{data: data}

	version, ok := r.readByte()
	if !ok || version != RecordVersion {
		return nil, newAtomError(ErrCodeMalformedFrame, "unsupported or missing record version")
	}

	count, ok := r.readByte()
	if !ok {
		return nil, newAtomError(ErrCodeMalformedFrame, "truncated element count")
	}

	tsNs, ok := r.readI64()
	if !ok {
		return nil, newAtomError(ErrCodeMalformedFrame, "truncated timestamp")
	}

	atomID, ok := r.readI32()
	if !ok {
		return nil, newAtomError(ErrCodeMalformedFrame, "truncated atom id")
	}

	rec := &Record{
		Version:     version,
		TimestampNs: tsNs,
		AtomID:      AtomID(atomID),
	}

	var pendingAnnotations *[]Annotation = &rec.AtomAnnotations
	fieldsSeen := byte(0)

	for fieldsSeen < count {
		tagByte, ok := r.readByte()
		if !ok {
			return nil, newAtomError(ErrCodeMalformedFrame, "truncated element stream")
		}

		if tagByte == annotationMarker {
			ann, err := decodeAnnotation(r)
			if err != nil {
				return nil, err
			}
			*pendingAnnotations = append(*pendingAnnotations, ann)
			continue
		}

		field, err := decodeField(r, Tag(tagByte))
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
		fieldsSeen++
		pendingAnnotations = &rec.Fields[len(rec.Fields)-1].Annotations
	}

	// Annotations trailing the last field (or, with no fields at all,
	// the atom-level annotations) follow the final counted element.
	for r.remaining() > 0 && r.data[r.pos] == annotationMarker {
		r.pos++
		ann, err := decodeAnnotation(r)
		if err != nil {
			return nil, err
		}
		*pendingAnnotations = append(*pendingAnnotations, ann)
	}

	return rec, nil
}

func decodeAnnotation(r *byteReader) (Annotation, error) {
	id, ok := r.readByte()
	if !ok {
		return Annotation{}, newAtomError(ErrCodeMalformedFrame, "truncated annotation id")
	}
	typeByte, ok := r.readByte()
	if !ok {
		return Annotation{}, newAtomError(ErrCodeMalformedFrame, "truncated annotation type")
	}

	ann := Annotation{ID: id, Type: AnnotationType(typeByte)}
	switch ann.Type {
	case AnnotationTypeBool:
		v, ok := r.readByte()
		if !ok {
			return Annotation{}, newAtomError(ErrCodeMalformedFrame, "truncated bool annotation")
		}
		ann.BoolVal = v != 0
	case AnnotationTypeInt32:
		v, ok := r.readI32()
		if !ok {
			return Annotation{}, newAtomError(ErrCodeMalformedFrame, "truncated int32 annotation")
		}
		ann.Int32Val = v
	default:
		return Annotation{}, newAtomError(ErrCodeMalformedFrame, "unknown annotation type")
	}
	return ann, nil
}

func decodeField(r *byteReader, tag Tag) (Field, error) {
	f := Field{Tag: tag}

	switch tag {
	case TagInt32:
		v, ok := r.readI32()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated int32 field")
		}
		f.Int32Val = v

	case TagInt64:
		v, ok := r.readI64()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated int64 field")
		}
		f.Int64Val = v

	case TagFloat32:
		v, ok := r.readU32()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated float32 field")
		}
		f.Float32Val = math32frombits(v)

	case TagFloat64:
		v, ok := r.readU64()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated float64 field")
		}
		f.Float64Val = math64frombits(v)

	case TagBool:
		v, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated bool field")
		}
		f.BoolVal = v != 0

	case TagBytes:
		n, ok := r.readU32()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated bytes length")
		}
		b, ok := r.readN(int(n))
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated bytes payload")
		}
		f.BytesVal = append([]byte(nil), b...)

	case TagString:
		s, ok := r.readLenPrefixedString()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated string field")
		}
		f.StringVal = s

	case TagAttributionChain:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated attribution chain count")
		}
		uids := make([]uint32, 0, n)
		tags := make([]string, 0, n)
		for i := byte(0); i < n; i++ {
			uid, ok := r.readU32()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated attribution uid")
			}
			tag, ok := r.readLenPrefixedString()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated attribution tag")
			}
			uids = append(uids, uid)
			tags = append(tags, tag)
		}
		f.AttributionUIDs = uids
		f.AttributionTags = tags

	case TagInt32Array:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated int32 array count")
		}
		vals := make([]int32, 0, n)
		for i := byte(0); i < n; i++ {
			v, ok := r.readI32()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated int32 array element")
			}
			vals = append(vals, v)
		}
		f.Int32ArrayVal = vals

	case TagInt64Array:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated int64 array count")
		}
		vals := make([]int64, 0, n)
		for i := byte(0); i < n; i++ {
			v, ok := r.readI64()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated int64 array element")
			}
			vals = append(vals, v)
		}
		f.Int64ArrayVal = vals

	case TagFloat32Array:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated float32 array count")
		}
		vals := make([]float32, 0, n)
		for i := byte(0); i < n; i++ {
			v, ok := r.readU32()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated float32 array element")
			}
			vals = append(vals, math32frombits(v))
		}
		f.Float32ArrayVal = vals

	case TagFloat64Array:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated float64 array count")
		}
		vals := make([]float64, 0, n)
		for i := byte(0); i < n; i++ {
			v, ok := r.readU64()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated float64 array element")
			}
			vals = append(vals, math64frombits(v))
		}
		f.Float64ArrayVal = vals

	case TagBoolArray:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated bool array count")
		}
		vals := make([]bool, 0, n)
		for i := byte(0); i < n; i++ {
			v, ok := r.readByte()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated bool array element")
			}
			vals = append(vals, v != 0)
		}
		f.BoolArrayVal = vals

	case TagStringArray:
		n, ok := r.readByte()
		if !ok {
			return f, newAtomError(ErrCodeMalformedFrame, "truncated string array count")
		}
		vals := make([]string, 0, n)
		for i := byte(0); i < n; i++ {
			s, ok := r.readLenPrefixedString()
			if !ok {
				return f, newAtomError(ErrCodeMalformedFrame, "truncated string array element")
			}
			vals = append(vals, s)
		}
		f.StringArrayVal = vals

	default:
		return f, newAtomError(ErrCodeMalformedFrame, "unknown element tag")
	}

	return f, nil
}
