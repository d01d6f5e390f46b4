// numeric.go: the tagged numeric union every Interval aggregate and diff
// base is built from (§3, §9's "tagged numeric union" design note).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package metrics

import "github.com/agilira/go-errors"

// ErrCodeBadValueType marks a comparison or arithmetic op between two
// NumericValues whose underlying variants don't match, per 4.F.3's "must
// use the same variant of NumericValue as the base" rule.
const ErrCodeBadValueType errors.ErrorCode = "STATSD_BAD_VALUE_TYPE"

func newBadValueTypeError(msg string) *errors.Error {
	return errors.New(ErrCodeBadValueType, msg).
		WithSeverity("error").
		WithContext("component", "numeric_value")
}

// ValueKind tags which variant, if any, a NumericValue currently holds.
type ValueKind uint8

const (
	// Unset is the zero value: no sample has been observed yet.
	Unset ValueKind = iota
	I64
	F64
)

// NumericValue is a tagged union over int64 and float64, mirroring the
// source's NumericValue variant. All arithmetic dispatches on Kind and
// fails with ErrCodeBadValueType on a cross-variant operation.
type NumericValue struct {
	Kind ValueKind
	I64  int64
	F64  float64
}

// Int64Value wraps v as an I64-tagged NumericValue.
func Int64Value(v int64) NumericValue { return NumericValue{Kind: I64, I64: v} }

// Float64Value wraps v as an F64-tagged NumericValue.
func Float64Value(v float64) NumericValue { return NumericValue{Kind: F64, F64: v} }

// HasValue reports whether a sample has been observed.
func (v NumericValue) HasValue() bool { return v.Kind != Unset }

// Is reports whether v currently holds the given variant.
func (v NumericValue) Is(k ValueKind) bool { return v.Kind == k }

// IsZero reports whether the held value is the zero of its variant. An
// Unset value is not zero: it has no variant to compare against.
func (v NumericValue) IsZero() bool {
	switch v.Kind {
	case I64:
		return v.I64 == 0
	case F64:
		return v.F64 == 0
	default:
		return false
	}
}

// ToFloat64 widens the held value to float64 regardless of variant,
// matching the source's toDouble() used for threshold comparisons.
// Unset returns 0.
func (v NumericValue) ToFloat64() float64 {
	switch v.Kind {
	case I64:
		return float64(v.I64)
	case F64:
		return v.F64
	default:
		return 0
	}
}

func sameVariant(a, b NumericValue) bool {
	if !a.HasValue() || !b.HasValue() {
		return true
	}
	return a.Kind == b.Kind
}

// Add returns a+b. Both operands must be Unset or the same variant;
// an Unset operand is treated as the additive identity of the other's
// variant, matching the source's default-constructed NumericValue
// arithmetic.
func Add(a, b NumericValue) (NumericValue, error) {
	if !sameVariant(a, b) {
		return NumericValue{}, newBadValueTypeError("mismatched NumericValue variants in Add")
	}
	if !a.HasValue() {
		return b, nil
	}
	if !b.HasValue() {
		return a, nil
	}
	if a.Kind == I64 {
		return Int64Value(a.I64 + b.I64), nil
	}
	return Float64Value(a.F64 + b.F64), nil
}

// Sub returns a-b. Both operands must share a variant.
func Sub(a, b NumericValue) (NumericValue, error) {
	if !a.HasValue() || !b.HasValue() {
		return NumericValue{}, newBadValueTypeError("Sub requires both operands to have a value")
	}
	if a.Kind != b.Kind {
		return NumericValue{}, newBadValueTypeError("mismatched NumericValue variants in Sub")
	}
	if a.Kind == I64 {
		return Int64Value(a.I64 - b.I64), nil
	}
	return Float64Value(a.F64 - b.F64), nil
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater
// than b. Both operands must share a variant.
func Compare(a, b NumericValue) (int, error) {
	if !a.HasValue() || !b.HasValue() {
		return 0, newBadValueTypeError("Compare requires both operands to have a value")
	}
	if a.Kind != b.Kind {
		return 0, newBadValueTypeError("mismatched NumericValue variants in Compare")
	}
	if a.Kind == I64 {
		switch {
		case a.I64 < b.I64:
			return -1, nil
		case a.I64 > b.I64:
			return 1, nil
		default:
			return 0, nil
		}
	}
	switch {
	case a.F64 < b.F64:
		return -1, nil
	case a.F64 > b.F64:
		return 1, nil
	default:
		return 0, nil
	}
}

// Min returns whichever of a, b compares lower, per Compare's rules.
func Min(a, b NumericValue) (NumericValue, error) {
	c, err := Compare(a, b)
	if err != nil {
		return NumericValue{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// Max returns whichever of a, b compares higher, per Compare's rules.
func Max(a, b NumericValue) (NumericValue, error) {
	c, err := Compare(a, b)
	if err != nil {
		return NumericValue{}, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}
