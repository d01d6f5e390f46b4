// errors.go: setup-time error codes for the atom buffer codec.
//
// Per the producer ABI contract, encoding problems during Write* calls
// never surface as Go errors — they set bits in the buffer's ErrorBits
// word instead. Most of these codes are handle-lifecycle misuse (reading
// a malformed wire record) which is a programming error or a
// daemon-side parse failure, not a producer-path condition.
// ErrCodeAtomIDUnset is the one exception: Build rejects the reserved
// atom id 0, whether left unset or written explicitly, since "atom_id =
// 0 is reserved" is a wire-format invariant a producer can trip over.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"github.com/agilira/go-errors"
)

const (
	ErrCodeReleased       errors.ErrorCode = "STATSD_BUFFER_RELEASED"
	ErrCodeAtomIDUnset    errors.ErrorCode = "STATSD_ATOM_ID_UNSET"
	ErrCodeMalformedFrame errors.ErrorCode = "STATSD_MALFORMED_FRAME"
	ErrCodeBadValueType   errors.ErrorCode = "STATSD_BAD_VALUE_TYPE"
)

// newAtomError builds a *errors.Error tagged with this package's component name.
func newAtomError(code errors.ErrorCode, message string) *errors.Error {
	return errors.New(code, message).
		WithSeverity("error").
		WithContext("component", "atom_codec")
}
