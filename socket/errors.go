// errors.go: setup-time error codes for the socket writer.
//
// Per the producer ABI, Write never returns a Go error — only a
// negative errno (see ToLossError). These codes exist for constructors
// and test helpers that legitimately need to fail loudly.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package socket

import "github.com/agilira/go-errors"

const (
	ErrCodeDialFailed errors.ErrorCode = "STATSD_SOCKET_DIAL_FAILED"
)
