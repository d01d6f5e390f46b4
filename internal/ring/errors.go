// errors.go: sentinel errors for the producer-side queue.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ring

import "errors"

var (
	// ErrMissingDrainer is returned when a Queue is built with no drain function.
	ErrMissingDrainer = errors.New("drain function is required")

	// ErrInvalidCapacity is returned when the queue capacity is not a power of two.
	ErrInvalidCapacity = errors.New("capacity must be power of two and greater than zero")

	// ErrInvalidBatchSize is returned when batch size is invalid.
	ErrInvalidBatchSize = errors.New("batch size must be positive and not exceed capacity")

	// ErrQueueClosed is returned when operations are attempted on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// QueueOverflowErrorCode is the predefined internal error code a caller
// reports to the Loss Tracker when Write returns false because the
// queue is full. Positive, to distinguish it from the negative errno
// values socket sends report (stats_buffer_writer.c's
// kQueueOverflowErrorCode).
const QueueOverflowErrorCode int32 = 1
