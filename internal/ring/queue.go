// queue.go: multi-writer/single-reader lock-free ring buffer carrying
// atom records from producer goroutines to the Socket Writer drain loop.
//
// This is adapted from a simplified MPSC ring buffer originally embedded
// in a logging library to avoid an external dependency on a commercial
// ring-buffer package. Only the system_server process uses this queue
// (per the hand-off rule in the producer-side queue contract); everything
// else writes straight through to the socket.
//
// Core features:
//   - Lock-free MPSC claim/publish sequencing
//   - Zero-allocation write path (caller populates the slot in place)
//   - Cache-line padded atomic cursors
//   - Fixed batch size draining (no adaptive batching)
//   - Drop accounting feeding the Loss Tracker
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ring

import (
	"fmt"
	"runtime"
	"time"
)

// DrainFunc is the function a Queue calls for each slot it hands to the
// consumer side. It must not retain slot beyond the call.
type DrainFunc[T any] func(*T)

// BackpressurePolicy defines how Write behaves when the queue is full.
type BackpressurePolicy int

const (
	// DropOnFull drops the new record and increments the drop counter.
	// This is what the Android statsd socket path does: logging must
	// never block the caller.
	DropOnFull BackpressurePolicy = iota

	// BlockOnFull blocks the caller until space becomes available.
	// Not used by the socket write path, but useful for tests and for
	// batch tools that replay a fixed atom set and must not lose any.
	BlockOnFull
)

// String returns a string representation of the BackpressurePolicy.
func (bp BackpressurePolicy) String() string {
	switch bp {
	case DropOnFull:
		return "DropOnFull"
	case BlockOnFull:
		return "BlockOnFull"
	default:
		return "Unknown"
	}
}

// Queue is a bounded multi-writer/single-reader ring buffer of atom
// records. Capacity must be a power of two so that index wrapping can use
// a bitmask instead of a modulo.
type Queue[T any] struct {
	buffer   []T
	capacity int64
	mask     int64

	writerCursor PaddedInt64 // producer claim sequence
	readerCursor PaddedInt64 // consumer sequence

	availableBuffer []PaddedInt64 // per-slot publish markers

	drainer            DrainFunc[T]
	batchSize          int64
	backpressurePolicy BackpressurePolicy
	idleStrategy       IdleStrategy

	closed PaddedInt64 // 0 = open, 1 = closed

	processed PaddedInt64 // total drained count
	dropped   PaddedInt64 // total dropped count

	_ [64]byte
}

// Builder provides a fluent interface for constructing a Queue.
type Builder[T any] struct {
	capacity           int64
	drainer            DrainFunc[T]
	batchSize          int64
	backpressurePolicy BackpressurePolicy
	idleStrategy       IdleStrategy
}

// NewBuilder creates a builder for a Queue with the given capacity, which
// must be a power of two (e.g. 256, 512, 1024).
func NewBuilder[T any](capacity int64) *Builder[T] {
	return &Builder[T]{
		capacity:           capacity,
		batchSize:          64,
		backpressurePolicy: DropOnFull,
	}
}

// WithDrainFunc sets the function the drain loop calls for each record.
func (b *Builder[T]) WithDrainFunc(drainer DrainFunc[T]) *Builder[T] {
	b.drainer = drainer
	return b
}

// WithBatchSize sets the fixed number of records drained per pass.
func (b *Builder[T]) WithBatchSize(batchSize int64) *Builder[T] {
	b.batchSize = batchSize
	return b
}

// WithBackpressurePolicy sets the behavior when the queue is full.
func (b *Builder[T]) WithBackpressurePolicy(policy BackpressurePolicy) *Builder[T] {
	b.backpressurePolicy = policy
	return b
}

// WithIdleStrategy sets the CPU usage strategy for the drain loop when no
// work is available.
func (b *Builder[T]) WithIdleStrategy(strategy IdleStrategy) *Builder[T] {
	b.idleStrategy = strategy
	return b
}

// Build validates the configuration and returns a ready-to-use Queue.
func (b *Builder[T]) Build() (*Queue[T], error) {
	if b.capacity <= 0 || (b.capacity&(b.capacity-1)) != 0 {
		return nil, ErrInvalidCapacity
	}

	if b.drainer == nil {
		return nil, ErrMissingDrainer
	}

	if b.batchSize <= 0 || b.batchSize > b.capacity {
		return nil, ErrInvalidBatchSize
	}

	idleStrategy := b.idleStrategy
	if idleStrategy == nil {
		idleStrategy = NewProgressiveIdleStrategy()
	}

	q := &Queue[T]{
		buffer:             make([]T, b.capacity),
		capacity:           b.capacity,
		mask:               b.capacity - 1,
		availableBuffer:    make([]PaddedInt64, b.capacity),
		drainer:            b.drainer,
		batchSize:          b.batchSize,
		backpressurePolicy: b.backpressurePolicy,
		idleStrategy:       idleStrategy,
	}

	for i := range q.availableBuffer {
		q.availableBuffer[i].Store(-1)
	}

	return q, nil
}

// Write enqueues one record. writerFunc populates the claimed slot in
// place so the caller never allocates or copies the record body.
//
// With DropOnFull (the socket-write default), Write returns false
// immediately when the queue is full, and the caller is expected to
// count the drop against the producer's loss tracker. With BlockOnFull,
// Write blocks until space frees up.
//
// Multiple producer goroutines may call Write concurrently; only one
// goroutine may call ProcessBatch/LoopProcess at a time.
func (q *Queue[T]) Write(writerFunc func(*T)) bool {
	if q.closed.Load() != 0 {
		q.dropped.Add(1)
		return false
	}

	switch q.backpressurePolicy {
	case DropOnFull:
		return q.writeDropOnFull(writerFunc)
	case BlockOnFull:
		return q.writeBlockOnFull(writerFunc)
	default:
		return q.writeDropOnFull(writerFunc)
	}
}

func (q *Queue[T]) writeDropOnFull(writerFunc func(*T)) bool {
	var sequence int64
	for {
		sequence = q.writerCursor.Load()
		if sequence >= q.readerCursor.Load()+q.capacity {
			q.dropped.Add(1)
			return false
		}
		if q.writerCursor.CompareAndSwap(sequence, sequence+1) {
			break
		}
	}

	slot := &q.buffer[sequence&q.mask]
	writerFunc(slot)

	q.availableBuffer[sequence&q.mask].Store(sequence)

	return true
}

func (q *Queue[T]) writeBlockOnFull(writerFunc func(*T)) bool {
	for {
		if q.closed.Load() != 0 {
			q.dropped.Add(1)
			return false
		}

		sequence := q.writerCursor.Load()

		currentReader := q.readerCursor.Load()
		if sequence < currentReader+q.capacity {
			if !q.writerCursor.CompareAndSwap(sequence, sequence+1) {
				continue
			}
			slot := &q.buffer[sequence&q.mask]
			writerFunc(slot)

			q.availableBuffer[sequence&q.mask].Store(sequence)

			return true
		}

		runtime.Gosched()
		time.Sleep(time.Microsecond)
	}
}

// ProcessBatch drains up to one fixed-size batch of published records and
// returns how many were processed. Call this from the single drain
// goroutine only.
func (q *Queue[T]) ProcessBatch() int {
	current := q.readerCursor.Load()
	writerPos := q.writerCursor.Load()

	if current >= writerPos {
		return 0
	}

	maxProcess := min64(q.batchSize, writerPos-current)

	available := current - 1
	maxScan := current + maxProcess

	for seq := current; seq < maxScan; seq++ {
		if q.availableBuffer[seq&q.mask].Load() == seq {
			available = seq
		} else {
			break
		}
	}

	if available < current {
		return 0
	}

	processed := int(available - current + 1)

	for seq := current; seq <= available; seq++ {
		idx := seq & q.mask
		q.drainer(&q.buffer[idx])
		q.availableBuffer[idx].Store(-1)
	}

	q.readerCursor.Store(available + 1)
	q.processed.Add(int64(processed))

	return processed
}

// LoopProcess runs the drain loop until Close is called, using the
// configured IdleStrategy to control CPU usage between batches.
func (q *Queue[T]) LoopProcess() {
	for q.closed.Load() == 0 {
		processed := q.ProcessBatch()

		if processed > 0 {
			q.idleStrategy.Reset()
		} else if !q.idleStrategy.Idle() {
			continue
		}
	}

	for q.ProcessBatch() > 0 {
	}
}

// Close stops the drain loop and marks the queue closed. Idempotent and
// safe to call from any goroutine. After Close, Write always returns
// false; a running LoopProcess drains the records already published and
// then returns.
func (q *Queue[T]) Close() {
	q.closed.Store(1)
}

// Loop runs the drain loop in the caller's goroutine; callers typically
// invoke it with `go q.Loop()`.
func (q *Queue[T]) Loop() {
	q.LoopProcess()
}

// Flush blocks until every record accepted by Write so far has been
// drained. Returns an error if draining does not catch up within a
// bounded timeout, which indicates the drain goroutine is not running.
func (q *Queue[T]) Flush() error {
	targetPosition := q.writerCursor.Load()

	if targetPosition == 0 {
		return nil
	}

	if q.backpressurePolicy == DropOnFull {
		initialProcessed := q.processed.Load()
		currentReader := q.readerCursor.Load()

		pendingCount := targetPosition - currentReader
		if pendingCount <= 0 {
			return nil
		}

		targetProcessed := initialProcessed + pendingCount
		timeout := time.Now().Add(3 * time.Second)

		for time.Now().Before(timeout) {
			currentProcessed := q.processed.Load()

			if currentProcessed >= targetProcessed {
				return nil
			}

			runtime.Gosched()
			time.Sleep(1 * time.Millisecond)
		}

		currentReader = q.readerCursor.Load()
		currentProcessed := q.processed.Load()
		return fmt.Errorf("flush timeout (DropOnFull): target_pos=%d, reader_pos=%d, target_processed=%d, current_processed=%d",
			targetPosition, currentReader, targetProcessed, currentProcessed)
	}

	initialProcessed := q.processed.Load()
	currentReader := q.readerCursor.Load()

	pendingCount := targetPosition - currentReader
	if pendingCount <= 0 {
		return nil
	}

	targetProcessed := initialProcessed + int64(pendingCount)

	timeout := time.Now().Add(5 * time.Second)

	for time.Now().Before(timeout) {
		currentProcessed := q.processed.Load()

		if currentProcessed >= targetProcessed {
			return nil
		}

		runtime.Gosched()
		time.Sleep(100 * time.Microsecond)
	}

	currentReader = q.readerCursor.Load()
	currentProcessed := q.processed.Load()
	return fmt.Errorf("flush timeout: target_pos=%d, reader_pos=%d, target_processed=%d, current_processed=%d",
		targetPosition, currentReader, targetProcessed, currentProcessed)
}

// Stats returns basic queue counters for diagnostics.
func (q *Queue[T]) Stats() map[string]int64 {
	writerPos := q.writerCursor.Load()
	readerPos := q.readerCursor.Load()

	return map[string]int64{
		"writer_position": writerPos,
		"reader_position": readerPos,
		"buffer_size":     q.capacity,
		"items_buffered":  writerPos - readerPos,
		"items_processed": q.processed.Load(),
		"items_dropped":   q.dropped.Load(),
		"closed":          q.closed.Load(),
		"batch_size":      q.batchSize,
	}
}
