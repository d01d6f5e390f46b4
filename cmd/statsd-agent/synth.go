// synth.go: a stand-in for an instrumented app process. It builds
// wakelockHeldAtomID records on a timer, hands them to a producer-side
// ring.Queue the way zephyroslite buffers a process's atoms ahead of
// the socket, and drains that queue straight into a socket.Writer,
// folding any send failure into a losstracker.Tracker the way the
// socket write path does on every other failed send.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"math/rand"
	"time"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
	"github.com/WangTingMan/packages-modules-StatsD/internal/ring"
	"github.com/WangTingMan/packages-modules-StatsD/losstracker"
	"github.com/WangTingMan/packages-modules-StatsD/socket"
)

// outboundRecord is one queued-but-not-yet-sent atom record.
type outboundRecord struct {
	atomID atom.AtomID
	record []byte
}

// SynthProducer periodically emits wakelockHeldAtomID samples for a
// small fixed set of uids, queues them, and drains the queue onto a
// real unixgram socket.
type SynthProducer struct {
	uids    []int32
	writer  *socket.Writer
	tracker *losstracker.Tracker
	queue   *ring.Queue[outboundRecord]
	routing *ring.RoutingSet
	stop    chan struct{}
}

// NewSynthProducer wires a demo producer that dials addr. Per 4.C, only
// the atom ids in the routing set go through the queue; this demo
// routes its one atom id through it so the overflow-accounting path
// actually exercises something.
func NewSynthProducer(addr string) (*SynthProducer, error) {
	w := socket.New(addr)
	tr := losstracker.New()

	sp := &SynthProducer{
		uids:    []int32{1000, 1001, 1002},
		writer:  w,
		tracker: tr,
		routing: ring.NewRoutingSet(wakelockHeldAtomID),
		stop:    make(chan struct{}),
	}

	q, err := ring.NewBuilder[outboundRecord](256).
		WithDrainFunc(sp.drain).
		WithBatchSize(32).
		Build()
	if err != nil {
		return nil, err
	}
	sp.queue = q
	return sp, nil
}

// drain is the ring queue's single consumer: send the record, and
// account any failure against the loss tracker. A successful send
// piggybacks the tracker's pending loss report, if any, per 4.D's
// "ride the next atom that gets through" policy.
func (sp *SynthProducer) drain(rec *outboundRecord) {
	n := sp.writer.Write(rec.record)
	nowNs := clock.NowNs()
	if n < 0 {
		sp.tracker.RecordLoss(rec.atomID, n, nowNs)
		return
	}
	if lossBuf := sp.tracker.EncodeAndReset(nowNs); lossBuf != nil {
		_ = lossBuf.Build()
		sp.writer.Write(lossBuf.Bytes())
	}
}

// Run starts the generation loop and the queue's drain loop, blocking
// until Stop is called.
func (sp *SynthProducer) Run(interval time.Duration) {
	go sp.queue.Loop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sp.emitOne()
		case <-sp.stop:
			sp.queue.Close()
			sp.writer.Close()
			return
		}
	}
}

// emitOne builds one sample and hands it off the way
// write_buffer_to_statsd does: atom ids in the routing set go through
// the queue, with a dropped write marked against the loss tracker
// under the fixed queue-overflow error code; anything else would write
// straight to the socket.
func (sp *SynthProducer) emitOne() {
	uid := sp.uids[rand.Intn(len(sp.uids))]
	durationMs := int64(50 + rand.Intn(500))

	b := atom.Obtain()
	defer b.Release()
	b.WriteAtomID(wakelockHeldAtomID)
	b.WriteInt32(uid)
	b.WriteInt64(durationMs)
	_ = b.Build()

	record := append([]byte(nil), b.Bytes()...)

	if !sp.routing.ShouldWriteViaQueue(wakelockHeldAtomID) {
		n := sp.writer.Write(record)
		if n < 0 {
			sp.tracker.RecordLoss(wakelockHeldAtomID, n, clock.NowNs())
		}
		return
	}

	ok := sp.queue.Write(func(slot *outboundRecord) {
		slot.atomID = wakelockHeldAtomID
		slot.record = record
	})
	if !ok {
		sp.tracker.RecordLoss(wakelockHeldAtomID, ring.QueueOverflowErrorCode, clock.NowNs())
	}
}

// Stop signals Run to tear down the transport and returns.
func (sp *SynthProducer) Stop() {
	close(sp.stop)
}
