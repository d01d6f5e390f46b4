// receiver.go: the daemon side of the pipeline. Binds the same
// unixgram address the SynthProducer dials, strips socket.FrameMagic
// off each datagram, decodes the atom record, projects it to a
// LogEvent, and routes it into the one metrics.Producer this daemon
// runs — accounting every step against the StatsdStats store the way
// the real service's socket-reader thread does.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
	"github.com/WangTingMan/packages-modules-StatsD/event"
	"github.com/WangTingMan/packages-modules-StatsD/losstracker"
	"github.com/WangTingMan/packages-modules-StatsD/metrics"
	"github.com/WangTingMan/packages-modules-StatsD/socket"
	"github.com/WangTingMan/packages-modules-StatsD/statsdstats"
)

// maxDatagramSize bounds one read off the unixgram socket. Atom
// records are small and bounded by atom.MaxArrayLen; this leaves
// comfortable headroom without growing unbounded on a bad actor.
const maxDatagramSize = 1 << 16

// Receiver owns the listening socket and the one Producer it feeds.
type Receiver struct {
	conn     *net.UnixConn
	producer *metrics.Producer
	stats    *statsdstats.Store
}

// NewReceiver binds addr as an abstract-namespace unixgram socket and
// wires producer and stats as the aggregation and accounting sinks
// for everything it decodes.
func NewReceiver(addr string, producer *metrics.Producer, stats *statsdstats.Store) (*Receiver, error) {
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: addr, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("statsd-agent: bind %s: %w", addr, err)
	}
	return &Receiver{conn: conn, producer: producer, stats: stats}, nil
}

// Run reads datagrams until the socket is closed (by Close, typically
// from another goroutine during shutdown).
func (r *Receiver) Run() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := r.conn.ReadFromUnix(buf)
		if err != nil {
			return
		}
		r.handleDatagram(buf[:n])
	}
}

func (r *Receiver) handleDatagram(data []byte) {
	if len(data) < 4 {
		r.stats.NoteAtomError(0)
		return
	}
	magic := binary.LittleEndian.Uint32(data[:4])
	if magic != socket.FrameMagic {
		r.stats.NoteAtomError(0)
		return
	}

	rec, err := atom.ReadBuffer(data[4:])
	if err != nil {
		r.stats.NoteAtomError(0)
		return
	}

	if rec.AtomID == losstracker.AtomIDSocketLossReported {
		// The loss-report atom is accounting data about the transport
		// itself, not a value this daemon's demo metric aggregates.
		r.stats.NoteAtomLogged(int32(rec.AtomID), false)
		return
	}

	r.stats.NoteAtomLogged(int32(rec.AtomID), false)

	if rec.AtomID != wakelockHeldAtomID {
		return
	}

	ev := event.FromRecord(rec)
	r.producer.OnMatchedEvent(ev)
}

// Close releases the listening socket, unblocking Run.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
