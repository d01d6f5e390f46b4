// writer.go: lazy-initialized datagram transport for atom records.
//
// Modeled on stats_buffer_writer.c's __write_to_statsd state machine: the
// transport opens on first use under a single mutex, a failed open or
// send never retries automatically, and every datagram is framed with a
// fixed magic tag ahead of the caller's record via one scatter-gather
// write so the record bytes are never copied.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package socket

import (
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// FrameMagic is prepended to every datagram ahead of the atom record.
// Reproduced verbatim from stats_buffer_writer.c's kStatsEventTag.
const FrameMagic uint32 = 0x737A6E74

type state int32

const (
	stateUninit state = iota
	stateOpening
	stateOpen
	stateClosing
)

// OpenFunc dials the transport. Production code dials a Unix datagram
// socket; tests substitute a fake to exercise the state machine and
// error paths without a real socket.
type OpenFunc func() (*net.UnixConn, error)

// Writer is the lazy-initialized datagram transport described in 4.B.
// The zero value is not usable; construct one with New.
type Writer struct {
	mu    sync.Mutex
	state state
	open  OpenFunc
	conn  *net.UnixConn
	raw   syscall.RawConn
}

// New returns a Writer that dials addr (an abstract-namespace Unix
// datagram socket path, conventionally written "@name") on first Write.
func New(addr string) *Writer {
	return &Writer{
		open: func() (*net.UnixConn, error) {
			return net.DialUnix("unixgram", nil, &net.UnixAddr{Name: addr, Net: "unixgram"})
		},
	}
}

// NewWithOpener returns a Writer that uses openFn instead of dialing a
// real socket. Intended for tests.
func NewWithOpener(openFn OpenFunc) *Writer {
	return &Writer{open: openFn}
}

// ensureOpen drives the Uninit -> Opening -> Open transition. Concurrent
// callers observe the same outcome; a failed open leaves the Writer in
// Uninit so the next caller retries.
func (w *Writer) ensureOpen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == stateOpen {
		return nil
	}

	w.state = stateOpening
	conn, err := w.open()
	if err != nil {
		w.state = stateUninit
		return err
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		w.state = stateUninit
		return err
	}

	w.conn = conn
	w.raw = rawConn
	w.state = stateOpen
	return nil
}

// Write sends one framed datagram: [FrameMagic][record]. It returns the
// number of record bytes written, or a negative errno. Initialization
// failures and send failures are both reported as negative values; the
// caller (normally the Loss Tracker) is responsible for accounting them.
// There is no retry at this layer.
func (w *Writer) Write(record []byte) int32 {
	if err := w.ensureOpen(); err != nil {
		return ToLossError(errnoOf(err))
	}

	w.mu.Lock()
	raw := w.raw
	w.mu.Unlock()

	if raw == nil {
		return ToLossError(int(unix.ENODEV))
	}

	var magicBytes [4]byte
	magicBytes[0] = byte(FrameMagic)
	magicBytes[1] = byte(FrameMagic >> 8)
	magicBytes[2] = byte(FrameMagic >> 16)
	magicBytes[3] = byte(FrameMagic >> 24)

	iovs := []unix.Iovec{
		{Base: &magicBytes[0], Len: uint64(len(magicBytes))},
		{Base: &record[0], Len: uint64(len(record))},
	}

	var n int
	var sendErr error
	ctlErr := raw.Control(func(fd uintptr) {
		n, sendErr = unix.Writev(int(fd), iovs)
	})
	if ctlErr != nil {
		return ToLossError(errnoOf(ctlErr))
	}
	if sendErr != nil {
		return ToLossError(errnoOf(sendErr))
	}

	return int32(n - len(magicBytes))
}

// Close releases the transport. Safe to call multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateOpen || w.conn == nil {
		w.state = stateUninit
		return nil
	}

	w.state = stateClosing
	err := w.conn.Close()
	w.conn = nil
	w.raw = nil
	w.state = stateUninit
	return err
}

// IsClosed reports whether the transport is not currently open.
func (w *Writer) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != stateOpen
}

func errnoOf(err error) int {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return int(errno)
	}
	return int(unix.EIO)
}
