// writer_test.go: tests for the lazy-init datagram writer.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package socket

import (
	"encoding/binary"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func newTestPair(t *testing.T) (*Writer, *net.UnixConn, func()) {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "statsd.sock")
	addr := &net.UnixAddr{Name: sockPath, Net: "unixgram"}

	listener, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("failed to listen on unixgram socket: %v", err)
	}

	w := New(sockPath)

	cleanup := func() {
		_ = w.Close()
		_ = listener.Close()
	}

	return w, listener, cleanup
}

func TestWriter_LazyInit_FramesDatagram(t *testing.T) {
	w, listener, cleanup := newTestPair(t)
	defer cleanup()

	if !w.IsClosed() {
		t.Fatal("expected writer to start closed (uninitialized)")
	}

	record := []byte{0x01, 0x02, 0x03, 0x04}
	n := w.Write(record)
	if n < 0 {
		t.Fatalf("expected successful write, got errno %d", n)
	}
	if n != int32(len(record)) {
		t.Errorf("expected %d bytes written, got %d", len(record), n)
	}
	if w.IsClosed() {
		t.Error("expected writer to be open after first write")
	}

	buf := make([]byte, 64)
	_ = listener.SetReadDeadline(time.Now().Add(time.Second))
	nread, _, err := listener.ReadFromUnix(buf)
	if err != nil {
		t.Fatalf("failed to read datagram: %v", err)
	}

	if nread != 4+len(record) {
		t.Fatalf("expected frame of %d bytes, got %d", 4+len(record), nread)
	}

	gotMagic := binary.LittleEndian.Uint32(buf[:4])
	if gotMagic != FrameMagic {
		t.Errorf("expected magic %x, got %x", FrameMagic, gotMagic)
	}
	if string(buf[4:nread]) != string(record) {
		t.Errorf("expected record payload %v, got %v", record, buf[4:nread])
	}
}

func TestWriter_OpenFailure_DoesNotRetryAutomatically(t *testing.T) {
	attempts := 0
	w := NewWithOpener(func() (*net.UnixConn, error) {
		attempts++
		return nil, errFakeDialFailure{}
	})

	n := w.Write([]byte{1})
	if n >= 0 {
		t.Fatalf("expected negative errno on dial failure, got %d", n)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one open attempt per Write call, got %d", attempts)
	}

	// A second Write should attempt to open again (no in-process caching of failure
	// beyond leaving state Uninit), exercising the same retry-on-next-call contract.
	n2 := w.Write([]byte{1})
	if n2 >= 0 {
		t.Fatalf("expected negative errno on second dial failure, got %d", n2)
	}
	if attempts != 2 {
		t.Fatalf("expected a fresh attempt on the next call, got %d total", attempts)
	}
}

type errFakeDialFailure struct{}

func (errFakeDialFailure) Error() string { return "fake dial failure" }

func TestToLossError(t *testing.T) {
	if got := ToLossError(4); got != -4 {
		t.Errorf("expected -4, got %d", got)
	}
	if got := ToLossError(0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := ToLossError(-5); got != -5 {
		t.Errorf("expected passthrough -5, got %d", got)
	}
}
