// routing_test.go: tests for the fixed queue-routing membership set.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ring

import (
	"testing"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
)

func TestRoutingSet_Membership(t *testing.T) {
	rs := NewRoutingSet(atom.AtomID(10), atom.AtomID(20))

	if !rs.ShouldWriteViaQueue(10) {
		t.Error("expected atom id 10 to be routed via the queue")
	}
	if !rs.ShouldWriteViaQueue(20) {
		t.Error("expected atom id 20 to be routed via the queue")
	}
	if rs.ShouldWriteViaQueue(30) {
		t.Error("expected atom id 30 not to be routed via the queue")
	}
}

func TestRoutingSet_EmptySetRoutesNothing(t *testing.T) {
	rs := NewRoutingSet()
	if rs.ShouldWriteViaQueue(1) {
		t.Error("expected an empty routing set to route nothing")
	}
}

func TestRoutingSet_NilRoutesNothing(t *testing.T) {
	var rs *RoutingSet
	if rs.ShouldWriteViaQueue(1) {
		t.Error("expected a nil routing set to route nothing")
	}
}

func TestQueueOverflowErrorCode_IsPositive(t *testing.T) {
	// Positive, unlike the negative errno values a failed socket send
	// reports, per stats_buffer_writer.c's kQueueOverflowErrorCode.
	if QueueOverflowErrorCode <= 0 {
		t.Errorf("expected a positive overflow error code, got %d", QueueOverflowErrorCode)
	}
}
