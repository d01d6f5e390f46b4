// tracker_test.go
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package losstracker

import (
	"testing"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
)

func TestTracker_EmptyReportsNothing(t *testing.T) {
	tr := New()
	if !tr.Empty() {
		t.Fatal("expected a fresh tracker to be empty")
	}
	if got := tr.EncodeAndReset(1); got != nil {
		t.Fatalf("expected nil report from an empty tracker, got %v", got.Bytes())
	}
}

func TestTracker_RecordAndEncode(t *testing.T) {
	tr := New()
	tr.RecordLoss(1001, -11, 100)
	tr.RecordLoss(1001, -11, 200)
	tr.RecordLoss(2002, -4, 150)

	if tr.Empty() {
		t.Fatal("expected tracker with recorded losses to be non-empty")
	}

	report := tr.EncodeAndReset(300)
	if report == nil {
		t.Fatal("expected a non-nil report")
	}
	defer report.Release()

	rec, err := atom.ReadBuffer(report.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if rec.AtomID != AtomIDSocketLossReported {
		t.Errorf("expected atom id %d, got %d", AtomIDSocketLossReported, rec.AtomID)
	}
	if len(rec.Fields) != 6 {
		t.Fatalf("expected 6 fields (5 parallel arrays + overflow scalar), got %d", len(rec.Fields))
	}

	atomIDs := rec.Fields[0].Int32ArrayVal
	if len(atomIDs) != 2 {
		t.Fatalf("expected 2 distinct (atom_id, error_code) entries, got %d", len(atomIDs))
	}

	// Tracker must reset after encoding.
	if !tr.Empty() {
		t.Error("expected tracker to be empty after EncodeAndReset")
	}
}

func TestTracker_OverflowBeyondCap(t *testing.T) {
	tr := New()
	for i := 0; i < kMaxLossTrackerEntries+5; i++ {
		tr.RecordLoss(atom.AtomID(i), -1, int64(i))
	}

	report := tr.EncodeAndReset(1000)
	if report == nil {
		t.Fatal("expected a report")
	}
	defer report.Release()

	rec, err := atom.ReadBuffer(report.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	overflow := rec.Fields[5].Int32Val
	if overflow != 5 {
		t.Errorf("expected overflow counter 5, got %d", overflow)
	}
	if len(rec.Fields[0].Int32ArrayVal) != kMaxLossTrackerEntries {
		t.Errorf("expected table capped at %d entries, got %d", kMaxLossTrackerEntries, len(rec.Fields[0].Int32ArrayVal))
	}
}
