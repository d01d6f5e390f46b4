// routing.go: which atom ids go through the producer-side queue.
//
// Per 4.C, only a subset of atom ids is routed through the queue at all;
// the set is decided once at startup (should_write_via_queue in the
// reference socket writer) and every other atom id writes straight to
// the Socket Writer, bypassing the queue entirely.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ring

import "github.com/WangTingMan/packages-modules-StatsD/atom"

// RoutingSet is a fixed, startup-decided membership test for which atom
// ids are queue-routed. The zero value routes nothing.
type RoutingSet struct {
	ids map[atom.AtomID]struct{}
}

// NewRoutingSet builds a RoutingSet from a fixed list of atom ids.
func NewRoutingSet(atomIDs ...atom.AtomID) *RoutingSet {
	ids := make(map[atom.AtomID]struct{}, len(atomIDs))
	for _, id := range atomIDs {
		ids[id] = struct{}{}
	}
	return &RoutingSet{ids: ids}
}

// ShouldWriteViaQueue reports whether atomID is one of the ids routed
// through the producer-side queue rather than written directly.
func (r *RoutingSet) ShouldWriteViaQueue(atomID atom.AtomID) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[atomID]
	return ok
}
