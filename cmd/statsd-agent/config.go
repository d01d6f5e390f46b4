// config.go: the one hard-coded atom schema and metric definition this
// demo daemon wires end to end. A real deployment's schema and metric
// set come from a parsed configuration proto, an external collaborator
// per §1 of the aggregation core; this binary exists to prove out the
// transport-to-aggregation pipeline, not to parse that configuration
// format, so the wiring below stands in for it.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/WangTingMan/packages-modules-StatsD/atom"

// wakelockHeldAtomID identifies the one synthetic atom this daemon's
// demo producer emits and its receiver aggregates: a held-wakelock
// duration sample, keyed by the holding uid.
const wakelockHeldAtomID atom.AtomID = 100001

// wakelockMetricID is the id this daemon assigns the one
// NumericValueMetricProducer it runs over wakelockHeldAtomID.
const wakelockMetricID int64 = 1

// Field positions within a wakelockHeldAtomID record, in declaration
// order: a dimension (the holding uid) followed by one value field
// (the hold duration in milliseconds).
const (
	fieldUID        = 0
	fieldDurationMs = 1
)
