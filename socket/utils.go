// utils.go: small platform-utility translation unit, mirroring the split
// between libstatssocket's utils.h and the writer itself.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package socket

import "github.com/WangTingMan/packages-modules-StatsD/internal/clock"

// ElapsedRealtimeNs returns the shared clock reading (internal/clock)
// as "now". Corresponds to get_elapsed_realtime_ns().
func ElapsedRealtimeNs() int64 {
	return clock.NowNs()
}

// ToLossError maps a raw errno value to the negative loss-code
// convention the producer ABI uses for transport failures. Corresponds
// to toSocketLossError(). 0 and already-negative inputs pass through
// unchanged since callers sometimes already hold a negative syscall
// result.
func ToLossError(errnoCode int) int32 {
	if errnoCode <= 0 {
		return int32(errnoCode)
	}
	return -int32(errnoCode)
}
