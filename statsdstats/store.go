// store.go: the process-wide StatsdStats singleton (4.E).
//
// One mutex guards everything. Every accountable event class gets a
// note_* entry point; nothing here ever returns an error, because a
// failure to account a stat must never fail the operation being
// accounted.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

import (
	"math/rand"
	"sync"
)

// Bounded-collection caps. StatsdStats.h (the header declaring these)
// was filtered out of the retrieval pack; values below match the order
// of magnitude the surviving .cpp's guard checks imply. See DESIGN.md.
const (
	kMaxTimestampCount              = 50
	kMaxIceBoxSize                  = 20
	kMaxLoggerErrors                = 20
	kMaxRestrictedMetricQueryCount  = 50
	kMaxNonPlatformPushedAtoms      = 100
	kNumBinsInSocketBatchReadHistogram = 30
	kLargeBatchReadThreshold        = 100
	kMaxLargeBatchReadAtomThreshold = 50

	// platformAtomIDCeiling is a simplification: the original draws the
	// line between "platform" and "non-platform" atom ids from a table
	// that did not survive filtering. Pushed-atom stats below this id
	// are tracked unbounded like the original's platform atoms; at or
	// above it they share the kMaxNonPlatformPushedAtoms cap.
	platformAtomIDCeiling = 100000
)

// ConfigKey identifies one statsd configuration by its owning uid and a
// caller-chosen id.
type ConfigKey struct {
	UID int32
	ID  int64
}

// ConfigStats mirrors one entry of the original's per-config lifecycle
// record.
type ConfigStats struct {
	UID            int32
	ID             int64
	CreationNs     int64
	DeletionNs     int64
	ResetNs        int64
	MetricCount    int32
	ConditionCount int32
	MatcherCount   int32
	AlertCount     int32
	Valid          bool
	BroadcastNs    []int64
	DataDropTimeNs []int64
	DataDropBytes  []int64
	DumpReportNs   []int64
}

type atomStats struct {
	count      int64
	errorCount int64
	dropsCount int64
	skipCount  int64
}

type logLossRecord struct {
	wallClockTimeSec int32
	count            int32
	lastError        int32
	lastAtomTag      int32
}

// Store is the StatsdStats singleton. The zero value is not ready to
// use; call New.
type Store struct {
	mu sync.Mutex

	statsdStatsID int64

	beginNs int64

	configs map[ConfigKey]*ConfigStats
	iceBox  []*ConfigStats

	atomStats map[int32]*atomStats

	loggerErrors []logLossRecord

	uidMapDrops       int64
	uidMapAppDelDrops int64
	uidMapChanges     int32
	uidMapMemoryBytes int32

	anomalyAlarmRegistrations  int64
	periodicAlarmRegistrations int64

	activationBroadcastGuardrailHits map[int32][]int64

	systemServerRestartsNs []int64

	queueMaxSizeObserved         int32
	queueMaxSizeObservedElapsed  int64

	batchReadHistogram [kNumBinsInSocketBatchReadHistogram]int64
	largeBatchRecords  []LargeBatchRead

	restrictedQueries []RestrictedMetricQuery

	pullStatsTable map[int32]*pullStats

	subscriptionStarts  int64
	subscriptionFlushes int64
	subscriptionErrors  int64

	metricStats map[int64]*metricStats
}

// LargeBatchRead is retained when a socket batch read is unusually
// large, per 4.E's batch-read histogram addendum.
type LargeBatchRead struct {
	Size      int32
	ReadTimeNs int64
	AtomCounts map[int32]int32
}

// RestrictedMetricQuery is one entry of the restricted-metric query log.
type RestrictedMetricQuery struct {
	ConfigID      int64
	ConfigUID     int32
	CallingUID    int32
	Succeeded     bool
	InvalidReason string
	LatencyNs     int64
}

// New returns an empty Store stamped with a fresh random id, matching
// the original's statsdStatsId.
func New(nowNs int64) *Store {
	return &Store{
		statsdStatsID:                    rand.Int63(),
		beginNs:                          nowNs,
		configs:                          make(map[ConfigKey]*ConfigStats),
		atomStats:                        make(map[int32]*atomStats),
		activationBroadcastGuardrailHits: make(map[int32][]int64),
	}
}

func appendBounded(list []int64, v int64, cap int) []int64 {
	list = append(list, v)
	if len(list) > cap {
		list = list[len(list)-cap:]
	}
	return list
}

func (s *Store) getOrCreateAtomStats(atomID int32) *atomStats {
	if st, ok := s.atomStats[atomID]; ok {
		return st
	}
	if atomID >= platformAtomIDCeiling {
		nonPlatform := 0
		for id := range s.atomStats {
			if id >= platformAtomIDCeiling {
				nonPlatform++
			}
		}
		if nonPlatform >= kMaxNonPlatformPushedAtoms {
			return nil
		}
	}
	st := &atomStats{}
	s.atomStats[atomID] = st
	return st
}
