// dump.go: serializes the store into a StatsdStatsReport-shaped
// protobuf byte string.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package statsdstats

import "github.com/WangTingMan/packages-modules-StatsD/report"

// Dump serializes the current state of the store. If reset is true,
// historical counters are cleared afterward but active config records
// are retained, matching the original's reset semantics.
func (s *Store) Dump(reset bool, nowNs int64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := report.NewBuilder()
	b.Int64(report.FieldBeginTime, s.beginNs)
	b.Int64(report.FieldEndTime, nowNs)
	b.Int64(report.FieldStatsdStatsID, s.statsdStatsID)

	for key, cfg := range s.configs {
		b.Message(report.FieldConfigStats, configStatsBuilder(key, cfg))
	}
	for _, cfg := range s.iceBox {
		b.Message(report.FieldConfigStats, configStatsBuilder(ConfigKey{UID: cfg.UID, ID: cfg.ID}, cfg))
	}

	for atomID, st := range s.atomStats {
		atomBuilder := report.NewBuilder()
		atomBuilder.Int32(report.FieldAtomStatsTag, atomID)
		atomBuilder.Int64(report.FieldAtomStatsCount, st.count)
		atomBuilder.Int64(report.FieldAtomStatsErrorCount, st.errorCount)
		atomBuilder.Int64(report.FieldAtomStatsDropsCount, st.dropsCount)
		atomBuilder.Int64(report.FieldAtomStatsSkipCount, st.skipCount)
		b.Message(report.FieldAtomStats, atomBuilder)
	}

	for _, rec := range s.loggerErrors {
		lossBuilder := report.NewBuilder()
		lossBuilder.Int32(report.FieldLogLossTime, rec.wallClockTimeSec)
		lossBuilder.Int32(report.FieldLogLossCount, rec.count)
		lossBuilder.Int32(report.FieldLogLossError, rec.lastError)
		lossBuilder.Int32(report.FieldLogLossTag, rec.lastAtomTag)
		b.Message(report.FieldLoggerErrorStats, lossBuilder)
	}

	uidMapBuilder := report.NewBuilder()
	uidMapBuilder.Int64(1, s.uidMapDrops)
	uidMapBuilder.Int64(2, s.uidMapAppDelDrops)
	uidMapBuilder.Int32(3, s.uidMapChanges)
	uidMapBuilder.Int32(4, s.uidMapMemoryBytes)
	b.Message(report.FieldUidMapStats, uidMapBuilder)

	anomalyBuilder := report.NewBuilder()
	anomalyBuilder.Int64(report.FieldAnomalyAlarmsRegistered, s.anomalyAlarmRegistrations)
	b.Message(report.FieldAnomalyAlarmStats, anomalyBuilder)

	periodicBuilder := report.NewBuilder()
	periodicBuilder.Int64(report.FieldPeriodicAlarmsRegistered, s.periodicAlarmRegistrations)
	b.Message(report.FieldPeriodicAlarmStats, periodicBuilder)

	for _, restartNs := range s.systemServerRestartsNs {
		b.Int64(report.FieldSystemServerRestart, restartNs)
	}

	queueBuilder := report.NewBuilder()
	queueBuilder.Int32(report.FieldQueueMaxSizeObserved, s.queueMaxSizeObserved)
	queueBuilder.Int64(report.FieldQueueMaxSizeObservedElapsed, s.queueMaxSizeObservedElapsed)
	b.Message(report.FieldQueueStats, queueBuilder)

	for _, q := range s.restrictedQueries {
		qBuilder := report.NewBuilder()
		qBuilder.Int64(report.FieldQueryConfigID, q.ConfigID)
		qBuilder.Int32(report.FieldQueryConfigUID, q.ConfigUID)
		qBuilder.Int32(report.FieldQueryCallingUID, q.CallingUID)
		qBuilder.Bool(report.FieldQueryHasError, !q.Succeeded)
		if !q.Succeeded {
			qBuilder.String(report.FieldQueryError, q.InvalidReason)
		}
		qBuilder.Int64(report.FieldQueryLatencyNs, q.LatencyNs)
		b.Message(report.FieldRestrictedMetricQueryStats, qBuilder)
	}

	for bin, count := range s.batchReadHistogram {
		_ = bin
		b.Int64(report.FieldSocketReadStats, count)
	}

	data := b.Bytes()

	if reset {
		s.resetHistoricalLocked()
	}

	return data
}

// resetHistoricalLocked clears counters that should not accumulate
// across dumps while keeping active config records, per 4.E's reset
// semantics: "dump(reset=true) resets historical counters but retains
// active-config records."
func (s *Store) resetHistoricalLocked() {
	s.atomStats = make(map[int32]*atomStats)
	s.loggerErrors = nil
	s.uidMapDrops = 0
	s.uidMapAppDelDrops = 0
	s.anomalyAlarmRegistrations = 0
	s.periodicAlarmRegistrations = 0
	s.systemServerRestartsNs = nil
	s.queueMaxSizeObserved = 0
	s.queueMaxSizeObservedElapsed = 0
	s.batchReadHistogram = [kNumBinsInSocketBatchReadHistogram]int64{}
	s.largeBatchRecords = nil
	s.restrictedQueries = nil
	s.pullStatsTable = nil
	s.subscriptionStarts = 0
	s.subscriptionFlushes = 0
	s.subscriptionErrors = 0
	s.metricStats = nil
	s.iceBox = nil

	for _, cfg := range s.configs {
		cfg.BroadcastNs = nil
		cfg.DataDropTimeNs = nil
		cfg.DataDropBytes = nil
		cfg.DumpReportNs = nil
	}
}

func configStatsBuilder(key ConfigKey, cfg *ConfigStats) *report.Builder {
	b := report.NewBuilder()
	b.Int32(report.FieldConfigStatsUID, key.UID)
	b.Int64(report.FieldConfigStatsID, key.ID)
	b.Int64(report.FieldConfigStatsCreation, cfg.CreationNs)
	if cfg.DeletionNs != 0 {
		b.Int64(report.FieldConfigStatsDeletion, cfg.DeletionNs)
	}
	if cfg.ResetNs != 0 {
		b.Int64(report.FieldConfigStatsReset, cfg.ResetNs)
	}
	b.Int32(report.FieldConfigStatsMetricCount, cfg.MetricCount)
	b.Int32(report.FieldConfigStatsConditionCount, cfg.ConditionCount)
	b.Int32(report.FieldConfigStatsMatcherCount, cfg.MatcherCount)
	b.Int32(report.FieldConfigStatsAlertCount, cfg.AlertCount)
	b.Bool(report.FieldConfigStatsValid, cfg.Valid)
	for _, ns := range cfg.BroadcastNs {
		b.Int64(report.FieldConfigStatsBroadcast, ns)
	}
	for _, ns := range cfg.DataDropTimeNs {
		b.Int64(report.FieldConfigStatsDataDropTime, ns)
	}
	for _, bytesDropped := range cfg.DataDropBytes {
		b.Int64(report.FieldConfigStatsDataDropBytes, bytesDropped)
	}
	for _, ns := range cfg.DumpReportNs {
		b.Int64(report.FieldConfigStatsDumpReportTime, ns)
	}
	return b
}
