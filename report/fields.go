// fields.go: protobuf field numbers for the StatsdStatsReport message
// family, reproduced from StatsdStats.cpp's FIELD_ID_* constants.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package report

// Top-level StatsdStatsReport fields.
const (
	FieldBeginTime                    = 1
	FieldEndTime                      = 2
	FieldConfigStats                  = 3
	FieldAtomStats                    = 7
	FieldUidMapStats                  = 8
	FieldAnomalyAlarmStats            = 9
	FieldPeriodicAlarmStats           = 12
	FieldSystemServerRestart          = 15
	FieldLoggerErrorStats             = 16
	FieldOverflow                     = 18
	FieldActivationBroadcastGuardrail = 19
	FieldRestrictedMetricQueryStats   = 20
	FieldShardOffset                  = 21
	FieldStatsdStatsID                = 22
	FieldSubscriptionStats            = 23
	FieldSocketLossStats              = 24
	FieldQueueStats                   = 25
	FieldSocketReadStats              = 26
)

// RestrictedMetricQueryStats sub-message fields.
const (
	FieldQueryCallingUID      = 1
	FieldQueryConfigID        = 2
	FieldQueryConfigUID       = 3
	FieldQueryConfigPackage   = 4
	FieldQueryInvalidReason   = 5
	FieldQueryWallTimeNs      = 6
	FieldQueryHasError        = 7
	FieldQueryError           = 8
	FieldQueryLatencyNs       = 9
)

// AtomStats sub-message fields.
const (
	FieldAtomStatsTag        = 1
	FieldAtomStatsCount      = 2
	FieldAtomStatsErrorCount = 3
	FieldAtomStatsDropsCount = 4
	FieldAtomStatsSkipCount  = 5
)

const (
	FieldAnomalyAlarmsRegistered  = 1
	FieldPeriodicAlarmsRegistered = 1
)

// LoggerErrorStats (log-loss) sub-message fields.
const (
	FieldLogLossTime  = 1
	FieldLogLossCount = 2
	FieldLogLossError = 3
	FieldLogLossTag   = 4
	FieldLogLossUID   = 5
	FieldLogLossPID   = 6
)

// Overflow sub-message fields.
const (
	FieldOverflowCount      = 1
	FieldOverflowMaxHistory = 2
	FieldOverflowMinHistory = 3
)

// QueueStats sub-message fields.
const (
	FieldQueueMaxSizeObserved        = 1
	FieldQueueMaxSizeObservedElapsed = 2
)

// ConfigStats sub-message fields.
const (
	FieldConfigStatsUID                  = 1
	FieldConfigStatsID                   = 2
	FieldConfigStatsCreation              = 3
	FieldConfigStatsReset                 = 19
	FieldConfigStatsDeletion              = 4
	FieldConfigStatsMetricCount            = 5
	FieldConfigStatsConditionCount         = 6
	FieldConfigStatsMatcherCount           = 7
	FieldConfigStatsAlertCount             = 8
	FieldConfigStatsValid                  = 9
	FieldConfigStatsInvalidConfigReason     = 24
	FieldConfigStatsBroadcast               = 10
	FieldConfigStatsDataDropTime            = 11
	FieldConfigStatsDataDropBytes           = 21
	FieldConfigStatsDumpReportTime           = 12
)
