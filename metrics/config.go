// config.go: the numeric knobs a NumericValueMetricProducer needs
// (§4.F.1), expressed as an immutable Config built with functional
// options the way iris/options.go builds loggerOptions: validated once
// at construction, zero allocation to read on the hot path.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package metrics

import "github.com/agilira/go-errors"

const ErrCodeInvalidConfig errors.ErrorCode = "STATSD_INVALID_METRIC_CONFIG"

func newConfigError(msg string) *errors.Error {
	return errors.New(ErrCodeInvalidConfig, msg).
		WithSeverity("error").
		WithContext("component", "metrics_config")
}

// AggregationType is one of the four aggregation functions a value
// field may use within a bucket (§4.F.1).
type AggregationType int

const (
	AggSum AggregationType = iota
	AggAvg
	AggMin
	AggMax
)

// ValueDirection constrains how a diffed pulled value may move between
// samples (§4.F.1, §4.F.3 step 3).
type ValueDirection int

const (
	DirIncreasing ValueDirection = iota
	DirDecreasing
	DirAny
)

// ThresholdComparison names which comparison an UploadThreshold applies.
type ThresholdComparison int

const (
	ThresholdLtInt ThresholdComparison = iota
	ThresholdGtInt
	ThresholdLteInt
	ThresholdGteInt
	ThresholdLtFloat
	ThresholdGtFloat
)

// UploadThreshold gates emission of an entire bucket's dimension row on
// the first interval's final value (§4.F.1, §4.F.5).
type UploadThreshold struct {
	Comparison ThresholdComparison
	IntValue   int64
	FloatValue float64
}

// Passes reports whether value satisfies the threshold.
func (t *UploadThreshold) Passes(value NumericValue) bool {
	if t == nil {
		return true
	}
	d := value.ToFloat64()
	switch t.Comparison {
	case ThresholdLtInt:
		return d < float64(t.IntValue)
	case ThresholdGtInt:
		return d > float64(t.IntValue)
	case ThresholdLteInt:
		return d <= float64(t.IntValue)
	case ThresholdGteInt:
		return d >= float64(t.IntValue)
	case ThresholdLtFloat:
		return d < t.FloatValue
	case ThresholdGtFloat:
		return d > t.FloatValue
	default:
		return false
	}
}

// DimensionLimits is the soft/hard dimension-key-count guardrail pair
// (§4.F.6). Exceeding Hard drops new dimensions and invalidates the
// current bucket. Soft is carried on the Config but the guardrail check
// does not consult it: exceeding Soft records no warning stat.
type DimensionLimits struct {
	Soft int
	Hard int
}

// Default dimension guardrail limits, applied unless a per-atom override
// is configured. Named to match StatsdStats.h's kDimensionKeySizeSoftLimit
// / kDimensionKeySizeHardLimit; the defining header did not survive into
// original_source, so these values follow the same order of magnitude as
// this daemon's other kMax* bounds (see DESIGN.md).
const (
	DefaultDimensionSoftLimit = 500
	DefaultDimensionHardLimit = 800
)

// Config is the immutable set of knobs one NumericValueMetricProducer
// is built from. Construct with NewConfig; all fields are read-only
// after that.
type Config struct {
	MetricID int64

	// ValueFields determines the number of Intervals per dimension; its
	// length must be >= 1.
	ValueFields []FieldSelector
	// AggregationTypes is either length 1 (applies to every value field)
	// or len(ValueFields) (one aggregation per field).
	AggregationTypes []AggregationType

	DimensionsInWhat []FieldSelector

	// WhatAtomID is the pulled-or-matched atom id this metric's dimension
	// guardrail override table is keyed on (§4.F.6).
	WhatAtomID int32

	BucketSizeNs    int64
	MinBucketSizeNs int64
	TimeBaseNs      int64

	Pulled                  bool
	PullAtomID              int32
	UseDiff                 bool
	ValueDirection          ValueDirection
	UseAbsoluteValueOnReset bool
	UseZeroDefaultBase      bool
	SkipZeroDiffOutput      bool
	MaxPullDelayNs          int64

	ConditionCorrectionThresholdNs int64

	UploadThreshold *UploadThreshold

	IncludeSampleSize bool

	DimensionLimits         DimensionLimits
	DimensionLimitOverrides map[int32]DimensionLimits

	// useDiffSet and includeSampleSizeSet distinguish "caller left this
	// at its computed default" from "caller explicitly chose the zero
	// value", since both defaults depend on other fields (use_diff
	// defaults to Pulled; include_sample_size defaults to "any AVG
	// aggregation").
	useDiffSet           bool
	includeSampleSizeSet bool
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithValueFields(sels ...FieldSelector) Option {
	return func(c *Config) { c.ValueFields = sels }
}

func WithAggregationTypes(types ...AggregationType) Option {
	return func(c *Config) { c.AggregationTypes = types }
}

func WithDimensionsInWhat(sels ...FieldSelector) Option {
	return func(c *Config) { c.DimensionsInWhat = sels }
}

func WithWhatAtomID(atomID int32) Option {
	return func(c *Config) { c.WhatAtomID = atomID }
}

func WithBucketSizeNs(n int64) Option {
	return func(c *Config) { c.BucketSizeNs = n }
}

func WithMinBucketSizeNs(n int64) Option {
	return func(c *Config) { c.MinBucketSizeNs = n }
}

func WithTimeBaseNs(n int64) Option {
	return func(c *Config) { c.TimeBaseNs = n }
}

// WithPulled marks the metric as pulled, driven from atomID.
func WithPulled(atomID int32) Option {
	return func(c *Config) {
		c.Pulled = true
		c.PullAtomID = atomID
	}
}

func WithUseDiff(v bool) Option {
	return func(c *Config) { c.useDiffSet = true; c.UseDiff = v }
}

func WithValueDirection(d ValueDirection) Option {
	return func(c *Config) { c.ValueDirection = d }
}

func WithUseAbsoluteValueOnReset(v bool) Option {
	return func(c *Config) { c.UseAbsoluteValueOnReset = v }
}

func WithUseZeroDefaultBase(v bool) Option {
	return func(c *Config) { c.UseZeroDefaultBase = v }
}

func WithSkipZeroDiffOutput(v bool) Option {
	return func(c *Config) { c.SkipZeroDiffOutput = v }
}

func WithMaxPullDelayNs(n int64) Option {
	return func(c *Config) { c.MaxPullDelayNs = n }
}

func WithConditionCorrectionThresholdNs(n int64) Option {
	return func(c *Config) { c.ConditionCorrectionThresholdNs = n }
}

func WithUploadThreshold(t *UploadThreshold) Option {
	return func(c *Config) { c.UploadThreshold = t }
}

func WithIncludeSampleSize(v bool) Option {
	return func(c *Config) { c.includeSampleSizeSet = true; c.IncludeSampleSize = v }
}

func WithDimensionLimits(soft, hard int) Option {
	return func(c *Config) { c.DimensionLimits = DimensionLimits{Soft: soft, Hard: hard} }
}

func WithDimensionLimitOverride(atomID int32, soft, hard int) Option {
	return func(c *Config) {
		if c.DimensionLimitOverrides == nil {
			c.DimensionLimitOverrides = make(map[int32]DimensionLimits)
		}
		c.DimensionLimitOverrides[atomID] = DimensionLimits{Soft: soft, Hard: hard}
	}
}

// NewConfig builds and validates a Config, applying §4.F.1's documented
// defaults for any option the caller didn't set explicitly.
func NewConfig(metricID int64, opts ...Option) (*Config, error) {
	c := &Config{
		MetricID:        metricID,
		DimensionLimits: DimensionLimits{Soft: DefaultDimensionSoftLimit, Hard: DefaultDimensionHardLimit},
		MaxPullDelayNs:  10_000_000_000, // 10s, matching StatsdStats::kPullMaxDelayNs order of magnitude
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.ValueFields) == 0 {
		return nil, newConfigError("metrics.Config requires at least one value field")
	}
	if c.BucketSizeNs <= 0 {
		return nil, newConfigError("metrics.Config requires a positive bucket_size_ns")
	}

	if len(c.AggregationTypes) == 0 {
		c.AggregationTypes = []AggregationType{AggSum}
	}
	if len(c.AggregationTypes) != 1 && len(c.AggregationTypes) != len(c.ValueFields) {
		return nil, newConfigError("aggregation_types must be length 1 or match value_field count")
	}

	if !c.useDiffSet {
		c.UseDiff = c.Pulled
	}
	if !c.includeSampleSizeSet {
		c.IncludeSampleSize = c.hasAvgAggregation()
	}

	return c, nil
}

func (c *Config) hasAvgAggregation() bool {
	for _, a := range c.AggregationTypes {
		if a == AggAvg {
			return true
		}
	}
	return false
}

// AggregationFor returns the aggregation type for value-field index i,
// honoring the "single aggregation applies to all fields" shorthand.
func (c *Config) AggregationFor(i int) AggregationType {
	if len(c.AggregationTypes) == 1 {
		return c.AggregationTypes[0]
	}
	return c.AggregationTypes[i]
}

// DimensionLimitsFor returns the guardrail pair for atomID, honoring any
// per-atom override (§4.F.6).
func (c *Config) DimensionLimitsFor(atomID int32) DimensionLimits {
	if lim, ok := c.DimensionLimitOverrides[atomID]; ok {
		return lim
	}
	return c.DimensionLimits
}

