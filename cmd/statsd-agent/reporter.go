// reporter.go: periodically drains closed buckets off the producer and
// prints what would otherwise be shipped inside a StatsdStatsReport,
// using the same wire encoding (report.Builder via
// metrics.BuildBucketProto) a real config's pull-on-demand dump path
// would use.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"time"

	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
	"github.com/WangTingMan/packages-modules-StatsD/metrics"
	"github.com/WangTingMan/packages-modules-StatsD/statsdstats"
)

// Reporter periodically takes closed buckets off a Producer and prints
// a summary line per dimension, plus a periodic StatsdStats dump.
type Reporter struct {
	producer          *metrics.Producer
	stats             *statsdstats.Store
	includeSampleSize bool
	stop              chan struct{}
}

// NewReporter builds a Reporter over producer and stats.
// includeSampleSize must mirror the Config the producer was built
// from, per BuildBucketProto's contract.
func NewReporter(producer *metrics.Producer, stats *statsdstats.Store, includeSampleSize bool) *Reporter {
	return &Reporter{
		producer:          producer,
		stats:             stats,
		includeSampleSize: includeSampleSize,
		stop:              make(chan struct{}),
	}
}

// Run prints a report every interval until Stop is called.
func (r *Reporter) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.printOnce()
		case <-r.stop:
			return
		}
	}
}

func (r *Reporter) printOnce() {
	buckets := r.producer.TakePastBuckets()
	for _, pb := range buckets {
		wire := metrics.BuildBucketProto(pb, r.includeSampleSize)
		fmt.Printf("bucket #%d [%d,%d) dim=%s wire_bytes=%d\n",
			pb.BucketNum, pb.StartNs, pb.EndNs, pb.Dimension.What.String(), len(wire))
		for _, iv := range pb.Intervals {
			fmt.Printf("  value[%d] = %.2f (samples=%d)\n", iv.AggIndex, iv.Value.ToFloat64(), iv.SampleSize)
		}
	}

	skipped := r.producer.TakeSkippedBuckets()
	for _, sb := range skipped {
		fmt.Printf("skipped bucket [%d,%d) reason=%s\n", sb.StartNs, sb.EndNs, sb.DropReason)
	}

	statsWire := r.stats.Dump(false, clock.NowNs())
	fmt.Printf("statsdstats report: %d bytes\n", len(statsWire))
}

// Stop ends Run.
func (r *Reporter) Stop() {
	close(r.stop)
}
