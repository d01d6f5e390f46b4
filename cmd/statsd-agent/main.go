// statsd-agent: a minimal daemon wiring the atom codec, socket writer,
// producer-side queue, loss tracker, StatsdStats store, and the
// NumericValueMetricProducer together over a real unixgram socket —
// the way iris/cmd/test wires a logger end to end, scaled up to this
// module's multi-package pipeline.
//
// It runs two halves in one process for demonstration purposes: a
// synthetic producer standing in for an instrumented app, and the
// receiver/aggregator a real statsd process would run. Point
// -addr at two different binaries' sockets to split them across
// processes instead.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WangTingMan/packages-modules-StatsD/internal/clock"
	"github.com/WangTingMan/packages-modules-StatsD/metrics"
	"github.com/WangTingMan/packages-modules-StatsD/statsdstats"
)

const usage = `statsd-agent - demo device-side metrics aggregation daemon

USAGE:
    statsd-agent [OPTIONS]

OPTIONS:
`

func main() {
	addr := flag.String("addr", "@statsd-agent-demo", "abstract-namespace unixgram socket address")
	bucketSize := flag.Duration("bucket", 5*time.Second, "aggregation bucket size")
	emitInterval := flag.Duration("emit", 200*time.Millisecond, "synthetic atom emission interval")
	noProducer := flag.Bool("no-producer", false, "disable the built-in synthetic producer; only run the receiver")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*addr, *bucketSize, *emitInterval, *noProducer); err != nil {
		fmt.Fprintf(os.Stderr, "statsd-agent: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, bucketSize, emitInterval time.Duration, noProducer bool) error {
	stats := statsdstats.New(clock.NowNs())

	cfg, err := metrics.NewConfig(wakelockMetricID,
		metrics.WithValueFields(metrics.FieldSelector{FieldIndex: fieldDurationMs}),
		metrics.WithAggregationTypes(metrics.AggSum),
		metrics.WithDimensionsInWhat(metrics.FieldSelector{FieldIndex: fieldUID}),
		metrics.WithWhatAtomID(int32(wakelockHeldAtomID)),
		metrics.WithBucketSizeNs(bucketSize.Nanoseconds()),
		metrics.WithTimeBaseNs(clock.NowNs()),
	)
	if err != nil {
		return fmt.Errorf("building metric config: %w", err)
	}

	producer := metrics.NewProducer(cfg, stats, nil)
	producer.OnActiveChanged(clock.NowNs(), true)
	producer.OnConditionChanged(metrics.ConditionUnknown, metrics.ConditionTrue, clock.NowNs())

	receiver, err := NewReceiver(addr, producer, stats)
	if err != nil {
		return err
	}
	go receiver.Run()

	reporter := NewReporter(producer, stats, cfg.IncludeSampleSize)
	go reporter.Run(bucketSize)

	var synth *SynthProducer
	if !noProducer {
		synth, err = NewSynthProducer(addr)
		if err != nil {
			return fmt.Errorf("starting synthetic producer: %w", err)
		}
		go synth.Run(emitInterval)
	}

	fmt.Printf("statsd-agent listening on %q, bucket=%s\n", addr, bucketSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("statsd-agent shutting down")
	if synth != nil {
		synth.Stop()
	}
	reporter.Stop()
	reporter.printOnce()
	return receiver.Close()
}
