// Package promexport mirrors a bus.Metrics snapshot into Prometheus
// gauges/counters on a fixed tick, following the teacher's
// metricsReporter pattern: the bus package itself stays free of any
// metrics-backend dependency, and a small reporter goroutine owns the
// translation.
package promexport

import (
	"context"
	"time"

	"github.com/nathanplt/pub-sub-system/bus"
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter periodically polls a Stats source and republishes it as
// Prometheus metrics under a configurable name prefix.
type Exporter struct {
	source   func() bus.Stats
	interval time.Duration

	p50, p90, p99  prometheus.Gauge
	throughput     prometheus.Gauge
	queueDepth     prometheus.Gauge
	processedTotal prometheus.Counter
	droppedTotal   prometheus.Counter
	lastProcessed  uint64
	lastDropped    uint64
}

// New builds an Exporter for the given role ("publisher" or
// "subscriber") and registers its collectors with reg.
func New(role string, source func() bus.Stats, interval time.Duration, reg prometheus.Registerer) *Exporter {
	labels := prometheus.Labels{"role": role}
	e := &Exporter{
		source:   source,
		interval: interval,
		p50: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_latency_p50_nanoseconds", Help: "p50 send-to-receive latency.", ConstLabels: labels,
		}),
		p90: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_latency_p90_nanoseconds", Help: "p90 send-to-receive latency.", ConstLabels: labels,
		}),
		p99: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_latency_p99_nanoseconds", Help: "p99 send-to-receive latency.", ConstLabels: labels,
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_messages_per_second", Help: "Most recent throughput sample.", ConstLabels: labels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_queue_depth", Help: "Worker pool queue depth.", ConstLabels: labels,
		}),
		processedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pubsub_messages_processed_total", Help: "Total messages processed.", ConstLabels: labels,
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pubsub_messages_dropped_total", Help: "Total messages dropped.", ConstLabels: labels,
		}),
	}

	reg.MustRegister(e.p50, e.p90, e.p99, e.throughput, e.queueDepth, e.processedTotal, e.droppedTotal)
	return e
}

// Run polls the source on the configured interval and updates the
// registered collectors until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Exporter) tick() {
	stats := e.source()

	e.p50.Set(stats.P50)
	e.p90.Set(stats.P90)
	e.p99.Set(stats.P99)
	e.throughput.Set(stats.MsgsPerSecond)
	e.queueDepth.Set(float64(stats.QueueDepth))

	if stats.Processed > e.lastProcessed {
		e.processedTotal.Add(float64(stats.Processed - e.lastProcessed))
		e.lastProcessed = stats.Processed
	}
	if stats.Dropped > e.lastDropped {
		e.droppedTotal.Add(float64(stats.Dropped - e.lastDropped))
		e.lastDropped = stats.Dropped
	}
}
