package bus

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// maxSamples bounds the latency sample buffer so Metrics never grows
// without bound; once a sample insertion crosses the window boundary the
// buffer is trimmed to the most recent maxSamples values.
const maxSamples = 1000

// Stats is a point-in-time snapshot returned by Metrics.Stats.
type Stats struct {
	P50           float64
	P90           float64
	P99           float64
	Processed     uint64
	Dropped       uint64
	MsgsPerSecond float64
	QueueDepth    int
}

// Metrics is a thread-safe windowed latency and throughput collector.
// Counters are bumped with atomics; the latency sample buffer is guarded
// by a single mutex. All operations are infallible.
type Metrics struct {
	windowSize time.Duration

	mu          sync.Mutex
	samples     []float64
	windowStart time.Time

	processed  atomic.Uint64
	dropped    atomic.Uint64
	queueDepth atomic.Int64

	lastRateCalc  time.Time
	lastProcessed uint64
}

// NewMetrics creates a Metrics collector with the given sliding window
// size. A zero windowSize falls back to one second.
func NewMetrics(windowSize time.Duration) *Metrics {
	if windowSize <= 0 {
		windowSize = time.Second
	}
	now := time.Now()
	return &Metrics{
		windowSize:   windowSize,
		windowStart:  now,
		lastRateCalc: now,
	}
}

// RecordLatency appends one latency sample, expressed as a duration.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.mu.Lock()
	m.samples = append(m.samples, float64(d))

	now := time.Now()
	if now.After(m.windowStart.Add(m.windowSize)) {
		if len(m.samples) > maxSamples {
			m.samples = append([]float64(nil), m.samples[len(m.samples)-maxSamples:]...)
		}
		m.windowStart = now
	}
	m.mu.Unlock()
}

// RecordProcessed increments the processed counter.
func (m *Metrics) RecordProcessed() { m.processed.Add(1) }

// RecordDropped increments the dropped counter.
func (m *Metrics) RecordDropped() { m.dropped.Add(1) }

// UpdateQueueDepth records the current depth of whatever queue feeds the
// bus's workers, for observability. Supplemental to spec.md, carried over
// from the original implementation's Metrics::update_queue_depth.
func (m *Metrics) UpdateQueueDepth(depth int) { m.queueDepth.Store(int64(depth)) }

// Stats copies the current sample vector under lock, sorts it, and
// interpolates p50/p90/p99 by linear interpolation between adjacent
// ranks. The throughput figure is stateful: it compares the processed
// counter against the value it held at the previous Stats call.
func (m *Metrics) Stats() Stats {
	now := time.Now()

	var rate float64
	m.mu.Lock()
	elapsedMS := now.Sub(m.lastRateCalc).Milliseconds()
	if elapsedMS > 0 {
		current := m.processed.Load()
		rate = float64(current-m.lastProcessed) * 1000 / float64(elapsedMS)
		m.lastProcessed = current
		m.lastRateCalc = now
	}

	sorted := append([]float64(nil), m.samples...)
	m.mu.Unlock()

	sort.Float64s(sorted)

	return Stats{
		P50:           percentile(sorted, 50),
		P90:           percentile(sorted, 90),
		P99:           percentile(sorted, 99),
		Processed:     m.processed.Load(),
		Dropped:       m.dropped.Load(),
		MsgsPerSecond: rate,
		QueueDepth:    int(m.queueDepth.Load()),
	}
}

// Reset zeroes all state and restarts the window.
func (m *Metrics) Reset() {
	now := time.Now()
	m.mu.Lock()
	m.samples = nil
	m.windowStart = now
	m.lastRateCalc = now
	m.lastProcessed = 0
	m.mu.Unlock()

	m.processed.Store(0)
	m.dropped.Store(0)
	m.queueDepth.Store(0)
}

// percentile interpolates value p (0-100) out of an already-sorted slice.
// An empty slice yields 0.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := (p / 100) * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
