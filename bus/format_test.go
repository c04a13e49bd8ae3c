package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDurationPicksLargestWholeUnit(t *testing.T) {
	assert.Equal(t, "500ns", FormatDuration(500*time.Nanosecond))
	assert.Equal(t, "12μs", FormatDuration(12*time.Microsecond))
	assert.Equal(t, "7ms", FormatDuration(7*time.Millisecond))
	assert.Equal(t, "3s", FormatDuration(3*time.Second))
}

func TestFormatStatsIncludesAllFields(t *testing.T) {
	s := Stats{
		P50: float64(time.Millisecond), P90: float64(2 * time.Millisecond), P99: float64(3 * time.Millisecond),
		Processed: 10, Dropped: 1, MsgsPerSecond: 4.5, QueueDepth: 2,
	}
	out := FormatStats(s)
	assert.Contains(t, out, "p50=1ms")
	assert.Contains(t, out, "processed=10")
	assert.Contains(t, out, "dropped=1")
	assert.Contains(t, out, "queue_depth=2")
}
