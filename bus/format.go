package bus

import (
	"fmt"
	"time"
)

// FormatDuration renders a latency figure the way the status line wants it:
// the largest whole unit that keeps at least one significant digit, not a
// fixed unit for every value. Supplemented from the original implementation's
// metrics_utils::format_duration, absent from the distilled spec.
func FormatDuration(d time.Duration) string {
	ns := d.Nanoseconds()
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%dμs", ns/1_000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%dms", ns/1_000_000)
	default:
		return fmt.Sprintf("%ds", ns/1_000_000_000)
	}
}

// FormatStats renders a Stats snapshot as a single status line, mirroring
// metrics_utils::format_stats from the original implementation.
func FormatStats(s Stats) string {
	return fmt.Sprintf(
		"p50=%s p90=%s p99=%s msgs/sec=%.2f processed=%d dropped=%d queue_depth=%d",
		FormatDuration(time.Duration(s.P50)),
		FormatDuration(time.Duration(s.P90)),
		FormatDuration(time.Duration(s.P99)),
		s.MsgsPerSecond,
		s.Processed,
		s.Dropped,
		s.QueueDepth,
	)
}
