package bus

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSubscriberBusStartStopIsClean(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15571)
	sb := NewSubscriberBus(cfg, nil, func(Message) {})
	require.NoError(t, sb.Start())
	require.True(t, sb.IsRunning())

	sb.Stop()
	require.False(t, sb.IsRunning())
}

func TestSubscriberBusStopOrderingNoLeak(t *testing.T) {
	// Regression for the shutdown ordering carried over from the original
	// implementation: the I/O goroutine must exit before the worker pool is
	// stopped, and the socket must be destroyed only after both have.
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15572)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	block := make(chan struct{})
	var inHandler atomic.Bool
	sb := NewSubscriberBus(cfg, nil, func(Message) {
		inHandler.Store(true)
		<-block
	})
	require.NoError(t, sb.Start())

	producer := pb.Producer()
	producer.Produce(Message{Topic: "x", Payload: []byte("y")})
	pollUntil(t, 200, func() bool { return inHandler.Load() })

	stopped := make(chan struct{})
	go func() {
		sb.Stop()
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	close(block)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return after the in-flight handler unblocked")
	}
}

func TestSubscriberBusTopicPrefixFiltering(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15573)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	var matched, unmatched atomic.Int64
	sb := NewSubscriberBus(cfg, []string{"wanted."}, func(msg Message) {
		if msg.Topic == "wanted.thing" {
			matched.Add(1)
		} else {
			unmatched.Add(1)
		}
	})
	require.NoError(t, sb.Start())
	defer sb.Stop()

	producer := pb.Producer()
	pollUntil(t, 200, func() bool {
		producer.Produce(Message{Topic: "ignored.thing", Payload: []byte("n")})
		producer.Produce(Message{Topic: "wanted.thing", Payload: []byte("y")})
		return matched.Load() > 0
	})

	require.Greater(t, matched.Load(), int64(0))
	require.Zero(t, unmatched.Load())
}

func TestSubscriberBusRecordsLatencyFromEmbeddedTimestamp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15574)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	sb := NewSubscriberBus(cfg, nil, func(Message) {})
	require.NoError(t, sb.Start())
	defer sb.Stop()

	producer := pb.Producer()
	payload := make([]byte, 8)
	pollUntil(t, 200, func() bool {
		binary.LittleEndian.PutUint64(payload, uint64(time.Now().UnixNano()))
		producer.Produce(Message{Topic: "timed", Payload: payload})
		s := sb.Metrics()
		return s.Processed > 0 && s.P50 > 0
	})

	require.Greater(t, sb.Metrics().Processed, uint64(0))
	require.Greater(t, sb.Metrics().P50, 0.0)
}

func TestSubscriberBusMetricsTracksProcessedCount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15575)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	sb := NewSubscriberBus(cfg, nil, func(Message) {})
	require.NoError(t, sb.Start())
	defer sb.Stop()

	producer := pb.Producer()
	const n = 20
	pollUntil(t, 300, func() bool {
		if sb.Metrics().Processed < n {
			producer.Produce(Message{Topic: "count", Payload: []byte("x")})
		}
		return sb.Metrics().Processed >= n
	})

	require.GreaterOrEqual(t, sb.Metrics().Processed, uint64(n))
}
