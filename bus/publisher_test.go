package bus

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig(t *testing.T, port int) BusConfig {
	cfg := DefaultBusConfig()
	cfg.PubBindAddr = fmt.Sprintf("tcp://127.0.0.1:%d", port)
	cfg.SubConnectAddr = fmt.Sprintf("tcp://127.0.0.1:%d", port)
	cfg.InprocIngress = fmt.Sprintf("inproc://%s", t.Name())
	cfg.MetricsPeriod = 0
	return cfg
}

func TestPublisherBusStartStopIsClean(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pb := NewPublisherBus(testConfig(t, 15561))
	require.NoError(t, pb.Start())
	require.True(t, pb.IsRunning())

	pb.Stop()
	require.False(t, pb.IsRunning())
}

func TestPublisherBusStartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pb := NewPublisherBus(testConfig(t, 15562))
	require.NoError(t, pb.Start())
	require.NoError(t, pb.Start())
	pb.Stop()
}

func TestPublisherBusStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pb := NewPublisherBus(testConfig(t, 15563))
	require.NoError(t, pb.Start())
	pb.Stop()
	pb.Stop()
}

func TestPublisherBusDeliversToSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15564)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	var received atomic.Int64
	sb := NewSubscriberBus(cfg, []string{"orders."}, func(msg Message) {
		received.Add(1)
	})
	require.NoError(t, sb.Start())
	defer sb.Stop()

	producer := pb.Producer()
	deadline := pollUntil(t, 200, func() bool {
		producer.Produce(Message{Topic: "orders.created", Payload: []byte("x")})
		return received.Load() > 0
	})
	require.True(t, deadline, "expected at least one delivered message")
}

func TestPublisherBusConcurrentProducers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t, 15565)
	pb := NewPublisherBus(cfg)
	require.NoError(t, pb.Start())
	defer pb.Stop()

	var received atomic.Int64
	sb := NewSubscriberBus(cfg, nil, func(msg Message) { received.Add(1) })
	require.NoError(t, sb.Start())
	defer sb.Stop()

	const producers = 8
	const perProducer = 25
	done := make(chan struct{}, producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			producer := pb.Producer()
			for i := 0; i < perProducer; i++ {
				producer.Produce(Message{Topic: "load.test", Payload: []byte("x")})
			}
			done <- struct{}{}
		}(p)
	}
	for p := 0; p < producers; p++ {
		<-done
	}

	pollUntil(t, 500, func() bool {
		return received.Load() >= producers*perProducer
	})
	require.GreaterOrEqual(t, received.Load(), int64(1))
}

// pollUntil polls cond every 5 milliseconds up to maxAttempts times, then
// once more, returning true as soon as cond reports success.
func pollUntil(t *testing.T, maxAttempts int, cond func() bool) bool {
	t.Helper()
	for i := 0; i < maxAttempts; i++ {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
