package bus

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestReproDelay(t *testing.T) {
	cfg := DefaultBusConfig()
	cfg.PubBindAddr = "tcp://127.0.0.1:19999"
	cfg.SubConnectAddr = "tcp://127.0.0.1:19999"
	cfg.InprocIngress = fmt.Sprintf("inproc://%s", t.Name())
	cfg.MetricsPeriod = 0

	pb := NewPublisherBus(cfg)
	if err := pb.Start(); err != nil {
		t.Fatal(err)
	}
	defer pb.Stop()

	var received atomic.Int64
	sb := NewSubscriberBus(cfg, nil, func(msg Message) { received.Add(1) })
	if err := sb.Start(); err != nil {
		t.Fatal(err)
	}
	defer sb.Stop()

	producer := pb.Producer()
	for i := 0; i < 25; i++ {
		producer.Produce(Message{Topic: "load.test", Payload: []byte("x")})
	}

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		fmt.Println("received so far:", received.Load())
	}
}
