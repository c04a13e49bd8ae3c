// Package bus implements a topic-based publish/subscribe message bus: a
// publisher side that fans messages from many producer goroutines out to
// any number of TCP subscribers, and a subscriber side that filters by
// topic prefix and dispatches to a bounded worker pool.
package bus

import "time"

// Message is an ordered pair of opaque byte strings: a topic used for
// subscription filtering and a payload with no enforced schema. Both
// fields are owned by the Message and it is cheap to copy by value.
type Message struct {
	Topic   string
	Payload []byte
}

// BusConfig configures both bus roles. Zero-value fields are filled in by
// DefaultBusConfig; constructing a BusConfig by hand and leaving fields
// zero will leave them zero, not defaulted.
type BusConfig struct {
	// PubBindAddr is where the publisher listens for subscribers.
	PubBindAddr string
	// SubConnectAddr is the address a subscriber dials.
	SubConnectAddr string
	// InprocIngress is the intra-process address producers fan into.
	InprocIngress string
	// IOThreads is a hint passed to the transport; mangos sockets don't
	// expose a tunable I/O thread count the way the C++ original's ZeroMQ
	// context does, so this is accepted for config-shape compatibility and
	// otherwise unused.
	IOThreads int
	// WorkerThreads sizes the subscriber's compute pool.
	WorkerThreads int
	// HWM is the high-water mark applied to every socket.
	HWM int
	// MetricsPeriod is the sliding window size for throughput/latency
	// computation.
	MetricsPeriod time.Duration
}

// DefaultBusConfig returns the configuration defaults from the wire
// protocol table: a TCP publisher bind on :5556, a loopback subscriber
// connect, and an inproc ingress address.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		PubBindAddr:    "tcp://*:5556",
		SubConnectAddr: "tcp://127.0.0.1:5556",
		InprocIngress:  "inproc://ingress",
		IOThreads:      1,
		WorkerThreads:  4,
		HWM:            1000,
		MetricsPeriod:  time.Second,
	}
}

// Handler processes one received Message on a worker goroutine.
type Handler func(Message)
