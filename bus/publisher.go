package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nathanplt/pub-sub-system/internal/log"
	"github.com/nathanplt/pub-sub-system/internal/transport"
)

// warmupDelay is how long Start sleeps after binding the PUB socket, to
// mitigate the "slow joiner" problem: a SUB that dials concurrently with
// the bind can otherwise miss the earliest publications.
const warmupDelay = 500 * time.Millisecond

// pollInterval is how long the I/O loop's recv deadline is set to; a
// timeout on that deadline is treated the same as "no message, retry."
const pollInterval = 10 * time.Microsecond

// sendDeadline bounds how long a Send blocks once a write queue is full,
// before it is counted as a drop. This is the bus's chosen high-water-mark
// choke point: mangos reports nothing when a best-effort send is silently
// discarded, so instead every send bounds its block and a timeout becomes
// an observable, counted drop.
const sendDeadline = 5 * time.Millisecond

// pushHandle is one PUSH socket connected to the publisher's inproc
// ingress. It must be touched by exactly one goroutine at a time; that
// invariant is enforced by handing each one out to exactly one Producer
// and never sharing or pooling it.
type pushHandle struct {
	sock transport.Socket
}

// Producer is a stable, single-owner send handle bound to one producer.
// Obtain one per producer goroutine via PublisherBus.Producer and reuse it
// for every message that goroutine sends. Creating a new Producer per
// message, or sharing one Producer across goroutines, breaks the
// per-producer ordering guarantee: consecutive sends from the same logical
// producer must traverse the same PUSH pipe so they merge FIFO at the
// publisher's PULL socket. A pool of interchangeable handles cannot keep
// that promise, because two sends from the same producer could land on two
// different pipes and be reordered by the PULL socket's fair queuing
// across pipes.
//
// A Producer is not safe for concurrent use by more than one goroutine at
// a time, matching the transport's own single-owner-socket rule.
type Producer struct {
	bus  *PublisherBus
	sock transport.Socket
}

// Produce sends one message over this producer's dedicated PUSH pipe. If
// the publisher's inproc ingress queue is still full after sendDeadline,
// the send is abandoned and counted as a drop rather than blocking
// indefinitely.
func (p *Producer) Produce(msg Message) {
	logger := log.WithComponent("publisher")

	body, err := encodeFrame(msg.Topic, msg.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("dropping malformed message")
		return
	}
	if p.sock == nil {
		logger.Error().Msg("dropping message, producer handle unavailable")
		p.bus.metrics.RecordDropped()
		return
	}
	if err := p.sock.Send(body); err != nil {
		if err == transport.ErrTimeout {
			p.bus.metrics.RecordDropped()
			return
		}
		logger.Warn().Err(err).Msg("produce send failed")
	}
}

// PublisherBus accepts messages from any number of producer goroutines
// and fans them out over a PUB socket to any number of subscribers. A
// single I/O goroutine owns the PUB and PULL sockets; producers never
// touch them directly.
type PublisherBus struct {
	cfg BusConfig

	running atomic.Bool
	wg      sync.WaitGroup

	pull transport.Socket
	pub  transport.Socket

	metrics *Metrics

	handlesMu sync.Mutex
	handles   []*pushHandle
}

// NewPublisherBus constructs a publisher bus in the stopped state. Call
// Start before Producer.
func NewPublisherBus(cfg BusConfig) *PublisherBus {
	return &PublisherBus{cfg: cfg, metrics: NewMetrics(cfg.MetricsPeriod)}
}

// Start creates the PULL and PUB sockets, binds them, and spawns the I/O
// goroutine. It is idempotent while already running and sleeps a warm-up
// delay before returning to give the slow-joiner window a chance to
// close.
func (pb *PublisherBus) Start() error {
	if pb.running.Load() {
		return nil
	}

	logger := log.WithComponent("publisher")

	pull, err := transport.NewPull()
	if err != nil {
		return err
	}
	pub, err := transport.NewPub()
	if err != nil {
		pull.Close()
		return err
	}

	_ = pull.SetQueueLen(pb.cfg.HWM)
	_ = pub.SetQueueLen(pb.cfg.HWM)
	_ = pub.SetSendDeadline(sendDeadline)

	if err := pull.Listen(pb.cfg.InprocIngress); err != nil {
		pull.Close()
		pub.Close()
		return err
	}
	if err := pub.Listen(pb.cfg.PubBindAddr); err != nil {
		pull.Close()
		pub.Close()
		return err
	}

	pb.pull = pull
	pb.pub = pub
	pb.running.Store(true)

	pb.wg.Add(1)
	go pb.ioLoop()

	logger.Info().Str("addr", pb.cfg.PubBindAddr).Msg("publisher started")
	time.Sleep(warmupDelay)
	return nil
}

// Stop clears running, joins the I/O goroutine, and disposes every socket
// including every producer's push handle. Idempotent when not running.
func (pb *PublisherBus) Stop() {
	if !pb.running.Load() {
		return
	}
	pb.running.Store(false)
	pb.wg.Wait()

	pb.handlesMu.Lock()
	for _, h := range pb.handles {
		if h.sock != nil {
			h.sock.Close()
		}
	}
	pb.handles = nil
	pb.handlesMu.Unlock()

	if pb.pull != nil {
		pb.pull.Close()
		pb.pull = nil
	}
	if pb.pub != nil {
		pb.pub.Close()
		pb.pub = nil
	}
}

// IsRunning reports whether the bus is currently started.
func (pb *PublisherBus) IsRunning() bool { return pb.running.Load() }

// Metrics returns a snapshot of this bus's send-side counters. The
// publisher has no latency or processed-message concept of its own — that
// belongs to the subscriber per the data flow — so only Dropped carries
// meaning here: it counts sends abandoned after sendDeadline, on either a
// producer's PUSH pipe or the I/O goroutine's forward to the PUB socket.
func (pb *PublisherBus) Metrics() Stats { return pb.metrics.Stats() }

// Producer registers a new stable send handle: a dedicated PUSH socket
// connected to the publisher's inproc ingress, owned by the caller for as
// long as that producer lives. Call this once per producer goroutine at
// startup — the spec's "per-thread registration step" — not once per
// message; a fresh Producer per message defeats the ordering guarantee
// the registration step exists to provide.
func (pb *PublisherBus) Producer() *Producer {
	h := pb.newPushHandle()
	return &Producer{bus: pb, sock: h.sock}
}

// newPushHandle creates and connects one PUSH socket to the ingress
// address, and registers it for cleanup on Stop.
func (pb *PublisherBus) newPushHandle() *pushHandle {
	logger := log.WithComponent("publisher")

	sock, err := transport.NewPush()
	if err != nil {
		logger.Error().Err(err).Msg("failed to create push handle")
		return &pushHandle{}
	}
	_ = sock.SetQueueLen(pb.cfg.HWM)
	_ = sock.SetSendDeadline(sendDeadline)
	if err := sock.Dial(pb.cfg.InprocIngress); err != nil {
		logger.Error().Err(err).Msg("failed to connect push handle")
	}

	h := &pushHandle{sock: sock}
	pb.handlesMu.Lock()
	pb.handles = append(pb.handles, h)
	pb.handlesMu.Unlock()
	return h
}

// ioLoop forwards every message the ingress PULL socket receives onto the
// public PUB socket, polling with a short recv deadline instead of a
// true non-blocking call plus sleep (spec.md §9 accepts either). A
// forward send that times out against the PUB socket's own high-water
// mark is counted as a drop, the same as a producer-side send timeout.
func (pb *PublisherBus) ioLoop() {
	defer pb.wg.Done()
	_ = pb.pull.SetRecvDeadline(pollInterval)
	logger := log.WithComponent("publisher")

	for pb.running.Load() {
		body, err := pb.pull.Recv()
		if err != nil {
			if err == transport.ErrTimeout {
				continue
			}
			continue
		}
		if err := pb.pub.Send(body); err != nil {
			if err == transport.ErrTimeout {
				pb.metrics.RecordDropped()
				continue
			}
			logger.Warn().Err(err).Msg("forward send failed")
		}
	}
}
