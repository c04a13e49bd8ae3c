// Package transport wraps the nanomsg/SP sockets the bus runs on behind a
// small interface, so bus code depends on a contract instead of a concrete
// library.
package transport

import "time"

// Socket is the subset of mangos.Socket the bus needs. Every Socket is
// owned by exactly one goroutine for its lifetime; concurrent use of the
// same Socket from two goroutines is a caller bug, not something this
// package guards against.
type Socket interface {
	// Send transmits body as one opaque message, blocking until it is
	// queued or the send deadline set via SetSendDeadline elapses, in
	// which case it returns ErrTimeout. A caller that wants to count
	// drops under sustained high-water-mark pressure should treat
	// ErrTimeout from Send exactly that way.
	Send(body []byte) error

	// Recv blocks until a message arrives or the receive deadline set via
	// SetRecvDeadline elapses, in which case it returns ErrTimeout.
	Recv() ([]byte, error)

	// Subscribe narrows delivery to messages whose body has prefix as a
	// byte prefix. Only meaningful on SUB sockets; other socket types do
	// not accept the option and return an error.
	Subscribe(prefix []byte) error

	// SetRecvDeadline bounds how long Recv blocks with no message ready.
	SetRecvDeadline(d time.Duration) error

	// SetSendDeadline bounds how long Send blocks with the write queue
	// full. This is the bus's chosen high-water-mark choke point: mangos
	// itself reports nothing when a best-effort send is silently
	// discarded, so the bus instead bounds the block and treats the
	// resulting timeout as an observable drop.
	SetSendDeadline(d time.Duration) error

	// SetQueueLen bounds the read and write queue depth (the socket's
	// high-water mark).
	SetQueueLen(n int) error

	Dial(addr string) error
	Listen(addr string) error

	Close() error
}

// ErrTimeout is returned by Send or Recv when the configured deadline
// elapses with nothing sent or received. Callers treat a Recv timeout as
// "no message, try again" and a Send timeout as "high-water mark reached,
// count a drop."
var ErrTimeout = errTimeout{}

type errTimeout struct{}

func (errTimeout) Error() string   { return "transport: deadline exceeded" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }
