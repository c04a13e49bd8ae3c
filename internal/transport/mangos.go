package transport

import (
	"errors"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/pull"
	"go.nanomsg.org/mangos/v3/protocol/push"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

// mangosSocket adapts a mangos.Socket to the Socket interface used by the
// bus. It is a thin pass-through: all the ownership and polling discipline
// lives in the bus, not here.
type mangosSocket struct {
	sock mangos.Socket
}

func wrap(sock mangos.Socket, err error) (Socket, error) {
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

// NewPub creates a PUB-side socket for the publisher's public TCP bind.
func NewPub() (Socket, error) { return wrap(pub.NewSocket()) }

// NewSub creates a SUB-side socket for the subscriber's connect.
func NewSub() (Socket, error) { return wrap(sub.NewSocket()) }

// NewPush creates a PUSH-side socket for a producer's fan-in handle.
func NewPush() (Socket, error) { return wrap(push.NewSocket()) }

// NewPull creates a PULL-side socket for the publisher's ingress.
func NewPull() (Socket, error) { return wrap(pull.NewSocket()) }

func (m *mangosSocket) Send(body []byte) error {
	err := m.sock.Send(body)
	if err != nil && errors.Is(err, mangos.ErrSendTimeout) {
		return ErrTimeout
	}
	return err
}

func (m *mangosSocket) Recv() ([]byte, error) {
	body, err := m.sock.Recv()
	if err != nil && errors.Is(err, mangos.ErrRecvTimeout) {
		return nil, ErrTimeout
	}
	return body, err
}

func (m *mangosSocket) Subscribe(prefix []byte) error {
	return m.sock.SetOption(mangos.OptionSubscribe, prefix)
}

func (m *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return m.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (m *mangosSocket) SetSendDeadline(d time.Duration) error {
	return m.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (m *mangosSocket) SetQueueLen(n int) error {
	if err := m.sock.SetOption(mangos.OptionWriteQLen, n); err != nil {
		return err
	}
	return m.sock.SetOption(mangos.OptionReadQLen, n)
}

func (m *mangosSocket) Dial(addr string) error { return m.sock.Dial(addr) }
func (m *mangosSocket) Listen(addr string) error { return m.sock.Listen(addr) }
func (m *mangosSocket) Close() error             { return m.sock.Close() }
