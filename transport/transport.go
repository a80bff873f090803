// Package transport wires a table to its point-to-point messaging peers
// over ZeroMQ PUSH/PULL sockets (component collaborator, external
// interfaces). A table that listens owns a Reader bound to a TCP port; a
// table that forwards to a downstream service owns a Writer dialed to
// it. Either or both may be present on a given table.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"

	"github.com/linuxfood/setab/internal/nlog"
)

// DefaultLinger is how long Close waits for queued sends to drain
// before giving up on a Writer.
const DefaultLinger = time.Second

// Reader receives row messages on a bound PULL socket.
type Reader struct {
	sock zmq4.Socket
}

// Listen binds a PULL socket on port and returns a Reader. port must be
// a positive TCP port number.
func Listen(ctx context.Context, port int) (*Reader, error) {
	if port <= 0 {
		return nil, errors.New("transport: listen port must be positive")
	}
	sock := zmq4.NewPull(ctx)
	ep := fmt.Sprintf("tcp://*:%d", port)
	if err := sock.Listen(ep); err != nil {
		return nil, errors.Wrapf(err, "transport: bind %s", ep)
	}
	nlog.Infoln("transport: listening on", ep)
	return &Reader{sock: sock}, nil
}

// Recv blocks for the next message. It returns the raw payload bytes.
func (r *Reader) Recv() ([]byte, error) {
	msg, err := r.sock.Recv()
	if err != nil {
		return nil, errors.Wrap(err, "transport: recv")
	}
	return msg.Bytes(), nil
}

// Close releases the underlying socket.
func (r *Reader) Close() error {
	return r.sock.Close()
}

// Writer forwards row messages to a downstream service over a dialed
// PUSH socket.
type Writer struct {
	sock   zmq4.Socket
	linger time.Duration
}

// Dial connects a PUSH socket to endpoint (e.g. "tcp://host:port").
// linger bounds how long Close will wait for in-flight sends to finish;
// zero means DefaultLinger.
func Dial(ctx context.Context, endpoint string, linger time.Duration) (*Writer, error) {
	if endpoint == "" {
		return nil, errors.New("transport: empty downstream endpoint")
	}
	sock := zmq4.NewPush(ctx)
	if err := sock.Dial(endpoint); err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", endpoint)
	}
	nlog.Infoln("transport: connected to", endpoint)
	if linger <= 0 {
		linger = DefaultLinger
	}
	return &Writer{sock: sock, linger: linger}, nil
}

// Send pushes payload downstream.
func (w *Writer) Send(payload []byte) error {
	if err := w.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return errors.Wrap(err, "transport: send")
	}
	return nil
}

// Close applies the configured linger grace period before tearing the
// socket down, mirroring ZMQ_LINGER semantics for the pure-Go socket
// implementation that doesn't expose the option directly.
func (w *Writer) Close() error {
	done := make(chan error, 1)
	go func() { done <- w.sock.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(w.linger):
		nlog.Warningln("transport: close exceeded linger, detaching socket")
		return nil
	}
}
