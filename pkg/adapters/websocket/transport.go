// Package websocket sends accessibility tree changes to a remote service as
// binary WebSocket frames, one encoded message per frame.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds each frame write.
const DefaultWriteTimeout = 5 * time.Second

// closeGrace is how long Close waits for the peer to echo the close frame.
const closeGrace = time.Second

// ErrClosed is returned by Close when the connection is already gone.
var ErrClosed = errors.New("websocket transport closed")

// MessageHandler receives frames sent by the remote service.
type MessageHandler func(messageType int, data []byte)

// Transport implements ports.Transport over a single WebSocket connection.
// A read pump started by Dial keeps the connection serviced, so pings are
// answered and a close from the peer is noticed. Safe for concurrent use.
type Transport struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	codec        codec.Codec
	writeTimeout time.Duration
	header       http.Header
	logger       *slog.Logger
	onMessage    MessageHandler

	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.Transport = (*Transport)(nil)

type Option func(*Transport)

// WithCodec sets the frame codec. The default is msgpack.
func WithCodec(c codec.Codec) Option {
	return func(t *Transport) {
		t.codec = c
	}
}

// WithWriteTimeout sets the deadline applied to each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.writeTimeout = d
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(t *Transport) {
		t.header = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithMessageHandler sets the callback for inbound data frames. Without one,
// inbound frames are logged and discarded.
func WithMessageHandler(h MessageHandler) Option {
	return func(t *Transport) {
		t.onMessage = h
	}
}

// Dial connects to the remote service at url and starts reading from it.
func Dial(ctx context.Context, url string, opts ...Option) (*Transport, error) {
	t := &Transport{
		codec:        codec.Msgpack{},
		writeTimeout: DefaultWriteTimeout,
		logger:       slog.Default(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, t.header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	t.conn = conn
	t.logger.Debug("websocket transport connected", "url", url, "codec", t.codec.Name())
	go t.readPump()
	return t, nil
}

// Done is closed once the connection has ended, from either side.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// readPump reads until the connection fails. Control frames are handled by
// gorilla's default handlers while ReadMessage runs.
func (t *Transport) readPump() {
	defer close(t.done)
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				t.logger.Debug("websocket transport disconnected", "error", err)
			} else {
				t.logger.Warn("websocket transport read failed", "error", err)
			}
			t.shutdown()
			return
		}
		if t.onMessage == nil {
			t.logger.Debug("discarding inbound frame", "type", kind, "bytes", len(data))
			continue
		}
		t.onMessage(kind, data)
	}
}

func (t *Transport) shutdown() {
	t.closeOnce.Do(func() {
		_ = t.conn.Close()
	})
}

func (t *Transport) send(ctx context.Context, m codec.Message) error {
	payload, err := t.codec.Marshal(m)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("websocket %s: %w", m.Kind, err)
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("websocket %s: %w", m.Kind, err)
	}
	return nil
}

// UpdateSemanticNodes implements ports.Transport.
func (t *Transport) UpdateSemanticNodes(ctx context.Context, nodes []domain.WireNode) error {
	return t.send(ctx, codec.UpdateMessage(nodes))
}

// DeleteSemanticNodes implements ports.Transport.
func (t *Transport) DeleteSemanticNodes(ctx context.Context, ids []uint32) error {
	return t.send(ctx, codec.DeleteMessage(ids))
}

// CommitUpdates writes the commit frame and then invokes done.
func (t *Transport) CommitUpdates(ctx context.Context, done func()) error {
	if err := t.send(ctx, codec.CommitMessage()); err != nil {
		return err
	}
	if done != nil {
		done()
	}
	return nil
}

// SendSemanticEvent implements ports.Transport.
func (t *Transport) SendSemanticEvent(ctx context.Context, event domain.SemanticEvent) error {
	return t.send(ctx, codec.EventMessage(event))
}

// Close sends a close frame, waits briefly for the peer's reply and closes
// the connection. It returns ErrClosed if the connection had already ended.
func (t *Transport) Close() error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	t.mu.Unlock()

	if err == nil {
		select {
		case <-t.done:
		case <-time.After(closeGrace):
		}
	}
	t.shutdown()
	<-t.done
	return nil
}
