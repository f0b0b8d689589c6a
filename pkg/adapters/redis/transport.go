// Package redis publishes accessibility tree changes to a Redis stream and
// coordinates tree ownership between bridge replicas.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Stream entry fields.
const (
	FieldKind    = "kind"
	FieldPayload = "payload"
	FieldCodec   = "codec"
	FieldSeq     = "seq"
)

// Transport implements ports.Transport on a Redis stream. Every message is
// one XADD entry whose payload is encoded with the configured codec.
type Transport struct {
	client *backend.Client
	prefix string
	tree   string
	codec  codec.Codec
	maxLen int64
	seq    atomic.Uint64
}

var _ ports.Transport = (*Transport)(nil)

type Option func(*Transport)

// WithPrefix sets the key prefix for streams.
func WithPrefix(prefix string) Option {
	return func(t *Transport) {
		t.prefix = prefix
	}
}

// WithTree sets the tree name; the stream key is prefix + tree.
func WithTree(tree string) Option {
	return func(t *Transport) {
		t.tree = tree
	}
}

// WithCodec sets the payload codec. The default is msgpack.
func WithCodec(c codec.Codec) Option {
	return func(t *Transport) {
		t.codec = c
	}
}

// WithMaxLen caps the stream length. Zero keeps every entry.
func WithMaxLen(n int64) Option {
	return func(t *Transport) {
		t.maxLen = n
	}
}

// New creates a new Redis transport with options.
func New(address, password string, db int, opts ...Option) *Transport {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis transport from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Transport {
	t := &Transport{
		client: client,
		prefix: "a11ybridge:tree:",
		tree:   "default",
		codec:  codec.Msgpack{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client exposes the underlying client so a Locker can share it.
func (t *Transport) Client() *backend.Client {
	return t.client
}

// Stream returns the stream key messages are appended to.
func (t *Transport) Stream() string {
	return t.prefix + t.tree
}

func (t *Transport) publish(ctx context.Context, m codec.Message) error {
	payload, err := t.codec.Marshal(m)
	if err != nil {
		return err
	}
	args := &backend.XAddArgs{
		Stream: t.Stream(),
		Values: map[string]any{
			FieldKind:    string(m.Kind),
			FieldCodec:   t.codec.Name(),
			FieldSeq:     strconv.FormatUint(t.seq.Add(1), 10),
			FieldPayload: payload,
		},
	}
	if t.maxLen > 0 {
		args.MaxLen = t.maxLen
	}
	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to redis: %w", m.Kind, err)
	}
	return nil
}

// UpdateSemanticNodes implements ports.Transport.
func (t *Transport) UpdateSemanticNodes(ctx context.Context, nodes []domain.WireNode) error {
	return t.publish(ctx, codec.UpdateMessage(nodes))
}

// DeleteSemanticNodes implements ports.Transport.
func (t *Transport) DeleteSemanticNodes(ctx context.Context, ids []uint32) error {
	return t.publish(ctx, codec.DeleteMessage(ids))
}

// CommitUpdates appends the commit entry and then invokes done.
func (t *Transport) CommitUpdates(ctx context.Context, done func()) error {
	if err := t.publish(ctx, codec.CommitMessage()); err != nil {
		return err
	}
	if done != nil {
		done()
	}
	return nil
}

// SendSemanticEvent implements ports.Transport.
func (t *Transport) SendSemanticEvent(ctx context.Context, event domain.SemanticEvent) error {
	return t.publish(ctx, codec.EventMessage(event))
}

// ReadAll decodes every entry currently in the stream, oldest first.
func (t *Transport) ReadAll(ctx context.Context) ([]codec.Message, error) {
	entries, err := t.client.XRange(ctx, t.Stream(), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	out := make([]codec.Message, 0, len(entries))
	for _, e := range entries {
		c := t.codec
		if name, ok := e.Values[FieldCodec].(string); ok && name != c.Name() {
			if c, err = codec.ByName(name); err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.ID, err)
			}
		}
		raw, ok := e.Values[FieldPayload].(string)
		if !ok {
			return nil, fmt.Errorf("entry %s: %w: missing payload", e.ID, codec.ErrMalformed)
		}
		m, err := c.Unmarshal([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Close closes the redis client.
func (t *Transport) Close() error {
	return t.client.Close()
}
