package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/config"
	"github.com/aretw0/a11ybridge/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/a11ybridge/pkg/adapters/redis"
	wsAdapter "github.com/aretw0/a11ybridge/pkg/adapters/websocket"
	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
)

// transportHandle is an opened transport plus the concrete adapter when the
// caller needs adapter-specific features.
type transportHandle struct {
	ports.Transport
	Memory    *memory.Transport
	Redis     *redisAdapter.Transport
	WebSocket *wsAdapter.Transport
	close     func() error
}

func (h *transportHandle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// openTransport builds the transport named by the configuration.
func openTransport(ctx context.Context, cfg config.Config, logger *slog.Logger) (*transportHandle, error) {
	c, err := codec.ByName(cfg.Transport.Codec)
	if err != nil {
		return nil, err
	}

	switch cfg.Transport.Kind {
	case config.TransportMemory:
		t := memory.New(memory.WithHistory(cfg.Memory.History))
		return &transportHandle{Transport: t, Memory: t}, nil

	case config.TransportRedis:
		t := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithPrefix(cfg.Redis.Prefix+"tree:"),
			redisAdapter.WithTree(cfg.Tree),
			redisAdapter.WithCodec(c),
			redisAdapter.WithMaxLen(cfg.Redis.MaxLen),
		)
		if err := t.Client().Ping(ctx).Err(); err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Redis.Addr, err)
		}
		logger.Info("publishing to redis stream", "stream", t.Stream(), "codec", c.Name())
		return &transportHandle{Transport: t, Redis: t, close: t.Close}, nil

	case config.TransportWebSocket:
		t, err := wsAdapter.Dial(ctx, cfg.WebSocket.URL,
			wsAdapter.WithCodec(c),
			wsAdapter.WithWriteTimeout(cfg.WebSocket.WriteTimeout),
			wsAdapter.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to remote service", "url", cfg.WebSocket.URL, "codec", c.Name())
		return &transportHandle{Transport: t, WebSocket: t, close: t.Close}, nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
}

// newBridge creates a Bridge from the configuration. Without a framework on
// the other side, dispatched actions and mode changes are only logged.
func newBridge(cfg config.Config, transport ports.Transport, logger *slog.Logger, hooks ...domain.SyncHooks) *a11ybridge.Bridge {
	opts := []a11ybridge.Option{
		a11ybridge.WithName(cfg.Tree),
		a11ybridge.WithLogger(logger),
		a11ybridge.WithMaxMessageSize(cfg.Limits.MaxMessageSize),
		a11ybridge.WithStringLimits(cfg.Limits.MaxLabelSize, cfg.Limits.MaxValueSize),
		a11ybridge.WithDelegate(ports.DelegateFuncs{
			Dispatch: func(id int32, action domain.SemanticsAction) {
				logger.Info("framework action dispatched", "node_id", id, "action", action.String())
			},
			SetEnabled: func(enabled bool) {
				logger.Info("framework semantics toggled", "enabled", enabled)
			},
		}),
	}
	for _, h := range hooks {
		opts = append(opts, a11ybridge.WithHooks(h))
	}
	return a11ybridge.New(transport, opts...)
}
