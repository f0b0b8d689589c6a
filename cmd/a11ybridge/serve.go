package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/presentation/tui"
	httpAdapter "github.com/aretw0/a11ybridge/pkg/adapters/http"
	redisAdapter "github.com/aretw0/a11ybridge/pkg/adapters/redis"
	"github.com/aretw0/a11ybridge/pkg/observability"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge daemon with its HTTP API",
		Long: `Starts a bridge for one tree and exposes it over HTTP: framework updates are
posted to /v1/updates and synced to the configured transport, remote actions
and hit tests are routed back, and /metrics serves Prometheus metrics.

With the redis transport the daemon first takes the tree's ownership lock, so
only one replica publishes a given tree at a time.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Override the HTTP listen address")
	cmd.Flags().Duration("lock-wait", 30*time.Second, "How long to wait for the tree ownership lock (redis only)")
	cmd.Flags().Bool("banner", true, "Print the banner on startup")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	// Handlers log through the default logger.
	slog.SetDefault(logger)

	if banner, _ := cmd.Flags().GetBool("banner"); banner {
		tui.PrintBanner(cmd.ErrOrStderr(), a11ybridge.Version)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer handle.Close()

	g, ctx := errgroup.WithContext(ctx)

	if handle.Redis != nil {
		locker := redisAdapter.NewLocker(handle.Redis.Client(), cfg.Redis.Prefix)
		wait, _ := cmd.Flags().GetDuration("lock-wait")

		lockCtx, cancel := context.WithTimeout(ctx, wait)
		unlock, err := locker.Lock(lockCtx, cfg.Tree, cfg.Redis.LockTTL)
		cancel()
		if err != nil {
			return fmt.Errorf("tree %q is owned by another bridge: %w", cfg.Tree, err)
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				logger.Warn("failed to release tree lock", "tree", cfg.Tree, "error", err)
			}
		}()
		logger.Info("tree ownership acquired", "tree", cfg.Tree, "ttl", cfg.Redis.LockTTL)

		g.Go(func() error {
			if err := locker.Keepalive(ctx, cfg.Tree, cfg.Redis.LockTTL); err != nil {
				return fmt.Errorf("tree %q: %w", cfg.Tree, err)
			}
			return nil
		})
	}

	if handle.WebSocket != nil {
		g.Go(func() error {
			select {
			case <-handle.WebSocket.Done():
				return fmt.Errorf("remote service at %s closed the connection", cfg.WebSocket.URL)
			case <-ctx.Done():
				return nil
			}
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg, cfg.Tree)
	if err != nil {
		return err
	}
	recorder := observability.NewRecorder(observability.DefaultHistory)
	streams := httpAdapter.NewStreamManager()

	bridge := newBridge(cfg, handle, logger, metrics.Hooks(), recorder.Hooks(), streams.Hooks())

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpAdapter.NewHandler(bridge,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithRecorder(recorder),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithName(cfg.Tree),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("bridge listening", "addr", srv.Addr, "tree", cfg.Tree, "transport", cfg.Transport.Kind)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	})

	return g.Wait()
}
