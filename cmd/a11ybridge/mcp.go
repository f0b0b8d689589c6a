package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/a11ybridge/internal/fixture"
	"github.com/aretw0/a11ybridge/pkg/adapters/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Starts a bridge as an MCP Server.
This allows AI agents to inspect the accessibility tree, hit test and request
actions the way an assistive technology would.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: runMCP,
	}
	cmd.Flags().String("protocol", "stdio", "MCP transport to use: 'stdio' or 'sse'")
	cmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	cmd.Flags().String("fixture", "", "Preload the tree from a fixture")
	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer handle.Close()
	bridge := newBridge(cfg, handle, logger)

	if path, _ := cmd.Flags().GetString("fixture"); path != "" {
		f, err := fixture.Load(path)
		if err != nil {
			return err
		}
		for i, c := range f.Cycles {
			updates, ratio, err := c.Updates()
			if err != nil {
				return fmt.Errorf("cycle %d: %w", i+1, err)
			}
			if _, err := bridge.Update(ctx, updates, ratio); err != nil {
				logger.Warn("fixture cycle completed with errors", "cycle", i+1, "error", err)
			}
		}
		logger.Info("fixture preloaded", "fixture", f.Name, "cycles", len(f.Cycles))
	}

	srv := mcp.NewServer(bridge)

	protocol, _ := cmd.Flags().GetString("protocol")
	switch protocol {
	case "stdio":
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.Info("Starting a11ybridge MCP Server (Stdio)...")
		return srv.ServeStdio()
	case "sse":
		addr, _ := cmd.Flags().GetString("addr")
		slog.Info("Starting a11ybridge MCP Server (SSE)", "addr", addr)
		if err := srv.ServeSSE(ctx, addr, "http://localhost"+addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("MCP Server stopped gracefully")
		return nil
	}
	return fmt.Errorf("unknown protocol: %s. Supported: stdio, sse", protocol)
}

