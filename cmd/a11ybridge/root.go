package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/a11ybridge/internal/config"
	"github.com/aretw0/a11ybridge/internal/logging"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "a11ybridge",
		Short:         "a11ybridge syncs a semantics tree to a remote accessibility service",
		Long:          `a11ybridge mirrors a UI framework's semantics tree, streams it to a remote accessibility service in size-bounded batches and routes remote actions and hit tests back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	cmd.PersistentFlags().String("config", "a11ybridge.yaml", "Path to the YAML or JSON configuration file")
	cmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Override the log format (text, json)")
	cmd.PersistentFlags().String("transport", "", "Override the transport kind (memory, redis, websocket)")
	cmd.PersistentFlags().String("codec", "", "Override the wire codec (msgpack, protobuf)")

	cmd.AddCommand(newServeCmd(), newReplayCmd(), newInspectCmd(), newMCPCmd(), newVersionCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
		{"transport", &cfg.Transport.Kind},
		{"codec", &cfg.Transport.Codec},
	}
	for _, o := range overrides {
		if v, _ := cmd.Flags().GetString(o.flag); v != "" {
			*o.target = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(level, cfg.Log.Format), nil
}
