package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/config"
	"github.com/aretw0/a11ybridge/internal/fixture"
	"github.com/aretw0/a11ybridge/internal/presentation/tui"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FIXTURE",
		Short: "Replay recorded update cycles against the configured transport",
		Long: `Loads a fixture of recorded update cycles (YAML or JSON) and runs each one
through a fresh bridge, printing a summary line per cycle.

With --watch the fixture is replayed again whenever the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}
	cmd.Flags().Bool("watch", false, "Replay again whenever the fixture changes")
	cmd.Flags().Bool("tree", false, "Print the mirrored tree after the last cycle")
	cmd.Flags().String("style", "", "Markdown style for --tree (auto, dark, light, notty)")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := args[0]
	watch, _ := cmd.Flags().GetBool("watch")
	showTree, _ := cmd.Flags().GetBool("tree")
	style, _ := cmd.Flags().GetString("style")
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replay := func() error {
		f, err := fixture.Load(path)
		if err != nil {
			return err
		}
		bridge, handle, err := replayFixture(ctx, cfg, logger, f, out)
		if err != nil {
			return err
		}
		defer handle.Close()
		if showTree {
			return printTree(out, f.Name, bridge, style)
		}
		return nil
	}

	if !watch {
		return replay()
	}

	changes, err := fixture.Watch(ctx, path, fixture.DefaultDebounce, logger)
	if err != nil {
		return err
	}
	for {
		if err := replay(); err != nil {
			// Keep watching so the next save can fix the fixture.
			fmt.Fprintf(out, "replay failed: %v\n", err)
		}
		fmt.Fprintln(out, "waiting for changes...")
		if _, ok := <-changes; !ok {
			return nil
		}
		fmt.Fprintf(out, "\nchange detected in %s\n", path)
	}
}

// replayFixture runs every cycle of f through a new bridge and prints one
// line per cycle. Cycle errors are printed, not returned. The caller closes
// the returned transport.
func replayFixture(ctx context.Context, cfg config.Config, logger *slog.Logger, f fixture.Fixture, out io.Writer) (*a11ybridge.Bridge, *transportHandle, error) {
	handle, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	bridge := newBridge(cfg, handle, logger)

	fmt.Fprintf(out, "replaying %q: %d cycles via %s\n", f.Name, len(f.Cycles), cfg.Transport.Kind)
	for i, c := range f.Cycles {
		updates, ratio, err := c.Updates()
		if err != nil {
			_ = handle.Close()
			return nil, nil, fmt.Errorf("cycle %d: %w", i+1, err)
		}
		report, err := bridge.Update(ctx, updates, ratio)
		fmt.Fprintln(out, tui.ReportLine(i+1, report.CycleID, len(report.Sent), len(report.Deleted),
			len(report.Dropped), report.Messages, report.RootUpdated))
		if err != nil {
			for _, e := range unjoin(err) {
				fmt.Fprintf(out, "  error: %v\n", e)
			}
		}
	}
	return bridge, handle, nil
}

func printTree(out io.Writer, title string, bridge *a11ybridge.Bridge, style string) error {
	if style == "auto" {
		style = ""
	}
	render, err := tui.NewRenderer(style)
	if err != nil {
		return err
	}
	rendered, err := render(tui.TreeMarkdown(title, bridge.Snapshot(), bridge.PixelRatio()))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func unjoin(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
