package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/a11ybridge/internal/config"
	"github.com/aretw0/a11ybridge/internal/fixture"
	"github.com/aretw0/a11ybridge/internal/presentation/graph"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FIXTURE",
		Short: "Show the tree a fixture produces",
		Long: `Runs a fixture through an in-memory bridge and prints the resulting tree.
--format selects the output: "markdown" renders the local mirror, "mermaid"
emits it as a flowchart and "wire" prints the remote tree as JSON. --hit adds
hit test results for the given points.`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}
	cmd.Flags().String("format", "markdown", "Output format: markdown, mermaid or wire")
	cmd.Flags().StringArray("hit", nil, "Hit test the given points, e.g. --hit 10,20 --hit 5,5")
	cmd.Flags().String("style", "", "Markdown style (auto, dark, light, notty)")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Transport.Kind = config.TransportMemory

	f, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	bridge, handle, err := replayFixture(cmd.Context(), cfg, logger, f, io.Discard)
	if err != nil {
		return err
	}
	defer handle.Close()

	points, _ := cmd.Flags().GetStringArray("hit")
	hits := make([]int32, 0, len(points))
	var lines []string
	for _, p := range points {
		x, y, err := parsePoint(p)
		if err != nil {
			return err
		}
		id := bridge.HitTest(x, y)
		hits = append(hits, int32(id))
		lines = append(lines, fmt.Sprintf("hit (%g, %g) -> node %d", x, y, id))
	}

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "markdown":
		style, _ := cmd.Flags().GetString("style")
		if err := printTree(out, f.Name, bridge, style); err != nil {
			return err
		}
	case "mermaid":
		fmt.Fprint(out, graph.GenerateMermaid(bridge.Snapshot(), &graph.Overlay{HitNodes: hits}))
	case "wire":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(handle.Memory.Tree()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

func parsePoint(p string) (float32, float32, error) {
	xs, ys, ok := strings.Cut(p, ",")
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if !ok || errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("invalid point %q: want x,y", p)
	}
	return float32(x), float32(y), nil
}
