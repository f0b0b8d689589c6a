package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/a11ybridge/internal/tree"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Overlay contains dynamic data to visualize on the graph.
type Overlay struct {
	// HitNodes are the results of hit tests to highlight.
	HitNodes []int32
}

// GenerateMermaid produces a Mermaid flowchart of the mirrored tree, with an
// edge for every hit-test child. It applies semantic styling:
// - Root: ((Circle))
// - Route scope: [[Subroutine]]
// - Focusable: ("Rounded")
// - Default: [Rectangle]
// Hidden nodes get the "hidden" class and overlay hits the "hit" class.
func GenerateMermaid(nodes []tree.Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	known := make(map[int32]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	var hidden []int32
	for _, n := range nodes {
		opener, closer := "[", "]"
		switch {
		case n.ID == domain.RootNodeID:
			opener, closer = "((", "))"
		case n.Flags.Has(domain.FlagScopesRoute):
			opener, closer = "[[", "]]"
		case n.Focusable:
			opener, closer = "(", ")"
		}

		label := fmt.Sprint(n.ID)
		if names := n.Flags.Names(); len(names) > 0 {
			label += " <br/> " + strings.Join(names, ", ")
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(n.ID), opener, label, closer)

		for _, child := range n.Children {
			arrow := "-->"
			if !known[child] {
				// Child announced but never sent.
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(n.ID), arrow, nodeID(child))
		}
		if n.Hidden() {
			hidden = append(hidden, n.ID)
		}
	}

	if len(hidden) > 0 || overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef hidden fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef hit fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range hidden {
			fmt.Fprintf(&sb, "    class %s hidden;\n", nodeID(id))
		}
	}
	if overlay != nil {
		seen := make(map[int32]bool)
		for _, id := range overlay.HitNodes {
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s hit;\n", nodeID(id))
			}
		}
	}

	return sb.String()
}

func nodeID(id int32) string {
	return fmt.Sprintf("n%d", id)
}
