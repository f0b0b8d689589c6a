package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/a11ybridge/internal/tree"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// TreeMarkdown describes a mirrored tree as markdown: an outline following
// hit-test children from the root, then a table of every node.
func TreeMarkdown(title string, nodes []tree.Node, pixelRatio float32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%d nodes, pixel ratio %g\n\n", len(nodes), pixelRatio)

	byID := make(map[int32]tree.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	if _, ok := byID[domain.RootNodeID]; ok {
		b.WriteString("## Outline\n\n")
		outline(&b, byID, domain.RootNodeID, 0, map[int32]bool{})
		b.WriteString("\n")
	}

	if len(nodes) == 0 {
		b.WriteString("_The tree is empty._\n")
		return b.String()
	}

	b.WriteString("## Nodes\n\n")
	b.WriteString("| ID | Flags | Focusable | Screen rect | Children |\n")
	b.WriteString("|---:|---|:---:|---|---|\n")
	for _, n := range nodes {
		flags := strings.Join(n.Flags.Names(), ", ")
		if flags == "" {
			flags = "-"
		}
		focusable := ""
		if n.Focusable {
			focusable = "yes"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			n.ID, flags, focusable, rect(n.ScreenRect), ids(n.Children))
	}
	return b.String()
}

func outline(b *strings.Builder, byID map[int32]tree.Node, id int32, depth int, seen map[int32]bool) {
	n, ok := byID[id]
	if !ok || seen[id] {
		return
	}
	seen[id] = true

	marker := ""
	switch {
	case n.Hidden():
		marker = " _(hidden)_"
	case n.Focusable:
		marker = " **focusable**"
	}
	fmt.Fprintf(b, "%s- `%d` %s%s\n", strings.Repeat("  ", depth), id, rect(n.ScreenRect), marker)
	for _, child := range n.Children {
		outline(b, byID, child, depth+1, seen)
	}
}

func rect(r domain.Rect) string {
	return fmt.Sprintf("(%g, %g, %g, %g)", r.Left, r.Top, r.Right, r.Bottom)
}

func ids(children []int32) string {
	if len(children) == 0 {
		return "-"
	}
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ", ")
}

// ReportLine summarizes one cycle on a single line.
func ReportLine(index int, cycleID string, sent, deleted, dropped, messages int, rootUpdated bool) string {
	root := ""
	if rootUpdated {
		root = ", root updated"
	}
	return fmt.Sprintf("cycle %d (%s): %d sent, %d deleted, %d dropped in %d messages%s",
		index, cycleID, sent, deleted, dropped, messages, root)
}
