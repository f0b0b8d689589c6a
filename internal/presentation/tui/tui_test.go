package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/a11ybridge/internal/tree"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

func sampleNodes() []tree.Node {
	return []tree.Node{
		{ID: 0, Children: []int32{1, 2}, ScreenRect: domain.LTRB(0, 0, 100, 100)},
		{ID: 1, Focusable: true, Flags: domain.FlagIsButton, ScreenRect: domain.LTRB(0, 0, 50, 20)},
		{ID: 2, Flags: domain.FlagIsHidden, Children: []int32{0}, ScreenRect: domain.LTRB(0, 20, 50, 40)},
	}
}

func TestTreeMarkdown(t *testing.T) {
	md := TreeMarkdown("main", sampleNodes(), 2)

	assert.Contains(t, md, "# main")
	assert.Contains(t, md, "3 nodes, pixel ratio 2")
	assert.Contains(t, md, "- `0` (0, 0, 100, 100)\n")
	assert.Contains(t, md, "  - `1` (0, 0, 50, 20) **focusable**\n")
	assert.Contains(t, md, "  - `2` (0, 20, 50, 40) _(hidden)_\n")
	assert.Contains(t, md, "| 1 | is_button | yes | (0, 0, 50, 20) | - |")
	assert.Contains(t, md, "| 0 | - |  | (0, 0, 100, 100) | 1, 2 |")
}

func TestTreeMarkdown_Empty(t *testing.T) {
	md := TreeMarkdown("empty", nil, 1)
	assert.Contains(t, md, "_The tree is empty._")
	assert.NotContains(t, md, "## Outline")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer("notty")
	require.NoError(t, err)
	out, err := render(TreeMarkdown("main", sampleNodes(), 1))
	require.NoError(t, err)
	assert.Contains(t, out, "is_button")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestReportLine(t *testing.T) {
	assert.Equal(t, "cycle 2 (abc): 3 sent, 1 deleted, 0 dropped in 2 messages, root updated",
		ReportLine(2, "abc", 3, 1, 0, 2, true))
}
