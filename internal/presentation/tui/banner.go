package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the a11ybridge banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	// Teal to blue, one shade per row
	lines := []struct{ text, color string }{
		{"        _ _       _          _     _            ", "#2dd4bf"},
		{"   __ _/ / |_   _| |__  _ __(_) __| | __ _  ___ ", "#22d3ee"},
		{"  / _` | | | | | | '_ \\| '__| |/ _` |/ _` |/ _ \\", "#38bdf8"},
		{" | (_| | | | |_| | |_) | |  | | (_| | (_| |  __/", "#60a5fa"},
		{"  \\__,_|_|_|\\__, |_.__/|_|  |_|\\__,_|\\__, |\\___|", "#818cf8"},
		{"            |___/                    |___/      ", "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
