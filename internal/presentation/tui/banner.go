package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the console banner: the assistant title on a gradient rule.
func PrintBanner(w io.Writer, title, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	colors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}
	var rule string
	for _, c := range colors {
		rule += out.String("━━━━━━").Foreground(p.Color(c)).String()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, out.String("  "+title).Bold().String())
	fmt.Fprintln(w, out.String("  courseflow "+version).Faint().String())
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}
