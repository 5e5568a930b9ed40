package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorHeader = color.New(color.Bold)
	colorGood   = color.New(color.FgGreen)
	colorWarn   = color.New(color.FgYellow)
	colorBad    = color.New(color.FgRed, color.Bold)
	colorMuted  = color.New(color.FgWhite, color.Faint)
)

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

func header(w io.Writer, format string, args ...any) {
	colorHeader.Fprintf(w, format+"\n", args...)
}

func muted(w io.Writer, format string, args ...any) {
	colorMuted.Fprintf(w, format+"\n", args...)
}

// staffingColor grades a staffing percentage.
func staffingColor(pct float64) *color.Color {
	switch {
	case pct >= 100:
		return colorGood
	case pct >= 50:
		return colorWarn
	default:
		return colorBad
	}
}

func percent(pct float64) string {
	return staffingColor(pct).Sprintf("%.1f%%", pct)
}

func countLine(w io.Writer, label string, n int, c *color.Color) {
	fmt.Fprintf(w, "  %-32s %s\n", label, c.Sprint(n))
}
