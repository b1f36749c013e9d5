package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"optimg/internal/transcoder"
)

// FormatEvent renders one finished job as a single console line.
func FormatEvent(ev transcoder.FileEvent) string {
	switch ev.Status {
	case transcoder.StatusSucceeded:
		return fmt.Sprintf("%s %s %s %s %s",
			okStyle.Render("✓"),
			pathStyle.Render(ev.RelPath),
			arrowStyle.Render("→"),
			pathStyle.Render(ev.OutRel),
			detailStyle.Render("("+ev.Message+")"),
		)
	case transcoder.StatusSkipped:
		return fmt.Sprintf("%s %s %s", skipStyle.Render("-"), pathStyle.Render(ev.RelPath), detailStyle.Render(ev.Message))
	default:
		return fmt.Sprintf("%s %s: %s", failStyle.Render("✗"), pathStyle.Render(ev.RelPath), failStyle.Render(ev.Message))
	}
}

// PrintEvents writes one line per event until updates is closed. Failures go
// to errOut, everything else to out.
func PrintEvents(out, errOut io.Writer, updates <-chan transcoder.ProgressUpdate) {
	for u := range updates {
		if u.Event == nil {
			continue
		}
		w := out
		if u.Event.Status == transcoder.StatusFailed {
			w = errOut
		}
		fmt.Fprintln(w, FormatEvent(*u.Event))
	}
}

// HumanBytes formats n with a binary unit; negative values keep their sign.
func HumanBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

var (
	okStyle     = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	skipStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	pathStyle   = lipgloss.NewStyle().Foreground(ColorInk)
	arrowStyle  = lipgloss.NewStyle().Foreground(ColorAccent)
	detailStyle = lipgloss.NewStyle().Foreground(ColorDim)
)
