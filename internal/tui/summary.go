package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"optimg/internal/transcoder"
)

type SummaryRow struct {
	Label string
	Value string
}

// ReportRows is the summary table shown after a batch.
func ReportRows(r *transcoder.Report) []SummaryRow {
	return []SummaryRow{
		{Label: "Images discovered", Value: fmt.Sprintf("%d", r.Discovered)},
		{Label: "Converted", Value: fmt.Sprintf("%d", r.Succeeded)},
		{Label: "Failed", Value: fmt.Sprintf("%d", r.Failed)},
		{Label: "Skipped", Value: fmt.Sprintf("%d", r.Skipped)},
		{Label: "Metadata dropped", Value: fmt.Sprintf("%d", r.MetadataDropped)},
		{Label: "Space saved", Value: HumanBytes(r.BytesSaved())},
	}
}

// RenderFailures lists every failure under a heading; empty when none.
func RenderFailures(r *transcoder.Report) string {
	if len(r.Failures) == 0 {
		return ""
	}
	lines := []string{failStyle.Render(fmt.Sprintf("Failures (%d):", len(r.Failures)))}
	for _, f := range r.Failures {
		lines = append(lines, fmt.Sprintf("  %s %s: %s", dimStyle.Render("-"), pathStyle.Render(f.RelPath), f.Error))
	}
	return strings.Join(lines, "\n")
}

// RenderSummary draws rows as a two-column bordered table.
func RenderSummary(rows []SummaryRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return summaryLabelStyle
			}
			return summaryValueStyle
		})
	for _, row := range rows {
		t.Row(row.Label, row.Value)
	}
	return t.String()
}

var (
	summaryLabelStyle = lipgloss.NewStyle().Foreground(ColorInk).Padding(0, 1)
	summaryValueStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Padding(0, 1).Align(lipgloss.Right)
)
