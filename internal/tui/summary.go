package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lensferno/imgtool/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows lays out the end-of-run counters.
func SummaryRows(s processor.Summary) []SummaryRow {
	return []SummaryRow{
		{Label: "Files found", Value: fmt.Sprintf("%d", s.Total)},
		{Label: "Processed", Value: fmt.Sprintf("%d", s.Processed)},
		{Label: "Errors", Value: fmt.Sprintf("%d", s.Errors)},
		{Label: "Bytes in", Value: FormatBytes(s.BytesIn)},
		{Label: "Bytes out", Value: FormatBytes(s.BytesOut)},
		{Label: "Space saved", Value: FormatBytes(s.BytesSaved())},
		{Label: "State", Value: s.State.String()},
	}
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}
	for _, row := range rows {
		line := fmt.Sprintf("%s | %s", labelStyle.Render(padRight(row.Label, labelWidth)), valueStyle.Render(padRight(row.Value, valueWidth)))
		lines = append(lines, line)
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderPlan prints one block per dry-run entry.
func RenderPlan(entries []processor.PlanEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("no files to process")
	}

	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		lines := []string{
			fileStyle.Render(e.Input),
			fmt.Sprintf("  %s %s", keyStyle.Render("output:"), valueStyle.Render(e.Output)),
			fmt.Sprintf("  %s %s (%s)", keyStyle.Render("op:"), valueStyle.Render(string(e.Op)), e.Format),
		}
		if !e.Natural.IsZero() {
			lines = append(lines, fmt.Sprintf("  %s %dx%d -> %s", keyStyle.Render("size:"),
				e.Natural.Width, e.Natural.Height, formatTarget(e.Target.Width, e.Target.Height)))
		}
		if e.Error != "" {
			lines = append(lines, fmt.Sprintf("  %s %s", keyStyle.Render("error:"), warnStyle.Render(e.Error)))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func formatTarget(w, h uint32) string {
	if w == 0 && h == 0 {
		return "original"
	}
	dim := func(v uint32) string {
		if v == 0 {
			return "auto"
		}
		return fmt.Sprintf("%d", v)
	}
	return dim(w) + "x" + dim(h)
}

// FormatBytes renders a byte count with a binary unit, keeping the sign.
func FormatBytes(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", sign, float64(n)/float64(div), "KMGTPE"[exp])
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	fileStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	keyStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
