// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jeeves/internal/util"
)

// =============================================================================
// REPORT STYLES
// =============================================================================

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	colorGood    = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	colorBad     = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	colorOverlay = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			PaddingBottom(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorOverlay).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	goodStyle   = lipgloss.NewStyle().Foreground(colorGood)
	badStyle    = lipgloss.NewStyle().Foreground(colorBad)
)

// =============================================================================
// REPORT RENDERING
// =============================================================================

// Report renders comparisons and history for a terminal of the given width.
type Report struct {
	width int
}

// NewReport creates a report renderer. Widths below 60 are raised to 60.
func NewReport(width int) *Report {
	return &Report{width: max(width, 60)}
}

// RenderComparison renders the summary box and per-provider table.
func (r *Report) RenderComparison(c *Comparison) string {
	if c == nil {
		return "No benchmark result available"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Benchmark %s", shortID(c.RunID))))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(strings.TrimRight(c.ComparisonSummary(), "\n")))
	b.WriteString("\n\n")
	b.WriteString(r.comparisonTable(c))
	return b.String()
}

func (r *Report) comparisonTable(c *Comparison) string {
	var b strings.Builder

	header := fmt.Sprintf("%-20s | %-8s | %-6s | %-9s | %-8s | %-8s | %-8s",
		"Provider", "Accuracy", "Conf", "Failures", "p50", "p90", "p99")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", r.width-4))
	b.WriteString("\n")

	best, _ := c.Best()
	for _, id := range c.Providers {
		res, ok := c.Results[id]
		if !ok {
			continue
		}
		row := fmt.Sprintf("%s | %-8s | %-6.2f | %-9s | %-8s | %-8s | %-8s",
			util.PadWidth(id, 20),
			FormatAccuracy(res.Accuracy),
			res.MeanConfidence,
			fmt.Sprintf("%d/%d", res.Failures, res.Total),
			FormatLatency(res.P50),
			FormatLatency(res.P90),
			FormatLatency(res.P99),
		)
		switch {
		case res.Total > 0 && res.Failures == res.Total:
			row = badStyle.Render(row)
		case id == best:
			row = goodStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMisses lists the samples each provider got wrong or failed.
func (r *Report) RenderMisses(c *Comparison) string {
	var b strings.Builder
	for _, id := range c.Providers {
		res := c.Results[id]
		if res == nil {
			continue
		}
		var lines []string
		for _, s := range res.Samples {
			switch {
			case s.Error != "":
				lines = append(lines, badStyle.Render(fmt.Sprintf("  [X] %s: %s", s.Name, util.TruncateWidth(s.Error, r.width-12))))
			case !s.Correct:
				lines = append(lines, fmt.Sprintf("  [?] %s: got %s, want %s (%.2f)", s.Name, s.Got, s.Expected, s.Confidence))
			}
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString(headerStyle.Render(id))
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHistory renders past runs as a table.
func (r *Report) RenderHistory(rows []HistoryRow) string {
	if len(rows) == 0 {
		return "No benchmark history"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Benchmark History"))
	b.WriteString("\n")
	header := fmt.Sprintf("%-16s | %-8s | %-20s | %-8s | %-8s | %-8s",
		"Started", "Run", "Provider", "Accuracy", "Failures", "p50")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", r.width-4))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-16s | %-8s | %s | %-8s | %-8s | %-8s\n",
			row.StartedAt.Format("2006-01-02 15:04"),
			shortID(row.RunID),
			util.PadWidth(row.ProviderID, 20),
			FormatAccuracy(row.Accuracy),
			fmt.Sprintf("%d/%d", row.Failures, row.Total),
			FormatLatency(row.P50),
		))
	}
	return b.String()
}
