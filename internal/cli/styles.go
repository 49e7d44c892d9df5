// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfigureColors applies the detected color profile to lipgloss. The
// command root calls it once before any output.
func ConfigureColors() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// SectionStyle is used for section headers within a command
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(18)

	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// quadrantStyles color a classification by urgency.
var quadrantStyles = map[string]lipgloss.Style{
	"DO_FIRST":  ErrorStyle,
	"SCHEDULE":  SuccessStyle,
	"DELEGATE":  WarningStyle,
	"ELIMINATE": DimStyle,
}

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule of the given width (default 60).
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return SeparatorStyle.Render(strings.Repeat("=", width))
}

// RenderStatus renders "[OK]", "[FAIL]" or "[WARN]" for a status word.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "ready", "loaded":
		return SuccessStyle.Render("[OK]")
	case "error", "fail", "failed", "unavailable":
		return ErrorStyle.Render("[FAIL]")
	case "warn", "warning", "stub":
		return WarningStyle.Render("[WARN]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}

// RenderField renders one "label  value" line.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}
