// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	CommandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)
)

// StateStyle colors a job state label.
func StateStyle(s job.State) lipgloss.Style {
	switch s {
	case job.StateCompleted:
		return SuccessStyle
	case job.StateFailed:
		return ErrorStyle
	case job.StateCancelled, job.StateCancelling:
		return WarningStyle
	default:
		return DimStyle
	}
}

// formatKeyValue renders an aligned "label value" row.
func formatKeyValue(label string, value interface{}) string {
	return LabelStyle.Render(label) + ValueStyle.Render(fmtValue(value))
}
