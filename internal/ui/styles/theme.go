// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the TUI.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	Notice         lipgloss.Style
	Error          lipgloss.Style
	Cancelled      lipgloss.Style

	InputBorder lipgloss.Style
	Spinner     lipgloss.Style

	StatusBar    lipgloss.Style
	StatusState  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme builds a theme. mode is "dark", "light" or "auto".
func NewTheme(mode string) *Theme {
	t := &Theme{ColorProfile: lipgloss.ColorProfile()}
	switch strings.ToLower(mode) {
	case "dark":
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.IsDark = lipgloss.HasDarkBackground()
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.AssistantText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Notice = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Cancelled = lipgloss.NewStyle().Foreground(Amber)

	t.InputBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusState = lipgloss.NewStyle().Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	return t
}

// ProviderBadge renders a provider name in its color.
func (t *Theme) ProviderBadge(name string) string {
	return lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(ProviderColor(name)).
		Padding(0, 1).
		Render(name)
}

// Shortcut renders "key desc".
func (t *Theme) Shortcut(key, desc string) string {
	return t.ShortcutKey.Render(key) + " " + t.ShortcutDesc.Render(desc)
}

// =============================================================================
// SPINNER
// =============================================================================

// SpinnerFrames is an ASCII spinner that renders on any terminal.
var SpinnerFrames = []string{"|", "/", "-", "\\"}

// SpinnerFPS is the spinner frame rate.
const SpinnerFPS = 10
