// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/util"
)

// Layout rows outside the viewport: header, bordered input, status bar.
const (
	headerRows = 1
	inputRows  = 3
	statusRows = 1
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	vpHeight := height - headerRows - inputRows - statusRows
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight

	// Border and padding take two columns each side, the prompt two more.
	m.input.Width = width - 6
	if m.input.Width < 10 {
		m.input.Width = 10
	}
	if m.md != nil {
		m.md.SetWidth(width - 2)
		for i := range m.entries {
			m.entries[i].rendered = ""
		}
	}
}

// refresh re-renders the transcript into the viewport, following the tail
// unless the user scrolled away from it.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) contentWidth() int {
	if m.width <= 4 {
		return 76
	}
	return m.width - 2
}

func (m *Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return m.theme.Notice.Render("Type a message and press Enter. /help lists commands.")
	}
	blocks := make([]string, 0, len(m.entries))
	for i := range m.entries {
		blocks = append(blocks, m.renderEntry(&m.entries[i]))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderEntry(e *Entry) string {
	wrap := lipgloss.NewStyle().Width(m.contentWidth())
	switch e.Role {
	case RoleUser:
		return m.theme.UserLabel.Render("You") + "\n" + wrap.Render(m.theme.UserText.Render(e.Content))

	case RoleNotice:
		return wrap.Render(m.theme.Notice.Render(e.Content))

	case RoleError:
		return wrap.Render(m.theme.Error.Render("Error: " + e.Content))
	}

	label := m.theme.AssistantLabel.Render("Assistant")
	if e.Streaming {
		body := wrap.Render(m.theme.AssistantText.Render(e.Content))
		return label + " " + m.spinner.View() + "\n" + body
	}

	var b strings.Builder
	b.WriteString(label)
	if e.Result.Duration > 0 {
		b.WriteString(" ")
		b.WriteString(m.theme.Notice.Render(formatResult(e)))
	}
	b.WriteString("\n")
	if e.Content != "" {
		b.WriteString(m.renderBody(e, wrap))
	}

	switch e.State {
	case job.StateCancelled:
		if e.Content != "" {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.Cancelled.Render("[Cancelled]"))
	case job.StateFailed:
		if e.Content != "" {
			b.WriteString("\n")
		}
		msg := "request failed"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		b.WriteString(wrap.Render(m.theme.Error.Render("Error: " + msg)))
	}
	return b.String()
}

// renderBody renders a finished response as markdown when a renderer is
// configured, caching the output on the entry.
func (m *Model) renderBody(e *Entry, wrap lipgloss.Style) string {
	if m.md == nil || e.State != job.StateCompleted {
		return wrap.Render(m.theme.AssistantText.Render(e.Content))
	}
	if e.rendered == "" {
		e.rendered = m.md.Render(e.Content)
	}
	return e.rendered
}

func formatResult(e *Entry) string {
	r := e.Result
	return fmt.Sprintf("%s, ~%s tokens, %s", r.Provider, util.FormatCount(r.ResponseTokens), util.FormatDuration(r.Duration))
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.theme.InputBorder.Width(m.width-2).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	pc := m.backend.ProviderConfig()
	title := m.theme.HeaderTitle.Render("relay")
	room := m.width - util.StringWidth(pc.Kind.String()) - 16
	if room < 8 {
		room = 8
	}
	info := m.theme.HeaderInfo.Render(util.TruncateWidth(modelOrDefault(pc.Model), room))
	left := title + " " + m.theme.ProviderBadge(pc.Kind.String()) + " " + info
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(left)
}

func (m Model) renderStatusBar() string {
	var state string
	if m.Streaming() {
		state = m.theme.StatusState.Render(m.spinner.View() + " streaming")
	} else {
		state = m.theme.StatusState.Render("ready")
	}

	parts := []string{state, fmt.Sprintf("ctx ~%d tok", m.backend.ContextTokens())}
	if m.status != "" {
		style := m.theme.Notice
		if m.statusError {
			style = m.theme.Error
		}
		parts = append(parts, style.Render(m.status))
	} else {
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			parts = append(parts, m.theme.Shortcut(h.Key, h.Desc))
		}
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
