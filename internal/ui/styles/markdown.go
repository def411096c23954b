// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders model output for the terminal. A nil or failed renderer
// falls back to the raw text.
type Markdown struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	mode     string
	width    int
}

// NewMarkdown creates a renderer wrapping at width.
func NewMarkdown(mode string, width int) *Markdown {
	m := &Markdown{mode: strings.ToLower(mode)}
	m.SetWidth(width)
	return m
}

// SetWidth rebuilds the renderer when the wrap width changes.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width

	style := glamour.WithAutoStyle()
	switch m.mode {
	case "dark", "light":
		style = glamour.WithStandardStyle(m.mode)
	case "notty", "ascii":
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// Width returns the wrap width.
func (m *Markdown) Width() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width
}

// Render returns styled output, or content unchanged on failure.
func (m *Markdown) Render(content string) string {
	if m == nil || strings.TrimSpace(content) == "" {
		return content
	}
	m.mu.Lock()
	r := m.renderer
	m.mu.Unlock()
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
