// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderColor(t *testing.T) {
	assert.Equal(t, Amber, ProviderColor("anthropic"))
	assert.Equal(t, Purple, ProviderColor("ollama"))
	assert.Equal(t, TextSecondary, ProviderColor("nope"))
}

func TestThemeModes(t *testing.T) {
	assert.True(t, NewTheme("dark").IsDark)
	assert.False(t, NewTheme("light").IsDark)
}

func TestThemeBadgeContainsName(t *testing.T) {
	theme := NewTheme("dark")
	assert.Contains(t, theme.ProviderBadge("gemini"), "gemini")
	assert.Contains(t, theme.Shortcut("esc", "cancel"), "cancel")
}

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown("notty", 60)
	out := md.Render("# Heading\n\nSome **bold** text.")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "bold")
}

func TestMarkdownFallbacks(t *testing.T) {
	var nilMD *Markdown
	assert.Equal(t, "raw", nilMD.Render("raw"))

	md := NewMarkdown("notty", 5)
	assert.Equal(t, 20, md.Width())
	assert.Equal(t, "   ", md.Render("   "))
}
