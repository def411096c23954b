// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors, themes and markdown rendering shared by
the relay TUI and the line-mode CLI.

All colors are Lip Gloss AdaptiveColor values, so they follow the terminal's
light or dark background without extra detection.

# Key Types

  - Theme: every lipgloss style the TUI draws with
  - Markdown: a glamour renderer sized to the viewport

# Usage

	theme := styles.NewTheme("auto")
	header := theme.Header.Render("relay")

	md := styles.NewMarkdown("auto", 80)
	out := md.Render("# Title\n\nbody")
*/
package styles
