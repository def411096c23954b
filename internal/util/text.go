// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// INPUT NORMALIZATION
// =============================================================================

// NormalizePrompt converts s to NFC, turns CRLF into LF, drops control
// characters other than newline and tab, and trims surrounding whitespace.
// Pasted text from some terminals arrives decomposed or with stray escapes.
func NormalizePrompt(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// =============================================================================
// DISPLAY WIDTH
// =============================================================================

// StringWidth returns the number of terminal cells s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// TruncateWidth shortens s to at most maxWidth cells, ending with "..." when
// something was cut. Wide CJK runes and emoji count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadWidth right-pads s with spaces to width cells.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// OneLine collapses whitespace runs, including newlines, to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatDuration renders d compactly: "850ms", "4.2s", "3m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}

// FormatCount renders n with a k/M suffix above one thousand.
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
