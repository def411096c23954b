// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by relay's packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - NormalizePrompt: canonical Unicode form for user input
//   - TruncateWidth / PadWidth: terminal-cell aware string fitting
//   - FormatDuration / FormatCount: compact human-readable figures
package util
