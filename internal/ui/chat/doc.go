// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the relay TUI: a scrolling transcript, an input line
and a status bar, built on Bubble Tea.

Deltas reach the program through ProgramSink, which the streaming client
drives from its sink goroutine. Each finished job is announced with a
FinishedMsg that arrives after its last DeltaMsg, so the model attributes
deltas to the oldest job that has not yet finished.

# Key Components

## Model (model.go)

Owns the transcript entries, the in-flight queue and the viewport, input and
spinner components.

## Update Loop (update.go)

  - Enter submits, or runs a slash command
  - Esc cancels the running response
  - Ctrl+L clears the conversation
  - Ctrl+C quits

## Streaming (streaming.go)

A rate limiter caps viewport re-renders while deltas arrive. Skipped frames
are caught up by a tick.

# Usage

	sink := chat.NewProgramSink()
	// build the backend with sink as its output and sink.Finished as its
	// finish hook
	m := chat.New(backend, chat.Options{Theme: styles.NewTheme("auto")})
	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.Attach(p)
	_, err := p.Run()
*/
package chat
