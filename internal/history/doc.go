// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps the bounded rolling conversation log that relay
// re-injects into each new prompt.
//
// The log holds at most Limit turns (ten by default, five prompt/response
// pairs). Each prompt is followed by a response placeholder that is created
// empty before any network I/O and grows as text arrives, so a cancelled or
// failed request still leaves its partial answer behind.
//
// # Key Types
//
//   - History: mutex-protected turn log with FIFO eviction
//   - Turn: one prompt or response entry
//
// # Usage
//
//	h := history.New(history.DefaultLimit)
//	ctx := h.BuildContext()
//	h.AppendPrompt("What is 2+2?")
//	seq := h.AppendResponsePlaceholder()
//	h.AppendResponse(seq, "4")
//	h.Freeze(seq)
package history
