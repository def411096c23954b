// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/relay/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// DeltaMsg carries one text delta from the client's sink.
type DeltaMsg struct {
	Text string
}

// FinishedMsg reports a job's terminal result. It follows the job's last
// DeltaMsg.
type FinishedMsg struct {
	Result stream.Result
}

// StreamTickMsg renders output held back by the throttle.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text  string
	Error bool
}

// clearStatusMsg expires a StatusMsg.
type clearStatusMsg struct {
	seq int
}
