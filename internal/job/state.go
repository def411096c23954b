// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package job

// State is a job lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelling
	StateCancelled
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateRunning:    "running",
	StateCancelling: "cancelling",
	StateCancelled:  "cancelled",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether s is Cancelled, Completed or Failed.
func (s State) IsTerminal() bool {
	return s == StateCancelled || s == StateCompleted || s == StateFailed
}

// IsLive reports whether s is Running or Cancelling.
func (s State) IsLive() bool {
	return s == StateRunning || s == StateCancelling
}
