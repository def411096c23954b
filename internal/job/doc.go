// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package job tracks the lifecycle of streaming requests.
//
// A Controller owns at most one non-terminal Job at a time. Starting a new
// job while another is live cancels the old one synchronously, so the old job
// is already Cancelled when the new one enters Running. Any late callbacks
// from the superseded job are rejected by Dispatch and Finish.
//
// The controller's mutex is the single serialization point for the current
// job, its cancellation flag, delta dispatch and the terminal decision. Cancel
// sets the flag before it terminates the transport, so the exit path can tell
// a cancellation from a genuine transport failure.
//
// # States
//
//	Idle -> Running -> Cancelling -> Cancelled
//	                -> Completed
//	                -> Failed
package job
