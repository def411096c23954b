// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithSink delivers deltas to s through a Pump.
func WithSink(s Sink) Option {
	return func(c *Client) {
		c.sink = s
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHistoryLimit bounds the conversation log to k turns.
func WithHistoryLimit(k int) Option {
	return func(c *Client) {
		c.historyLimit = k
	}
}

// WithRequestTimeout caps the total duration of each job. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithMaxRawBytes caps how much raw response text is retained per job for
// error classification.
func WithMaxRawBytes(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRawBytes = n
		}
	}
}

// WithOnFinish registers a callback fired once per job after it reaches a
// terminal state. With a Sink configured, it runs on the delivery goroutine
// after the job's last delta. The callback must not call Send.
func WithOnFinish(fn func(Result)) Option {
	return func(c *Client) {
		c.onFinish = fn
	}
}
