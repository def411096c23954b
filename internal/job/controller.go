// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package job

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// ResolveFunc decides the terminal state of a job whose transport exited.
// It runs under the controller lock and receives the cancellation flag.
type ResolveFunc func(cancelled bool) (State, error)

// Controller enforces the one-live-job rule.
type Controller struct {
	mu         sync.Mutex
	current    *Job
	onTerminal func(*Job)
	logger     *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for lifecycle transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnTerminal registers a hook fired once per job after it reaches a
// terminal state. The hook runs outside the controller lock and before the
// job's Done channel closes.
func WithOnTerminal(fn func(*Job)) Option {
	return func(c *Controller) {
		c.onTerminal = fn
	}
}

// NewController creates an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates a new Running job. A live prior job is cancelled and moved
// to Cancelled before the new job exists; it is returned as superseded.
// cancel terminates the new job's transport.
func (c *Controller) Start(meta Meta, cancel context.CancelFunc) (started, superseded *Job) {
	c.mu.Lock()
	if prev := c.current; prev != nil && !prev.State().IsTerminal() {
		prev.requestCancel(true)
		prev.finish(StateCancelled, ErrSuperseded)
		superseded = prev
	}
	started = newJob(meta, cancel)
	c.current = started
	c.mu.Unlock()

	if superseded != nil {
		c.logger.Debug("job superseded", "job", superseded.ID, "by", started.ID)
		c.fireTerminal(superseded)
		superseded.markDone()
	}
	c.logger.Debug("job started", "job", started.ID, "provider", meta.Provider, "model", meta.Model)
	return started, superseded
}

// Cancel requests cancellation of the current job. It returns false when
// there is nothing to cancel: no job, a terminal job, or one already
// cancelling.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked(c.current)
}

// CancelJob cancels j only if it is still the current job, so a stale
// trigger can never cancel a newer request.
func (c *Controller) CancelJob(j *Job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j != c.current {
		return false
	}
	return c.cancelLocked(j)
}

func (c *Controller) cancelLocked(j *Job) bool {
	if j == nil || j.State() != StateRunning {
		return false
	}
	j.requestCancel(false)
	c.logger.Debug("job cancelling", "job", j.ID)
	return true
}

// Dispatch runs fn under the controller lock if j is the current job and is
// still Running. Lines that arrive after cancellation or supersession are
// dropped. It reports whether fn ran.
func (c *Controller) Dispatch(j *Job, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if j != c.current || j.State() != StateRunning {
		return false
	}
	fn()
	return true
}

// Finish moves j to the state chosen by resolve. It is a no-op, returning
// false, if j is already terminal.
func (c *Controller) Finish(j *Job, resolve ResolveFunc) bool {
	c.mu.Lock()
	if j.State().IsTerminal() {
		c.mu.Unlock()
		return false
	}

	state, err := resolve(j.Cancelled())
	if !state.IsTerminal() {
		state = StateCompleted
		if err != nil {
			state = StateFailed
		}
	}
	j.finish(state, err)
	c.mu.Unlock()

	c.logger.Debug("job finished", "job", j.ID, "state", state.String(), "error", err)
	c.fireTerminal(j)
	j.markDone()
	return true
}

func (c *Controller) fireTerminal(j *Job) {
	if c.onTerminal != nil {
		c.onTerminal(j)
	}
}

// Current returns the most recent job, which may be terminal, or nil.
func (c *Controller) Current() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the controller state: the current job's state while it is
// live, Idle otherwise.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.State().IsTerminal() {
		return StateIdle
	}
	return c.current.State()
}
