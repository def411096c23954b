// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSuperseded is the terminal error of a job cancelled because a newer job
// was started.
var ErrSuperseded = errors.New("superseded by a newer request")

// Meta describes what a job is doing. It is informational only.
type Meta struct {
	Provider string
	Model    string
	Prompt   string
}

// Job is one request/response exchange. Its exported methods are safe for
// concurrent use; state changes only happen through a Controller.
type Job struct {
	ID        string
	Meta      Meta
	StartedAt time.Time

	mu         sync.RWMutex
	state      State
	cancelled  bool
	superseded bool
	err        error
	finishedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newJob(meta Meta, cancel context.CancelFunc) *Job {
	if cancel == nil {
		cancel = func() {}
	}
	return &Job{
		ID:        uuid.NewString(),
		Meta:      meta,
		StartedAt: time.Now(),
		state:     StateRunning,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Cancelled reports whether cancellation was requested.
func (j *Job) Cancelled() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cancelled
}

// Superseded reports whether the job was cancelled by a newer Start.
func (j *Job) Superseded() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.superseded
}

// Err returns the terminal error, nil for Completed or live jobs.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// FinishedAt returns when the job reached a terminal state.
func (j *Job) FinishedAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt
}

// Duration returns the elapsed time, up to now for live jobs.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.finishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.finishedAt.Sub(j.StartedAt)
}

// Done is closed once the job is terminal and the controller's terminal
// hook has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job is terminal or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// The methods below are called with the controller lock held.

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) requestCancel(superseded bool) {
	j.mu.Lock()
	j.cancelled = true
	j.superseded = j.superseded || superseded
	j.state = StateCancelling
	j.mu.Unlock()

	// Flag first, then terminate the transport.
	j.cancel()
}

func (j *Job) finish(s State, err error) {
	j.mu.Lock()
	j.state = s
	j.err = err
	j.finishedAt = time.Now()
	j.mu.Unlock()
}

// markDone closes Done. It runs after the terminal hook so waiters observe
// everything the hook did.
func (j *Job) markDone() {
	close(j.done)
}
