// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// DefaultMaxFPS caps transcript re-renders while streaming.
const DefaultMaxFPS = 30

// renderThrottle decides when a delta triggers a viewport re-render. Deltas
// can arrive far faster than a terminal redraws, and re-rendering the whole
// transcript per delta wastes CPU and flickers. A skipped render leaves the
// throttle dirty and schedules one tick to catch up.
//
// Used as a pointer so Bubble Tea's value copies share one limiter.
type renderThrottle struct {
	limiter     *rate.Limiter
	interval    time.Duration
	dirty       bool
	tickPending bool
}

func newRenderThrottle(fps int) *renderThrottle {
	if fps <= 0 || fps > 120 {
		fps = DefaultMaxFPS
	}
	return &renderThrottle{
		limiter:  rate.NewLimiter(rate.Limit(fps), 1),
		interval: time.Second / time.Duration(fps),
	}
}

// Allow reports whether to render now. When it returns false with a cmd,
// the caller must return that cmd so the held-back output is drawn.
func (t *renderThrottle) Allow() (bool, tea.Cmd) {
	if t.limiter.Allow() {
		t.dirty = false
		return true, nil
	}
	t.dirty = true
	if t.tickPending {
		return false, nil
	}
	t.tickPending = true
	return false, tea.Tick(t.interval, func(now time.Time) tea.Msg {
		return StreamTickMsg{Time: now}
	})
}

// Tick consumes a scheduled tick and reports whether a render is owed.
func (t *renderThrottle) Tick() bool {
	t.tickPending = false
	owed := t.dirty
	t.dirty = false
	return owed
}

// Reset forgets pending work, for a finished stream or a cleared transcript.
func (t *renderThrottle) Reset() {
	t.dirty = false
}
