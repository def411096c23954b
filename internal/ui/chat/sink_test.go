// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/stream"
)

type recorder struct {
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestProgramSinkDropsUntilAttached(t *testing.T) {
	s := NewProgramSink()
	s.Append("lost")

	rec := &recorder{}
	s.attach(rec)
	s.Append("kept")
	s.Finished(stream.Result{State: job.StateCompleted})

	assert.Equal(t, []tea.Msg{
		DeltaMsg{Text: "kept"},
		FinishedMsg{Result: stream.Result{State: job.StateCompleted}},
	}, rec.msgs)
}

func TestRenderThrottle(t *testing.T) {
	th := newRenderThrottle(1)

	ok, cmd := th.Allow()
	assert.True(t, ok)
	assert.Nil(t, cmd)

	ok, cmd = th.Allow()
	assert.False(t, ok)
	assert.NotNil(t, cmd)

	// One catch-up tick is enough however many renders were skipped.
	ok, cmd = th.Allow()
	assert.False(t, ok)
	assert.Nil(t, cmd)

	assert.True(t, th.Tick())
	assert.False(t, th.Tick())
}
