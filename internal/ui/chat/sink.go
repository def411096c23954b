// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay/internal/stream"
)

// sender is the part of *tea.Program the sink uses.
type sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards client output to a running program. Output that
// arrives before Attach is dropped.
type ProgramSink struct {
	mu sync.RWMutex
	p  sender
}

// NewProgramSink creates an unattached sink.
func NewProgramSink() *ProgramSink {
	return &ProgramSink{}
}

// Attach routes later output to p.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.attach(p)
}

func (s *ProgramSink) attach(p sender) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *ProgramSink) send(msg tea.Msg) {
	s.mu.RLock()
	p := s.p
	s.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Append implements stream.Sink.
func (s *ProgramSink) Append(text string) {
	s.send(DeltaMsg{Text: text})
}

// Finished is the client's finish hook.
func (s *ProgramSink) Finished(r stream.Result) {
	s.send(FinishedMsg{Result: r})
}
