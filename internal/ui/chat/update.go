// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay/internal/stream"
)

// statusTTL is how long a transient status line stays up.
const statusTTL = 4 * time.Second

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DeltaMsg:
		e := m.current()
		if e == nil {
			return m, nil
		}
		e.Content += msg.Text
		if ok, cmd := m.throttle.Allow(); !ok {
			return m, cmd
		}
		m.refresh()
		return m, nil

	case StreamTickMsg:
		if m.throttle.Tick() {
			m.refresh()
		}
		return m, nil

	case FinishedMsg:
		m.finish(msg.Result)
		m.throttle.Reset()
		m.refresh()
		return m, nil

	case StatusMsg:
		return m, m.setStatus(msg.Text, msg.Error)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusError = false
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Streaming() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.backend.Cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.backend.Cancel() {
			return m, m.setStatus("Cancelling...", false)
		}
		return m, m.setStatus("Nothing to cancel", false)

	case key.Matches(msg, m.keys.Clear):
		return m.clearConversation()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	j, err := m.backend.Send(m.ctx, text)
	if err != nil {
		if stream.IsKind(err, stream.KindEmptyPrompt) {
			return m, m.setStatus("Nothing to send", true)
		}
		m.errorEntry(err)
		m.refresh()
		return m, nil
	}

	m.addEntry(Entry{Role: RoleUser, Content: text})
	idx := m.addEntry(Entry{Role: RoleAssistant, Streaming: true, State: j.State()})
	wasIdle := !m.Streaming()
	m.inflight = append(m.inflight, idx)
	m.refresh()

	if wasIdle {
		return m, tea.Batch(m.spinner.Tick, textinput.Blink)
	}
	return m, nil
}

func (m Model) clearConversation() (tea.Model, tea.Cmd) {
	m.backend.Cancel()
	m.backend.ClearHistory()
	m.clear()
	m.refresh()
	return m, m.setStatus("Conversation cleared", false)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

var errUnknownCommand = errors.New("unknown command")

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		m.backend.Cancel()
		m.quitting = true
		return m, tea.Quit

	case "/clear", "/c":
		return m.clearConversation()

	case "/cancel":
		if m.backend.Cancel() {
			return m, m.setStatus("Cancelling...", false)
		}
		return m, m.setStatus("Nothing to cancel", false)

	case "/provider", "/p":
		if len(args) == 0 {
			m.notice("Provider: " + m.backend.ProviderConfig().Kind.String())
			break
		}
		if err := m.backend.SetProvider(args[0]); err != nil {
			m.errorEntry(err)
			break
		}
		pc := m.backend.ProviderConfig()
		m.notice(fmt.Sprintf("Switched to %s (%s)", pc.Kind, modelOrDefault(pc.Model)))

	case "/model", "/m":
		if len(args) == 0 {
			m.notice("Model: " + modelOrDefault(m.backend.ProviderConfig().Model))
			break
		}
		if args[0] == "default" {
			m.backend.SetModel("")
		} else {
			m.backend.SetModel(args[0])
		}
		m.notice("Model: " + modelOrDefault(m.backend.ProviderConfig().Model))

	case "/tokens", "/t":
		m.notice(fmt.Sprintf("Context: ~%d tokens across the last %d turns",
			m.backend.ContextTokens(), m.backend.HistoryLimit()))

	case "/help", "/h", "/?":
		m.notice(helpText)

	default:
		m.errorEntry(fmt.Errorf("%w: %s (try /help)", errUnknownCommand, strconv.Quote(name)))
	}

	m.refresh()
	return m, nil
}

const helpText = `Commands:
  /provider [name]   show or switch provider
  /model [name]      show or set model, "default" resets
  /tokens            show context size
  /cancel            cancel the running response
  /clear             clear the conversation
  /quit              exit`

func modelOrDefault(model string) string {
	if model == "" {
		return "default model"
	}
	return model
}

// =============================================================================
// STATUS
// =============================================================================

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusError = isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
