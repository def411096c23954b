// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/provider"
	"github.com/jeranaias/relay/internal/stream"
	"github.com/jeranaias/relay/internal/ui/styles"
)

// =============================================================================
// BACKEND
// =============================================================================

// Backend is the session the TUI drives. Output is not returned from Send;
// it arrives through the ProgramSink wired into the backend.
type Backend interface {
	Send(ctx context.Context, prompt string) (*job.Job, error)
	Cancel() bool
	ProviderConfig() provider.Config
	SetProvider(name string) error
	SetModel(model string)
	ClearHistory()
	ContextTokens() int
	HistoryLimit() int
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Role identifies who produced an entry.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleNotice
	RoleError
)

// Entry is one block of the transcript.
type Entry struct {
	Role    Role
	Content string

	// Streaming is true until the assistant entry's job finishes.
	Streaming bool
	State     job.State
	Err       error
	Result    stream.Result

	// rendered caches the markdown output of a finished entry.
	rendered string
}

// detached marks an in-flight slot whose entry was cleared.
const detached = -1

// =============================================================================
// MODEL
// =============================================================================

// Options configures New.
type Options struct {
	Theme    *styles.Theme
	Markdown *styles.Markdown
	Keys     *KeyMap
	MaxFPS   int
	// Context scopes every request started from the TUI.
	Context context.Context
}

// Model is the chat TUI state.
type Model struct {
	backend Backend
	ctx     context.Context
	theme   *styles.Theme
	md      *styles.Markdown
	keys    KeyMap

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	throttle *renderThrottle

	entries []Entry
	// inflight holds the entry index of every started job that has not
	// finished, oldest first. Deltas always belong to inflight[0].
	inflight []int

	status      string
	statusError bool
	statusSeq   int
	lastResult  *stream.Result

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates a chat model over backend.
func New(backend Backend, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something, or /help"
	ti.CharLimit = 16384
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.SpinnerFrames,
		FPS:    time.Second / styles.SpinnerFPS,
	}
	sp.Style = theme.Spinner

	return Model{
		backend:  backend,
		ctx:      ctx,
		theme:    theme,
		md:       opts.Markdown,
		keys:     keys,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		throttle: newRenderThrottle(opts.MaxFPS),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Entries returns a copy of the transcript.
func (m Model) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Streaming reports whether any job is still delivering output.
func (m Model) Streaming() bool {
	return len(m.inflight) > 0
}

// Status returns the current status line text.
func (m Model) Status() string {
	return m.status
}

// Quitting reports whether the model asked the program to exit.
func (m Model) Quitting() bool {
	return m.quitting
}

// =============================================================================
// TRANSCRIPT HELPERS
// =============================================================================

func (m *Model) addEntry(e Entry) int {
	m.entries = append(m.entries, e)
	return len(m.entries) - 1
}

func (m *Model) notice(text string) {
	m.addEntry(Entry{Role: RoleNotice, Content: text})
}

func (m *Model) errorEntry(err error) {
	m.addEntry(Entry{Role: RoleError, Content: err.Error(), Err: err})
}

// current returns the entry receiving deltas, or nil when none does.
func (m *Model) current() *Entry {
	if len(m.inflight) == 0 || m.inflight[0] == detached {
		return nil
	}
	return &m.entries[m.inflight[0]]
}

// finish closes the oldest in-flight entry with r.
func (m *Model) finish(r stream.Result) {
	if len(m.inflight) == 0 {
		return
	}
	if e := m.current(); e != nil {
		e.Streaming = false
		e.State = r.State
		e.Err = r.Err
		e.Result = r
		e.rendered = ""
	}
	m.inflight = m.inflight[1:]
	m.lastResult = &r
}

// clear empties the transcript. Jobs still in flight keep their slots so
// their remaining output is discarded instead of misattributed.
func (m *Model) clear() {
	for i := range m.inflight {
		m.inflight[i] = detached
	}
	m.entries = nil
	m.lastResult = nil
	m.throttle.Reset()
}
