// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"strings"
	"sync"
	"time"
)

// DefaultLimit is the default number of retained turns.
const DefaultLimit = 10

// Context delimiters wrapped around rendered history.
const (
	ContextOpen  = "<conversation_history>"
	ContextClose = "</conversation_history>"
)

// =============================================================================
// TURN
// =============================================================================

// Role distinguishes prompts from responses.
type Role int

const (
	RolePrompt Role = iota
	RoleResponse
)

// String returns the label used when rendering context.
func (r Role) String() string {
	if r == RoleResponse {
		return "Assistant"
	}
	return "User"
}

// Turn is one entry in the log. Values returned by History are copies.
type Turn struct {
	Seq       uint64
	Role      Role
	Content   string
	CreatedAt time.Time
	Frozen    bool
}

// =============================================================================
// HISTORY
// =============================================================================

// History is safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	turns []*Turn
	limit int
	seq   uint64
}

// New creates an empty history bounded to limit turns. A non-positive limit
// selects DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Limit returns the maximum number of retained turns.
func (h *History) Limit() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.limit
}

// SetLimit changes the bound and evicts immediately if needed.
func (h *History) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = limit
	h.evictLocked()
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// AppendPrompt records a prompt and returns its sequence number.
func (h *History) AppendPrompt(text string) uint64 {
	return h.append(RolePrompt, text)
}

// AppendResponsePlaceholder records an empty response turn that later deltas
// extend through AppendResponse.
func (h *History) AppendResponsePlaceholder() uint64 {
	return h.append(RoleResponse, "")
}

func (h *History) append(role Role, content string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.turns = append(h.turns, &Turn{
		Seq:       h.seq,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	h.evictLocked()
	return h.seq
}

// evictLocked drops the oldest turns beyond the limit. Caller holds mu.
func (h *History) evictLocked() {
	if over := len(h.turns) - h.limit; over > 0 {
		// Clear evicted pointers so they can be collected.
		for i := 0; i < over; i++ {
			h.turns[i] = nil
		}
		h.turns = append(h.turns[:0], h.turns[over:]...)
	}
}

// find returns the live turn with seq, or nil if it was evicted.
func (h *History) find(seq uint64) *Turn {
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Seq == seq {
			return h.turns[i]
		}
	}
	return nil
}

// AppendResponse extends a response turn with delta. Content therefore only
// ever grows, in call order. It reports false when the turn is gone, frozen,
// or not a response.
func (h *History) AppendResponse(seq uint64, delta string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.find(seq)
	if t == nil || t.Frozen || t.Role != RoleResponse {
		return false
	}
	t.Content += delta
	return true
}

// UpdateResponse replaces a response turn's content with text, provided text
// extends what is already there.
func (h *History) UpdateResponse(seq uint64, text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.find(seq)
	if t == nil || t.Frozen || t.Role != RoleResponse {
		return false
	}
	if !strings.HasPrefix(text, t.Content) {
		return false
	}
	t.Content = text
	return true
}

// Freeze stops further updates to a turn.
func (h *History) Freeze(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.find(seq); t != nil {
		t.Frozen = true
	}
}

// Turn returns a copy of the turn with seq.
func (h *History) Turn(seq uint64) (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t := h.find(seq); t != nil {
		return *t, true
	}
	return Turn{}, false
}

// Turns returns a copy of the retained turns, oldest first.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, len(h.turns))
	for i, t := range h.turns {
		out[i] = *t
	}
	return out
}

// Last returns the newest turn.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return *h.turns[len(h.turns)-1], true
}

// Clear drops every turn.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.turns {
		h.turns[i] = nil
	}
	h.turns = h.turns[:0]
}

// =============================================================================
// CONTEXT RENDERING
// =============================================================================

// BuildContext renders the retained turns, oldest first, inside the context
// delimiters. An empty history renders as "".
func (h *History) BuildContext() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.turns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(ContextOpen)
	sb.WriteByte('\n')
	for _, t := range h.turns {
		sb.WriteString(t.Role.String())
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteByte('\n')
	}
	sb.WriteString(ContextClose)
	sb.WriteString("\n\n")
	return sb.String()
}

// EstimateTokens approximates the token count of s as ceil(bytes/4). The
// figure is advisory and never drives truncation.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}
