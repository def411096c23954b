// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, New(0).Limit())
	assert.Equal(t, 4, New(4).Limit())
}

func TestEmptyHistoryBuildsEmptyContext(t *testing.T) {
	h := New(DefaultLimit)
	assert.Equal(t, "", h.BuildContext())
}

func TestBuildContextFormat(t *testing.T) {
	h := New(DefaultLimit)
	h.AppendPrompt("What is 2+2?")
	seq := h.AppendResponsePlaceholder()
	h.AppendResponse(seq, "4")

	want := "<conversation_history>\nUser: What is 2+2?\nAssistant: 4\n</conversation_history>\n\n"
	assert.Equal(t, want, h.BuildContext())
}

func TestHistoryNeverExceedsLimit(t *testing.T) {
	const limit = 10
	h := New(limit)
	for i := 0; i < 37; i++ {
		h.AppendPrompt(fmt.Sprintf("p%d", i))
		seq := h.AppendResponsePlaceholder()
		h.AppendResponse(seq, fmt.Sprintf("r%d", i))
		require.LessOrEqual(t, h.Len(), limit)
	}

	turns := h.Turns()
	require.Len(t, turns, limit)
	// Oldest retained is prompt 32; order is preserved.
	assert.Equal(t, "p32", turns[0].Content)
	assert.Equal(t, "r36", turns[limit-1].Content)

	ctx := h.BuildContext()
	assert.NotContains(t, ctx, "p31")
	assert.Less(t, strings.Index(ctx, "p32"), strings.Index(ctx, "p33"))
	assert.Less(t, strings.Index(ctx, "p35"), strings.Index(ctx, "r36"))
}

func TestOddLimitEvictsSingleTurns(t *testing.T) {
	h := New(3)
	h.AppendPrompt("a")
	h.AppendPrompt("b")
	h.AppendPrompt("c")
	h.AppendPrompt("d")
	turns := h.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "b", turns[0].Content)
}

func TestResponseGrowsMonotonically(t *testing.T) {
	h := New(DefaultLimit)
	h.AppendPrompt("hi")
	seq := h.AppendResponsePlaceholder()

	assert.True(t, h.AppendResponse(seq, "Hel"))
	assert.True(t, h.UpdateResponse(seq, "Hello"))
	assert.False(t, h.UpdateResponse(seq, "Help"), "non-extending update must be rejected")

	turn, ok := h.Turn(seq)
	require.True(t, ok)
	assert.Equal(t, "Hello", turn.Content)
}

func TestFrozenResponseRejectsUpdates(t *testing.T) {
	h := New(DefaultLimit)
	seq := h.AppendResponsePlaceholder()
	h.AppendResponse(seq, "partial")
	h.Freeze(seq)

	assert.False(t, h.AppendResponse(seq, " more"))
	turn, _ := h.Turn(seq)
	assert.Equal(t, "partial", turn.Content)
	assert.True(t, turn.Frozen)
}

func TestAppendResponseToPromptRejected(t *testing.T) {
	h := New(DefaultLimit)
	seq := h.AppendPrompt("hi")
	assert.False(t, h.AppendResponse(seq, "x"))
}

func TestAppendToEvictedTurn(t *testing.T) {
	h := New(2)
	seq := h.AppendResponsePlaceholder()
	h.AppendPrompt("a")
	h.AppendPrompt("b")
	assert.False(t, h.AppendResponse(seq, "late"))
}

func TestSetLimitEvicts(t *testing.T) {
	h := New(DefaultLimit)
	for i := 0; i < 6; i++ {
		h.AppendPrompt(fmt.Sprint(i))
	}
	h.SetLimit(2)
	turns := h.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "4", turns[0].Content)
}

func TestTurnsReturnsCopies(t *testing.T) {
	h := New(DefaultLimit)
	h.AppendPrompt("original")
	turns := h.Turns()
	turns[0].Content = "mutated"
	last, _ := h.Last()
	assert.Equal(t, "original", last.Content)
}

func TestClear(t *testing.T) {
	h := New(DefaultLimit)
	h.AppendPrompt("a")
	h.Clear()
	assert.Equal(t, 0, h.Len())
	_, ok := h.Last()
	assert.False(t, ok)
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.in), "%q", tt.in)
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	h := New(DefaultLimit)
	seq := h.AppendResponsePlaceholder()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.AppendResponse(seq, "x")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = h.BuildContext()
		}
	}()
	wg.Wait()

	turn, _ := h.Turn(seq)
	assert.Len(t, turn.Content, 200)
}
