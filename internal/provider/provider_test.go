// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// feed runs lines through a fresh parser and returns the text deltas and
// error messages it produced.
func feed(t *testing.T, kind Kind, lines []string) (deltas []string, errs []string) {
	t.Helper()
	a, err := For(kind)
	require.NoError(t, err)
	p := a.NewParser()
	for _, line := range lines {
		ev := p.ParseLine(line)
		switch ev.Type {
		case EventTextDelta:
			deltas = append(deltas, ev.Text)
		case EventProviderError:
			errs = append(errs, ev.Text)
		}
	}
	return deltas, errs
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestAnthropicParser(t *testing.T) {
	lines := []string{
		"event: message_start",
		`data: {"type":"message_start","message":{"id":"msg_1"}}`,
		"",
		"event: content_block_start",
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		"event: ping",
		`data: {"type":"ping"}`,
		"event: content_block_delta",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		"event: content_block_delta",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":", world"}}`,
		"event: message_delta",
		`data: {"type":"message_delta","delta":{"text":"not content"}}`,
		"event: message_stop",
		`data: {"type":"message_stop"}`,
	}
	deltas, errs := feed(t, KindAnthropic, lines)
	assert.Equal(t, []string{"Hello", ", world"}, deltas)
	assert.Empty(t, errs)
}

func TestAnthropicParserDataWithoutEvent(t *testing.T) {
	deltas, _ := feed(t, KindAnthropic, []string{
		`data: {"type":"content_block_delta","delta":{"text":"orphan"}}`,
	})
	assert.Empty(t, deltas)
}

func TestAnthropicParserErrorEvent(t *testing.T) {
	_, errs := feed(t, KindAnthropic, []string{
		"event: error",
		`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	})
	assert.Equal(t, []string{"Overloaded"}, errs)
}

func TestOpenAIParser(t *testing.T) {
	lines := []string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		": keep-alive",
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"data: [DONE]",
	}
	deltas, errs := feed(t, KindOpenAI, lines)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Empty(t, errs)
}

func TestOpenAIParserDoneIsIgnored(t *testing.T) {
	a, _ := For(KindOpenAI)
	assert.Equal(t, Ignored, a.NewParser().ParseLine("data: [DONE]"))
}

func TestGeminiParser(t *testing.T) {
	lines := []string{
		`data: {"candidates":[{"content":{"parts":[{"text":"Four"}],"role":"model"}}]}`,
		`data: {"candidates":[{"content":{"parts":[{"text":"."}]},"finishReason":"STOP"}]}`,
		`data: {"usageMetadata":{"totalTokenCount":5}}`,
	}
	deltas, _ := feed(t, KindGemini, lines)
	assert.Equal(t, []string{"Four", "."}, deltas)
}

func TestOllamaParser(t *testing.T) {
	lines := []string{
		`{"model":"llama3","response":"2 + 2","done":false}`,
		`{"model":"llama3","response":" = 4","done":false}`,
		`{"model":"llama3","response":"","done":true,"total_duration":12345}`,
	}
	deltas, errs := feed(t, KindOllama, lines)
	assert.Equal(t, "2 + 2 = 4", strings.Join(deltas, ""))
	assert.Empty(t, errs)
}

func TestOllamaParserError(t *testing.T) {
	_, errs := feed(t, KindOllama, []string{`{"error":"model 'nope' not found"}`})
	assert.Equal(t, []string{"model 'nope' not found"}, errs)
}

func TestMalformedLinesAreIgnored(t *testing.T) {
	malformed := []string{
		"",
		"garbage",
		"data: {not json",
		"data: ",
		`data: ["array"]`,
		"{",
		"event:",
	}
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			a, err := For(kind)
			require.NoError(t, err)
			p := a.NewParser()
			for _, line := range malformed {
				assert.Equal(t, Ignored, p.ParseLine(line), "line %q", line)
			}
		})
	}
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestBuildRequestAnthropic(t *testing.T) {
	a, _ := For(KindAnthropic)
	spec, err := a.BuildRequest("hi", "CTX ", Config{
		Model: "claude-sonnet-4", APIKey: "sk-ant", SystemPrompt: "be brief",
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", spec.Method)
	assert.Equal(t, "https://api.anthropic.com/v1/messages", spec.URL)
	assert.Equal(t, "sk-ant", spec.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", spec.Header.Get("anthropic-version"))

	body := gjson.ParseBytes(spec.Body)
	assert.Equal(t, "be brief", body.Get("system").String())
	assert.Equal(t, "user", body.Get("messages.0.role").String())
	assert.Equal(t, "CTX hi", body.Get("messages.0.content").String())
	assert.Equal(t, int64(DefaultMaxTokens), body.Get("max_tokens").Int())
	assert.True(t, body.Get("stream").Bool())
}

func TestBuildRequestOpenAI(t *testing.T) {
	a, _ := For(KindOpenAI)
	spec, err := a.BuildRequest("hi", "", Config{
		Model: "gpt-4o", APIKey: "sk-oa", SystemPrompt: "sys", MaxTokens: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", spec.URL)
	assert.Equal(t, "Bearer sk-oa", spec.Header.Get("Authorization"))

	body := gjson.ParseBytes(spec.Body)
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "sys", body.Get("messages.0.content").String())
	assert.Equal(t, "hi", body.Get("messages.1.content").String())
	assert.Equal(t, int64(100), body.Get("max_tokens").Int())
	assert.True(t, body.Get("stream").Bool())
}

func TestBuildRequestGemini(t *testing.T) {
	a, _ := For(KindGemini)
	spec, err := a.BuildRequest("hi", "CTX ", Config{
		Model: "gemini-1.5-flash", APIKey: "g-key", SystemPrompt: "sys",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:streamGenerateContent?alt=sse&key=g-key",
		spec.URL)
	assert.Empty(t, spec.Header.Get("Authorization"))

	body := gjson.ParseBytes(spec.Body)
	assert.True(t, body.Get("contents").IsObject())
	assert.True(t, body.Get("contents.parts").IsObject())
	assert.Equal(t, "sys\n\nCTX hi", body.Get("contents.parts.text").String())
}

func TestBuildRequestOllama(t *testing.T) {
	a, _ := For(KindOllama)
	spec, err := a.BuildRequest("What is 2+2?", "", Config{
		Model: "llama3", Host: "http://localhost:11434/", SystemPrompt: "sys",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/api/generate", spec.URL)
	body := gjson.ParseBytes(spec.Body)
	assert.Equal(t, "llama3", body.Get("model").String())
	assert.Equal(t, "What is 2+2?", body.Get("prompt").String())
	assert.Equal(t, "sys", body.Get("system").String())
	assert.True(t, body.Get("stream").Bool())
}

func TestBuildRequestMissingCredential(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			a, _ := For(kind)
			_, err := a.BuildRequest("hi", "", Config{Model: "m"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingCredential))
		})
	}
}

func TestBaseURLOverride(t *testing.T) {
	a, _ := For(KindOpenAI)
	spec, err := a.BuildRequest("hi", "", Config{APIKey: "k", BaseURL: "http://127.0.0.1:9999/"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/v1/chat/completions", spec.URL)
}

// =============================================================================
// KIND TESTS
// =============================================================================

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"anthropic", KindAnthropic},
		{"Claude", KindAnthropic},
		{" openai ", KindOpenAI},
		{"gemini", KindGemini},
		{"OLLAMA", KindOllama},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKind("bard")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRedacted(t *testing.T) {
	cfg := Config{Kind: KindOpenAI, APIKey: "secret"}
	assert.Equal(t, "[REDACTED]", cfg.Redacted().APIKey)
	assert.Equal(t, "secret", cfg.APIKey)
}
