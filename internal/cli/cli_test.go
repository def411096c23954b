// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relay/internal/config"
	"github.com/jeranaias/relay/internal/stream"
)

// =============================================================================
// HELPERS
// =============================================================================

// syncBuffer is a bytes.Buffer safe for the sink goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isolate gives the test its own config directory and a clean environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RELAY_HOME", dir)
	for _, k := range []string{
		"RELAY_PROVIDER", "RELAY_MODEL", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_HOST", "RELAY_SYSTEM_PROMPT",
		"RELAY_MAX_TOKENS", "RELAY_HISTORY_TURNS", "RELAY_REQUEST_TIMEOUT",
		"RELAY_LOG_LEVEL", "RELAY_TELEMETRY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

// ollamaServer answers every generate call with the given chunks.
func ollamaServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range chunks {
			fmt.Fprintf(w, "{\"response\":%q}\n", c)
		}
		fmt.Fprint(w, "{\"response\":\"\",\"done\":true}\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, host string) {
	t.Helper()
	content := fmt.Sprintf(`provider = "ollama"

[providers.ollama]
host = %q
model = "test-model"

[chat]
history_turns = 4
`, host)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func testStreams(in string) (Streams, *syncBuffer, *syncBuffer) {
	out, errw := &syncBuffer{}, &syncBuffer{}
	return Streams{In: strings.NewReader(in), Out: out, Err: errw}, out, errw
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
		check func(t *testing.T, a Args)
	}{
		{"default is tui", nil, CmdTUI, nil},
		{"ask joins words", []string{"ask", "What", "is", "2+2?"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "What is 2+2?", a.Query)
		}},
		{"global flags anywhere", []string{"-p", "openai", "ask", "--model=gpt-4o", "hi", "-q"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "openai", a.Provider)
			assert.Equal(t, "gpt-4o", a.Model)
			assert.True(t, a.Quiet)
			assert.Equal(t, "hi", a.Query)
		}},
		{"bool flag does not eat the query", []string{"ask", "--no-stream", "hello"}, CmdAsk, func(t *testing.T, a Args) {
			assert.True(t, a.NoStream)
			assert.Equal(t, "hello", a.Query)
		}},
		{"config set", []string{"config", "set", "chat.system_prompt", "be", "brief"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "set", a.Subcommand)
			assert.Equal(t, []string{"chat.system_prompt", "be", "brief"}, a.Positional)
		}},
		{"config defaults to show", []string{"config"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{"stats flags", []string{"stats", "--since", "24h", "-n", "5", "--json"}, CmdStats, func(t *testing.T, a Args) {
			assert.Equal(t, "24h", a.Since)
			assert.Equal(t, 5, a.Recent)
			assert.True(t, a.JSON)
		}},
		{"help flag", []string{"chat", "--help"}, CmdHelp, nil},
		{"version", []string{"version"}, CmdVersion, nil},
		{"chat", []string{"chat", "-m", "llama3"}, CmdChat, func(t *testing.T, a Args) {
			assert.Equal(t, "llama3", a.Model)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = Parse([]string{"stats", "--recent", "many"})
	require.ErrorAs(t, err, &usage)
}

func TestArgParserDoubleDash(t *testing.T) {
	p := NewArgParser([]string{"ask", "--", "-p", "is", "a", "flag"}, parserSpec)
	assert.Equal(t, []string{"ask", "-p", "is", "a", "flag"}, p.Positionals())
	assert.False(t, p.HasFlag("provider"))
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--quiet=false", "--json=true"}, parserSpec)
	assert.False(t, p.BoolFlag("q"))
	assert.True(t, p.BoolFlag("json"))
	assert.True(t, p.HasFlag("quiet"))
}

func TestParseSince(t *testing.T) {
	d, err := parseSince("")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = parseSince("3d")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	d, err = parseSince("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = parseSince("soon")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("x")))
	assert.Equal(t, ExitConfigError, ExitCode(stream.ErrMissingCredential))
	assert.Equal(t, ExitUsageError, ExitCode(stream.ErrEmptyPrompt))
	assert.Equal(t, ExitNetworkError, ExitCode(fmt.Errorf("wrapped: %w", stream.ErrTransport)))
	assert.Equal(t, ExitProviderErr, ExitCode(stream.ErrProvider))
	assert.Equal(t, ExitInterrupted, ExitCode(stream.ErrCancelled))
	assert.Equal(t, ExitConfigError, ExitCode(config.ValidateErrors{{Field: "x", Message: "bad"}}))
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestHandleAskStreamsAnswer(t *testing.T) {
	dir := isolate(t)
	srv := ollamaServer(t, "2+2 ", "is 4")
	writeConfig(t, dir, srv.URL)

	streams, out, _ := testStreams("")
	err := HandleAsk(context.Background(), Args{Query: "What is 2+2?", Quiet: true}, streams)
	require.NoError(t, err)
	assert.Equal(t, "2+2 is 4\n", out.String())
}

func TestHandleAskReadsPipedPrompt(t *testing.T) {
	dir := isolate(t)
	srv := ollamaServer(t, "ok")
	writeConfig(t, dir, srv.URL)

	streams, out, _ := testStreams("from stdin\n")
	require.NoError(t, HandleAsk(context.Background(), Args{Quiet: true, NoStream: true}, streams))
	assert.Equal(t, "ok\n", out.String())
}

func TestHandleAskWithoutQuestion(t *testing.T) {
	isolate(t)
	streams, _, _ := testStreams("   ")
	err := HandleAsk(context.Background(), Args{Quiet: true}, streams)
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)
}

func TestHandleAskMissingCredential(t *testing.T) {
	isolate(t)
	streams, out, _ := testStreams("")
	err := HandleAsk(context.Background(), Args{Query: "hi", Provider: "openai", Quiet: true}, streams)
	require.Error(t, err)
	assert.True(t, stream.IsKind(err, stream.KindMissingCredential))
	assert.Equal(t, ExitConfigError, ExitCode(err))
	assert.Empty(t, out.String())
}

func TestHandleAskUnknownProvider(t *testing.T) {
	isolate(t)
	streams, _, _ := testStreams("")
	err := HandleAsk(context.Background(), Args{Query: "hi", Provider: "watson"}, streams)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestHandleChatSession(t *testing.T) {
	dir := isolate(t)
	srv := ollamaServer(t, "four")
	writeConfig(t, dir, srv.URL)

	input := "What is 2+2?\n/history\n/tokens\n/limit 6\n/bogus\n/quit\n"
	streams, out, errw := testStreams(input)
	require.NoError(t, HandleChat(context.Background(), Args{Quiet: true}, streams))

	got := out.String()
	assert.Contains(t, got, "four\n")
	assert.Contains(t, got, "User:")
	assert.Contains(t, got, "What is 2+2?")
	assert.Contains(t, got, "Assistant:")
	assert.Contains(t, got, "Context tokens:")
	assert.Contains(t, got, "History limited to 6 turns")
	assert.Contains(t, errw.String(), "unknown command /bogus")
}

func TestHandleChatSwitchProvider(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "http://127.0.0.1:1")

	streams, out, errw := testStreams("/provider gemini\n/model gemini-pro\n/provider nope\nhello\n")
	require.NoError(t, HandleChat(context.Background(), Args{Quiet: true}, streams))

	assert.Contains(t, out.String(), "Switched to gemini/")
	assert.Contains(t, out.String(), "Using gemini/gemini-pro")
	assert.Contains(t, errw.String(), "unknown provider")
	// No GEMINI_API_KEY: the prompt is refused before any request.
	assert.Contains(t, errw.String(), "API key")
}

func TestHandleConfigSetGet(t *testing.T) {
	dir := isolate(t)

	streams, out, _ := testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "set", Positional: []string{"chat.history_turns", "20"}}, streams))
	assert.Contains(t, out.String(), "chat.history_turns = 20")
	assert.FileExists(t, filepath.Join(dir, "config.toml"))

	streams, out, _ = testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "get", Positional: []string{"chat.history_turns"}}, streams))
	assert.Equal(t, "20\n", out.String())

	streams, out, _ = testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "set", Positional: []string{"providers.openai.api_key", "sk-secret"}}, streams))
	assert.NotContains(t, out.String(), "sk-secret")

	streams, out, _ = testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "show"}, streams))
	assert.NotContains(t, out.String(), "sk-secret")
	assert.Contains(t, out.String(), "history_turns = 20")
}

func TestHandleConfigSetRejectsInvalid(t *testing.T) {
	isolate(t)
	streams, _, _ := testStreams("")
	err := HandleConfig(Args{Subcommand: "set", Positional: []string{"chat.history_turns", "0"}}, streams)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	err = HandleConfig(Args{Subcommand: "set", Positional: []string{"no.such.key", "1"}}, streams)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestHandleConfigInit(t *testing.T) {
	dir := isolate(t)
	streams, out, _ := testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "init"}, streams))
	assert.Contains(t, out.String(), filepath.Join(dir, "config.toml"))

	err := HandleConfig(Args{Subcommand: "init"}, streams)
	assert.Error(t, err)
	assert.NoError(t, HandleConfig(Args{Subcommand: "init", Force: true}, streams))

	streams, out, _ = testStreams("")
	require.NoError(t, HandleConfig(Args{Subcommand: "path"}, streams))
	assert.Equal(t, filepath.Join(dir, "config.toml")+"\n", out.String())
}

func TestHandleStatsAfterRequests(t *testing.T) {
	dir := isolate(t)
	srv := ollamaServer(t, "fine")
	writeConfig(t, dir, srv.URL)

	for i := 0; i < 2; i++ {
		streams, _, _ := testStreams("")
		require.NoError(t, HandleAsk(context.Background(), Args{Query: "how are you", Quiet: true}, streams))
	}

	streams, out, _ := testStreams("")
	require.NoError(t, HandleStats(context.Background(), Args{Recent: 5}, streams))
	got := out.String()
	assert.Contains(t, got, "Total:")
	assert.Contains(t, got, "ollama/test-model")
	assert.Contains(t, got, "completed")
}

func TestHandleStatsWithoutLedger(t *testing.T) {
	isolate(t)
	streams, out, _ := testStreams("")
	require.NoError(t, HandleStats(context.Background(), Args{}, streams))
	assert.Contains(t, out.String(), "No requests recorded yet")
}
