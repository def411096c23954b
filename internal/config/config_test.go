// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relay/internal/provider"
)

// isolate points the config directory at a temp dir and clears the
// variables ApplyEnvOverrides reads.
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

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, 10, cfg.Chat.HistoryTurns)
	assert.Equal(t, provider.DefaultOllamaHost, cfg.Providers.Ollama.Host)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Chat, cfg.Chat)
}

func TestLoadTOML(t *testing.T) {
	dir := isolate(t)
	content := `
provider = "anthropic"

[providers.anthropic]
model = "claude-3-haiku"
api_key = "sk-ant-file"

[chat]
history_turns = 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-haiku", cfg.Providers.Anthropic.Model)
	assert.Equal(t, 6, cfg.Chat.HistoryTurns)
	// Untouched sections keep defaults.
	assert.Equal(t, provider.DefaultMaxTokens, cfg.Chat.MaxTokens)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	content := "provider: gemini\nproviders:\n  gemini:\n    model: gemini-pro\n    api_key: g-file\nlog:\n  level: DEBUG\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, provider.KindGemini, cfg.ActiveProvider())
	assert.Equal(t, "gemini-pro", cfg.Providers.Gemini.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadJSON(t *testing.T) {
	dir := isolate(t)
	content := `{"provider":"openai","providers":{"openai":{"model":"gpt-4o"}}}`
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Providers.OpenAI.Model)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions are tightened")
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RELAY_PROVIDER", "claude")
	t.Setenv("RELAY_MODEL", "claude-opus")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("OLLAMA_HOST", "0.0.0.0:11434")
	t.Setenv("RELAY_HISTORY_TURNS", "4")
	t.Setenv("RELAY_REQUEST_TIMEOUT", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-opus", cfg.Providers.Anthropic.Model)
	assert.Equal(t, "sk-env", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "http://0.0.0.0:11434", cfg.Providers.Ollama.Host)
	assert.Equal(t, 4, cfg.Chat.HistoryTurns)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout())
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OPENAI_API_KEY=from-file\nGEMINI_API_KEY=gem-file\n"), 0600))
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "gem-file", cfg.Providers.Gemini.APIKey)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Provider = "bard"
	cfg.Chat.HistoryTurns = 0
	cfg.Log.Level = "loud"
	cfg.Providers.Ollama.Host = "ftp://host"

	err := cfg.Validate()
	require.Error(t, err)
	verrs, ok := err.(ValidateErrors)
	require.True(t, ok)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"provider", "chat.history_turns", "log.level", "providers.ollama.host"}, fields)
}

func TestInvalidFileIsRejected(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[chat]\nmax_tokens = -5\n"), 0600))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.max_tokens")
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.Providers.OpenAI.APIKey = "sk"
	cfg.Chat.SystemPrompt = "sys"

	pc := cfg.ProviderConfig(provider.KindOpenAI)
	assert.Equal(t, provider.KindOpenAI, pc.Kind)
	assert.Equal(t, "gpt-4o-mini", pc.Model)
	assert.Equal(t, "sk", pc.APIKey)
	assert.Equal(t, "sys", pc.SystemPrompt)
	assert.Equal(t, cfg.Chat.MaxTokens, pc.MaxTokens)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("chat.history_turns", "8"))
	require.NoError(t, cfg.Set("providers.openai.api_key", "sk-set"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.NoError(t, cfg.Set("providers.ollama.base_url", "http://10.0.0.2:11434"))

	v, err := cfg.Get("chat.history_turns")
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	assert.Equal(t, "sk-set", cfg.Providers.OpenAI.APIKey)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, "http://10.0.0.2:11434", cfg.Providers.Ollama.BaseURL)

	_, err = cfg.Get("chat.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("chat.max_tokens", "lots"))
	assert.Error(t, cfg.Set("", "x"))
}

func TestEveryKeyResolves(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
	assert.True(t, IsSecretKey("providers.gemini.api_key"))
	assert.False(t, IsSecretKey("chat.max_tokens"))
}

func TestStringRedactsKeys(t *testing.T) {
	cfg := Default()
	cfg.Providers.Anthropic.APIKey = "sk-ant-secret"
	cfg.Providers.OpenAI.APIKey = "sk-oa-secret"

	s := cfg.String()
	assert.NotContains(t, s, "secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-ant-secret", cfg.Providers.Anthropic.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Provider = "openai"
	cfg.Chat.HistoryTurns = 12

	path, err := Save(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.Provider)
	assert.Equal(t, 12, loaded.Chat.HistoryTurns)
}

func TestReadFileIgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("provider = \"gpt\"\n"), 0600))
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Empty(t, cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, 10, cfg.Chat.HistoryTurns)
}

func TestSaveYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out.yaml")
	require.NoError(t, SaveToPath(Default(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "history_turns: 10"))
}

func TestGlobalConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, Global())
		}()
	}
	wg.Wait()
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveToPath(Default(), path))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, WatcherOptions{
		Debounce: 20 * time.Millisecond,
		OnChange: func(c *Config) { changes <- c },
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	defer w.Close()

	cfg := Default()
	cfg.Provider = "gemini"
	require.NoError(t, SaveToPath(cfg, path))

	select {
	case got := <-changes:
		assert.Equal(t, "gemini", got.Provider)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}
