// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/relay/internal/provider"
	"github.com/jeranaias/relay/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relay configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Provider is the backend used when none is given on the command line.
	Provider string `toml:"provider" json:"provider" yaml:"provider"`

	Providers ProvidersConfig `toml:"providers" json:"providers" yaml:"providers"`
	Chat      ChatConfig      `toml:"chat" json:"chat" yaml:"chat"`
	Log       LogConfig       `toml:"log" json:"log" yaml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry" yaml:"telemetry"`
	UI        UIConfig        `toml:"ui" json:"ui" yaml:"ui"`
}

// ProvidersConfig holds one entry per backend.
type ProvidersConfig struct {
	Anthropic ProviderEntry `toml:"anthropic" json:"anthropic" yaml:"anthropic"`
	OpenAI    ProviderEntry `toml:"openai" json:"openai" yaml:"openai"`
	Gemini    ProviderEntry `toml:"gemini" json:"gemini" yaml:"gemini"`
	Ollama    ProviderEntry `toml:"ollama" json:"ollama" yaml:"ollama"`
}

// ProviderEntry configures a single backend.
type ProviderEntry struct {
	Model   string `toml:"model" json:"model" yaml:"model"`
	APIKey  string `toml:"api_key,omitempty" json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Host    string `toml:"host,omitempty" json:"host,omitempty" yaml:"host,omitempty"`
	BaseURL string `toml:"base_url,omitempty" json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ChatConfig controls prompt construction and request limits.
type ChatConfig struct {
	SystemPrompt string `toml:"system_prompt" json:"system_prompt" yaml:"system_prompt"`
	MaxTokens    int    `toml:"max_tokens" json:"max_tokens" yaml:"max_tokens"`

	// HistoryTurns bounds the rolling context. Prompts and responses each
	// count as one turn.
	HistoryTurns int `toml:"history_turns" json:"history_turns" yaml:"history_turns"`

	// RequestTimeoutSecs caps a whole request. 0 disables the cap.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs" yaml:"request_timeout_secs"`

	// HeaderTimeoutSecs bounds the wait for the provider to start answering.
	HeaderTimeoutSecs int `toml:"header_timeout_secs" json:"header_timeout_secs" yaml:"header_timeout_secs"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	// File defaults to ~/.relay/relay.log. "-" logs to stderr.
	File string `toml:"file" json:"file" yaml:"file"`
}

// TelemetryConfig controls the local job ledger.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// UIConfig contains display preferences.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme" yaml:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown" yaml:"markdown"`
	WordWrap int    `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		Provider: string(provider.KindOllama),
		Providers: ProvidersConfig{
			Anthropic: ProviderEntry{Model: "claude-sonnet-4-20250514"},
			OpenAI:    ProviderEntry{Model: "gpt-4o-mini"},
			Gemini:    ProviderEntry{Model: "gemini-1.5-flash"},
			Ollama:    ProviderEntry{Model: "llama3.2", Host: provider.DefaultOllamaHost},
		},
		Chat: ChatConfig{
			SystemPrompt:       "You are a helpful assistant. Answer concisely.",
			MaxTokens:          provider.DefaultMaxTokens,
			HistoryTurns:       10,
			RequestTimeoutSecs: 0,
			HeaderTimeoutSecs:  30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
			WordWrap: 100,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the relay configuration directory. RELAY_HOME overrides
// the default ~/.relay.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RELAY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".relay"), nil
}

// ConfigPath returns the path of the named file in the config directory.
func ConfigPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return ConfigPath("config.toml")
}

// candidateFiles lists config files in lookup order.
var candidateFiles = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// FindConfigFile returns the first existing config file, or "" if none.
func FindConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600 since they can hold
// API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found in the config directory, then
// applies .env files and environment overrides. With no file, defaults are
// used.
func Load() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads a specific file, choosing the decoder by extension
// (TOML when unknown).
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// ReadFile decodes path onto the defaults without applying the environment.
// Use it when the result will be written back to disk.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	if err := cfg.Migrate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeFile(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads .env from the working directory and the config
// directory. Variables that are already set win, so a real environment always
// overrides a file.
func LoadDotEnv() {
	var files []string
	if _, err := os.Stat(".env"); err == nil {
		files = append(files, ".env")
	}
	if p, err := ConfigPath(".env"); err == nil {
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", strings.Join(files, ", "), err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) (string, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	return path, SaveToPath(cfg, path)
}

// SaveToPath writes cfg atomically with 0600 permissions, encoding by
// extension.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		buf.Write(data)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		enc.Close()
	default:
		buf.WriteString("# relay configuration file\n")
		buf.WriteString("# API keys may also come from ANTHROPIC_API_KEY, OPENAI_API_KEY and GEMINI_API_KEY.\n\n")
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
	validThemes     = map[string]bool{"auto": true, "dark": true, "light": true}
)

// Validate checks every field and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := provider.ParseKind(c.Provider); err != nil {
		errs = append(errs, ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: %s", c.Provider, strings.Join(provider.Names(), ", ")),
		})
	}

	for _, kind := range provider.Kinds() {
		entry := c.Providers.entry(kind)
		if entry.BaseURL != "" {
			if err := validateURL(entry.BaseURL); err != nil {
				errs = append(errs, ValidationError{Field: "providers." + kind.String() + ".base_url", Message: err.Error()})
			}
		}
	}
	if c.Providers.Ollama.Host != "" {
		if err := validateURL(c.Providers.Ollama.Host); err != nil {
			errs = append(errs, ValidationError{Field: "providers.ollama.host", Message: err.Error()})
		}
	}

	if c.Chat.MaxTokens < 1 || c.Chat.MaxTokens > 1_000_000 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: fmt.Sprintf("must be between 1 and 1000000, got %d", c.Chat.MaxTokens),
		})
	}
	if c.Chat.HistoryTurns < 1 || c.Chat.HistoryTurns > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_turns",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Chat.HistoryTurns),
		})
	}
	if c.Chat.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "chat.request_timeout_secs", Message: "cannot be negative"})
	}
	if c.Chat.HeaderTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "chat.header_timeout_secs", Message: "cannot be negative"})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL '%s' must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%s' has no host", raw)
	}
	return nil
}

// SetDefaults fills zero values left by a partial file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	for _, kind := range provider.Kinds() {
		entry, def := c.Providers.ptr(kind), d.Providers.entry(kind)
		if entry.Model == "" {
			entry.Model = def.Model
		}
	}
	if c.Providers.Ollama.Host == "" {
		c.Providers.Ollama.Host = d.Providers.Ollama.Host
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = d.Chat.MaxTokens
	}
	if c.Chat.HistoryTurns == 0 {
		c.Chat.HistoryTurns = d.Chat.HistoryTurns
	}
	if c.Chat.HeaderTimeoutSecs == 0 {
		c.Chat.HeaderTimeoutSecs = d.Chat.HeaderTimeoutSecs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// Migrate normalizes legacy or aliased values.
func (c *Config) Migrate() error {
	if c.Provider != "" {
		kind, err := provider.ParseKind(c.Provider)
		if err == nil {
			c.Provider = string(kind)
		}
	}
	c.Providers.Ollama.Host = normalizeHost(c.Providers.Ollama.Host)
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "warning" {
		c.Log.Level = "warn"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	return nil
}

// normalizeHost accepts OLLAMA_HOST style values such as "0.0.0.0:11434".
func normalizeHost(h string) string {
	h = strings.TrimSpace(h)
	if h == "" || strings.Contains(h, "://") {
		return strings.TrimRight(h, "/")
	}
	return "http://" + strings.TrimRight(h, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - RELAY_PROVIDER: overrides provider
//   - RELAY_MODEL: overrides the model of the active provider
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY (or GOOGLE_API_KEY)
//   - OLLAMA_HOST: overrides providers.ollama.host
//   - RELAY_SYSTEM_PROMPT: overrides chat.system_prompt
//   - RELAY_MAX_TOKENS: overrides chat.max_tokens
//   - RELAY_HISTORY_TURNS: overrides chat.history_turns
//   - RELAY_REQUEST_TIMEOUT: overrides chat.request_timeout_secs (seconds or a duration like "2m")
//   - RELAY_LOG_LEVEL: overrides log.level
//   - RELAY_TELEMETRY: "0" or "false" disables the job ledger
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("RELAY_PROVIDER"); p != "" {
		c.Provider = p
	}
	if m := os.Getenv("RELAY_MODEL"); m != "" {
		if kind, err := provider.ParseKind(c.Provider); err == nil {
			c.Providers.ptr(kind).Model = m
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Providers.Anthropic.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Providers.Gemini.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Providers.Gemini.APIKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Providers.Ollama.Host = host
	}

	if sp := os.Getenv("RELAY_SYSTEM_PROMPT"); sp != "" {
		c.Chat.SystemPrompt = sp
	}
	if v := os.Getenv("RELAY_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.MaxTokens = n
		}
	}
	if v := os.Getenv("RELAY_HISTORY_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.HistoryTurns = n
		}
	}
	if v := os.Getenv("RELAY_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.RequestTimeoutSecs = n
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Chat.RequestTimeoutSecs = int(d.Seconds())
		}
	}
	if lvl := os.Getenv("RELAY_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
	if v := os.Getenv("RELAY_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// PROVIDER ACCESS
// =============================================================================

func (p *ProvidersConfig) ptr(kind provider.Kind) *ProviderEntry {
	switch kind {
	case provider.KindAnthropic:
		return &p.Anthropic
	case provider.KindOpenAI:
		return &p.OpenAI
	case provider.KindGemini:
		return &p.Gemini
	default:
		return &p.Ollama
	}
}

func (p ProvidersConfig) entry(kind provider.Kind) ProviderEntry {
	return *p.ptr(kind)
}

// Entry returns the configuration for kind.
func (c *Config) Entry(kind provider.Kind) ProviderEntry {
	return c.Providers.entry(kind)
}

// ActiveProvider returns the configured default backend, falling back to
// Ollama for an invalid name.
func (c *Config) ActiveProvider() provider.Kind {
	kind, err := provider.ParseKind(c.Provider)
	if err != nil {
		return provider.KindOllama
	}
	return kind
}

// ProviderConfig builds the per-job settings for kind.
func (c *Config) ProviderConfig(kind provider.Kind) provider.Config {
	e := c.Providers.entry(kind)
	return provider.Config{
		Kind:         kind,
		Model:        e.Model,
		APIKey:       e.APIKey,
		Host:         e.Host,
		BaseURL:      e.BaseURL,
		SystemPrompt: c.Chat.SystemPrompt,
		MaxTokens:    c.Chat.MaxTokens,
	}
}

// RequestTimeout returns the per-request cap, zero when disabled.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Chat.RequestTimeoutSecs) * time.Second
}

// HeaderTimeout returns the response header timeout.
func (c *Config) HeaderTimeout() time.Duration {
	return time.Duration(c.Chat.HeaderTimeoutSecs) * time.Second
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value using dot notation (e.g. "chat.max_tokens").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value using dot notation. String values are converted to
// the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case or kebab-case to a Go field name.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(s))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	keys := []string{"provider"}
	for _, kind := range provider.Kinds() {
		prefix := "providers." + kind.String() + "."
		keys = append(keys, prefix+"model", prefix+"api_key", prefix+"base_url")
	}
	return append(keys,
		"providers.ollama.host",
		"chat.system_prompt",
		"chat.max_tokens",
		"chat.history_turns",
		"chat.request_timeout_secs",
		"chat.header_timeout_secs",
		"log.level",
		"log.format",
		"log.file",
		"telemetry.enabled",
		"telemetry.path",
		"ui.theme",
		"ui.markdown",
		"ui.word_wrap",
	)
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "api_key")
}

// Clone returns a copy. Config holds no maps or slices, so a value copy is
// deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with every API key replaced.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	for _, kind := range provider.Kinds() {
		if e := safe.Providers.ptr(kind); e.APIKey != "" {
			e.APIKey = "[REDACTED]"
		}
	}
	return safe
}

// String renders the config as TOML with API keys redacted.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
