// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// =============================================================================
// PROVIDER KIND
// =============================================================================

// Kind identifies a backend.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
)

// ParseKind converts a user-supplied name to a Kind. Matching is case-insensitive
// and accepts a few common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic", "claude":
		return KindAnthropic, nil
	case "openai", "gpt", "chatgpt":
		return KindOpenAI, nil
	case "gemini", "google":
		return KindGemini, nil
	case "ollama", "local":
		return KindOllama, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// String returns the canonical provider name.
func (k Kind) String() string {
	return string(k)
}

// NeedsAPIKey reports whether the backend authenticates with an API key.
// Ollama needs a host instead.
func (k Kind) NeedsAPIKey() bool {
	return k != KindOllama
}

// Kinds returns every supported backend in a stable order.
func Kinds() []Kind {
	return []Kind{KindAnthropic, KindOpenAI, KindGemini, KindOllama}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrMissingCredential is returned by BuildRequest when the API key
	// (or the Ollama host) is absent.
	ErrMissingCredential = errors.New("missing credential")

	// ErrUnknownProvider is returned for an unrecognized backend name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// =============================================================================
// CONFIG
// =============================================================================

// DefaultMaxTokens is used when Config.MaxTokens is zero.
const DefaultMaxTokens = 4096

// Config holds the per-job settings for one backend. A job captures a copy at
// start; changing the active configuration only affects later jobs.
type Config struct {
	Kind         Kind
	Model        string
	APIKey       string
	Host         string // Ollama only, e.g. http://127.0.0.1:11434
	BaseURL      string // overrides the hosted endpoint; empty uses the default
	SystemPrompt string
	MaxTokens    int
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) baseURL(def string) string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return def
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "[REDACTED]"
	}
	return c
}

// =============================================================================
// REQUEST / EVENT
// =============================================================================

// RequestSpec describes one outbound streaming request.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// EventType tags an Event.
type EventType int

const (
	// EventIgnored covers keep-alives, metadata, terminators and anything
	// that could not be parsed.
	EventIgnored EventType = iota
	// EventTextDelta carries a fragment of generated text.
	EventTextDelta
	// EventProviderError carries an error message embedded in the stream.
	EventProviderError
)

func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventProviderError:
		return "provider_error"
	default:
		return "ignored"
	}
}

// Event is the result of parsing one streamed line.
type Event struct {
	Type EventType
	Text string // delta text or error message
}

// Ignored is the zero Event.
var Ignored = Event{}

// TextDelta returns a text event.
func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, Text: text}
}

// ProviderError returns an error event.
func ProviderError(msg string) Event {
	return Event{Type: EventProviderError, Text: msg}
}

// =============================================================================
// ADAPTER
// =============================================================================

// Parser converts raw stream lines to Events. Lines must be fed in arrival
// order. Implementations are not safe for concurrent use.
type Parser interface {
	ParseLine(line string) Event
}

// Adapter is implemented once per backend.
type Adapter interface {
	Kind() Kind
	BuildRequest(prompt, context string, cfg Config) (RequestSpec, error)
	NewParser() Parser
}

var registry = map[Kind]Adapter{
	KindAnthropic: anthropicAdapter{},
	KindOpenAI:    openAIAdapter{},
	KindGemini:    geminiAdapter{},
	KindOllama:    ollamaAdapter{},
}

// For returns the adapter for kind.
func For(kind Kind) (Adapter, error) {
	a, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}
	return a, nil
}

// Names lists registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// CheckCredential validates that cfg carries what its backend needs to
// authenticate without building a request.
func CheckCredential(cfg Config) error {
	if cfg.Kind.NeedsAPIKey() {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return fmt.Errorf("%w: %s API key is not set", ErrMissingCredential, cfg.Kind)
		}
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" && cfg.BaseURL == "" {
		return fmt.Errorf("%w: %s host is not set", ErrMissingCredential, cfg.Kind)
	}
	return nil
}

func jsonHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}
