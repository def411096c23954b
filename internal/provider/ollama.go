// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// OLLAMA
// =============================================================================

// DefaultOllamaHost is the local Ollama endpoint. The explicit IPv4 address
// avoids localhost resolving to ::1 on hosts where Ollama only binds IPv4.
const DefaultOllamaHost = "http://127.0.0.1:11434"

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaAdapter struct{}

func (ollamaAdapter) Kind() Kind { return KindOllama }

func (ollamaAdapter) BuildRequest(prompt, context string, cfg Config) (RequestSpec, error) {
	cfg.Kind = KindOllama
	if err := CheckCredential(cfg); err != nil {
		return RequestSpec{}, err
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  cfg.Model,
		Prompt: context + prompt,
		System: cfg.SystemPrompt,
		Stream: true,
	})
	if err != nil {
		return RequestSpec{}, fmt.Errorf("encode ollama request: %w", err)
	}

	host := cfg.Host
	if cfg.BaseURL != "" {
		host = cfg.BaseURL
	}

	return RequestSpec{
		Method: http.MethodPost,
		URL:    strings.TrimRight(host, "/") + "/api/generate",
		Header: jsonHeader(),
		Body:   body,
	}, nil
}

func (ollamaAdapter) NewParser() Parser {
	return ollamaParser{}
}

// ollamaParser reads NDJSON. The final {"done":true} object carries an empty
// response and needs no special handling.
type ollamaParser struct{}

func (ollamaParser) ParseLine(line string) Event {
	payload, ok := parseJSON(line)
	if !ok {
		return Ignored
	}
	return textAt(payload, "response")
}
