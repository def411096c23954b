// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// =============================================================================
// ANTHROPIC
// =============================================================================

const (
	anthropicDefaultURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
}

type anthropicAdapter struct{}

func (anthropicAdapter) Kind() Kind { return KindAnthropic }

func (anthropicAdapter) BuildRequest(prompt, context string, cfg Config) (RequestSpec, error) {
	cfg.Kind = KindAnthropic
	if err := CheckCredential(cfg); err != nil {
		return RequestSpec{}, err
	}

	body, err := json.Marshal(anthropicRequest{
		System:    cfg.SystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: context + prompt}},
		Model:     cfg.Model,
		MaxTokens: cfg.maxTokens(),
		Stream:    true,
	})
	if err != nil {
		return RequestSpec{}, fmt.Errorf("encode anthropic request: %w", err)
	}

	h := jsonHeader()
	h.Set("x-api-key", cfg.APIKey)
	h.Set("anthropic-version", anthropicVersion)

	return RequestSpec{
		Method: http.MethodPost,
		URL:    cfg.baseURL(anthropicDefaultURL) + "/v1/messages",
		Header: h,
		Body:   body,
	}, nil
}

func (anthropicAdapter) NewParser() Parser {
	return &anthropicParser{}
}

// anthropicParser tracks the most recent "event:" line because the data
// line that follows does not repeat its type in a way we can rely on.
type anthropicParser struct {
	lastEvent string
}

func (p *anthropicParser) ParseLine(line string) Event {
	name, value, ok := sseField(line)
	if !ok {
		return Ignored
	}

	switch name {
	case "event":
		p.lastEvent = value
		return Ignored
	case "data":
	default:
		return Ignored
	}

	payload, ok := parseJSON(value)
	if !ok {
		return Ignored
	}
	if p.lastEvent == "error" || payload.Get("type").String() == "error" {
		if msg, ok := embeddedError(payload); ok {
			return ProviderError(msg)
		}
		return ProviderError("provider returned an error")
	}
	if p.lastEvent != "content_block_delta" {
		return Ignored
	}
	return textAt(payload, "delta.text")
}
