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
// OPENAI
// =============================================================================

const openAIDefaultURL = "https://api.openai.com"

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
}

type openAIAdapter struct{}

func (openAIAdapter) Kind() Kind { return KindOpenAI }

func (openAIAdapter) BuildRequest(prompt, context string, cfg Config) (RequestSpec, error) {
	cfg.Kind = KindOpenAI
	if err := CheckCredential(cfg); err != nil {
		return RequestSpec{}, err
	}

	body, err := json.Marshal(openAIRequest{
		Model: cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: cfg.SystemPrompt},
			{Role: "user", Content: context + prompt},
		},
		MaxTokens: cfg.maxTokens(),
		Stream:    true,
	})
	if err != nil {
		return RequestSpec{}, fmt.Errorf("encode openai request: %w", err)
	}

	h := jsonHeader()
	h.Set("Authorization", "Bearer "+cfg.APIKey)

	return RequestSpec{
		Method: http.MethodPost,
		URL:    cfg.baseURL(openAIDefaultURL) + "/v1/chat/completions",
		Header: h,
		Body:   body,
	}, nil
}

func (openAIAdapter) NewParser() Parser {
	return openAIParser{}
}

type openAIParser struct{}

func (openAIParser) ParseLine(line string) Event {
	data, ok := sseData(line)
	if !ok || strings.TrimSpace(data) == doneMarker {
		return Ignored
	}
	payload, ok := parseJSON(data)
	if !ok {
		return Ignored
	}
	return textAt(payload, "choices.0.delta.content")
}
