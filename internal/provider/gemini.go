// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/sjson"
)

// =============================================================================
// GEMINI
// =============================================================================

const geminiDefaultURL = "https://generativelanguage.googleapis.com"

type geminiAdapter struct{}

func (geminiAdapter) Kind() Kind { return KindGemini }

// BuildRequest folds the system prompt, context and prompt into a single text
// part. The key travels in the query string.
func (geminiAdapter) BuildRequest(prompt, context string, cfg Config) (RequestSpec, error) {
	cfg.Kind = KindGemini
	if err := CheckCredential(cfg); err != nil {
		return RequestSpec{}, err
	}

	text := context + prompt
	if cfg.SystemPrompt != "" {
		text = cfg.SystemPrompt + "\n\n" + text
	}

	// sjson creates objects for every path segment, which is the shape the
	// endpoint accepts for a single-part request.
	body, err := sjson.SetBytes([]byte(`{}`), "contents.parts.text", text)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s",
		cfg.baseURL(geminiDefaultURL), url.PathEscape(cfg.Model), url.QueryEscape(cfg.APIKey))

	return RequestSpec{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: jsonHeader(),
		Body:   body,
	}, nil
}

func (geminiAdapter) NewParser() Parser {
	return geminiParser{}
}

type geminiParser struct{}

func (geminiParser) ParseLine(line string) Event {
	data, ok := sseData(line)
	if !ok {
		return Ignored
	}
	payload, ok := parseJSON(data)
	if !ok {
		return Ignored
	}
	return textAt(payload, "candidates.0.content.parts.0.text")
}
