// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider translates between relay's provider-neutral request and
// the wire formats of the supported LLM backends.
//
// Each backend is an Adapter with two halves: BuildRequest produces the HTTP
// request for a prompt plus rendered conversation context, and NewParser
// returns a fresh line parser that turns raw streamed lines into Events.
// Parsers may keep state between lines, so a parser must never be shared
// between jobs.
//
// # Key Types
//
//   - Kind: backend identifier (anthropic, openai, gemini, ollama)
//   - Config: immutable per-job settings (model, credential, host, limits)
//   - RequestSpec: method, URL, headers and JSON body for one request
//   - Event: TextDelta, ProviderError or Ignored
//   - Adapter / Parser: the per-backend request builder and line parser
//
// # Usage
//
//	adapter, err := provider.For(provider.KindOllama)
//	if err != nil {
//	    return err
//	}
//	spec, err := adapter.BuildRequest("What is 2+2?", "", cfg)
//	parser := adapter.NewParser()
//	for _, line := range lines {
//	    if ev := parser.ParseLine(line); ev.Type == provider.EventTextDelta {
//	        fmt.Print(ev.Text)
//	    }
//	}
package provider
