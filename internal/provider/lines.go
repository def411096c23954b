// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"strings"

	"github.com/tidwall/gjson"
)

// =============================================================================
// LINE HELPERS
// =============================================================================

// doneMarker terminates OpenAI-style SSE streams.
const doneMarker = "[DONE]"

// sseField splits an SSE line of the form "name: value". Comment lines and
// lines without a colon report ok=false.
func sseField(line string) (name, value string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, ":") {
		return "", "", false
	}
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	name = line[:idx]
	value = strings.TrimPrefix(line[idx+1:], " ")
	return name, value, true
}

// sseData returns the payload of a "data:" line.
func sseData(line string) (string, bool) {
	name, value, ok := sseField(line)
	if !ok || name != "data" {
		return "", false
	}
	return value, true
}

// embeddedError extracts the message of an "error" member from a JSON
// payload. Both {"error":"msg"} and {"error":{"message":"msg"}} are accepted.
func embeddedError(payload gjson.Result) (string, bool) {
	errField := payload.Get("error")
	if !errField.Exists() {
		return "", false
	}
	if errField.Type == gjson.String {
		return errField.String(), true
	}
	if msg := errField.Get("message"); msg.Exists() && msg.String() != "" {
		return msg.String(), true
	}
	return "provider returned an error", true
}

// parseJSON returns the parsed payload when it is a valid JSON object.
func parseJSON(s string) (gjson.Result, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(s)
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	return r, true
}

// textAt emits a TextDelta for a non-empty string at path, an error event for
// an embedded error, and Ignored otherwise.
func textAt(payload gjson.Result, path string) Event {
	if msg, ok := embeddedError(payload); ok {
		return ProviderError(msg)
	}
	v := payload.Get(path)
	if v.Type != gjson.String || v.Str == "" {
		return Ignored
	}
	return TextDelta(v.Str)
}
