// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/relay/internal/job"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind categorizes errors surfaced by the client.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMissingCredential: key or host absent; the job never starts.
	KindMissingCredential
	// KindEmptyPrompt: no usable input; the job never starts.
	KindEmptyPrompt
	// KindInvalidProvider: the configured backend is not recognized.
	KindInvalidProvider
	// KindMalformedLine is only used for logging. Malformed lines are
	// skipped and never terminate a job.
	KindMalformedLine
	// KindProviderError: the provider reported an error in its response.
	KindProviderError
	// KindTransportFailure: the request failed with no provider error body.
	KindTransportFailure
	// KindUserCancelled: the job was cancelled before it finished.
	KindUserCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindMissingCredential: "missing_credential",
	KindEmptyPrompt:       "empty_prompt",
	KindInvalidProvider:   "invalid_provider",
	KindMalformedLine:     "malformed_line",
	KindProviderError:     "provider_error",
	KindTransportFailure:  "transport_failure",
	KindUserCancelled:     "user_cancelled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is returned by Send and reported as a job's terminal error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinel errors for errors.Is checks. They match any error of their kind.
var (
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrEmptyPrompt       = &Error{Kind: KindEmptyPrompt}
	ErrProvider          = &Error{Kind: KindProviderError}
	ErrTransport         = &Error{Kind: KindTransportFailure}
	ErrCancelled         = &Error{Kind: KindUserCancelled}
)

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a stream Error of kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return IsKind(err, KindUserCancelled)
}

// =============================================================================
// TERMINAL CLASSIFICATION
// =============================================================================

// genericProviderMessage is used when an error payload carries no message.
const genericProviderMessage = "provider returned an error"

// Exit describes how the transport ended.
type Exit struct {
	StatusCode int
}

// OK reports whether the status code is 2xx. A zero code means no response
// was received.
func (e Exit) OK() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// Classify decides a job's terminal state. An error payload in the raw output
// wins over everything else, then any error event seen mid-stream, then the
// cancellation flag, then the transport outcome.
func Classify(raw, streamErr string, exit Exit, transportErr error, cancelled bool) (job.State, error) {
	if msg, ok := BodyError(raw); ok {
		return job.StateFailed, newError(KindProviderError, msg, nil)
	}
	if streamErr != "" {
		return job.StateFailed, newError(KindProviderError, streamErr, nil)
	}
	if cancelled {
		return job.StateCancelled, newError(KindUserCancelled, "request cancelled", nil)
	}
	if transportErr != nil {
		return job.StateFailed, newError(KindTransportFailure, "request failed", transportErr)
	}
	if !exit.OK() {
		return job.StateFailed, newError(KindTransportFailure,
			fmt.Sprintf("unexpected status %d %s", exit.StatusCode, http.StatusText(exit.StatusCode)), nil)
	}
	return job.StateCompleted, nil
}

// BodyError inspects an accumulated response body for a JSON error payload.
// Bodies that are slightly malformed (truncated by a dropped connection) are
// repaired before giving up. SSE bodies never start with a JSON delimiter and
// are skipped.
func BodyError(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}
	if !gjson.Valid(s) {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil || !gjson.Valid(repaired) {
			return "", false
		}
		s = repaired
	}

	doc := gjson.Parse(s)
	switch {
	case doc.IsObject():
		return errorMember(doc)
	case doc.IsArray():
		for _, item := range doc.Array() {
			if msg, ok := errorMember(item); ok {
				return msg, true
			}
		}
	}
	return "", false
}

func errorMember(obj gjson.Result) (string, bool) {
	e := obj.Get("error")
	if !e.Exists() || e.Type == gjson.Null {
		return "", false
	}
	if e.Type == gjson.String && e.Str != "" {
		return e.Str, true
	}
	if msg := e.Get("message"); msg.Type == gjson.String && msg.Str != "" {
		return msg.Str, true
	}
	return genericProviderMessage, true
}
