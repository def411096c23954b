// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/relay/internal/provider"
)

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport performs one streaming request, calling onLine for every line of
// the response body in arrival order. It returns when the body ends, the
// context is cancelled or the connection fails. onLine is always called from
// the goroutine that called Stream.
type Transport interface {
	Stream(ctx context.Context, spec provider.RequestSpec, onLine func(line string)) (Exit, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, spec provider.RequestSpec, onLine func(string)) (Exit, error)

func (f TransportFunc) Stream(ctx context.Context, spec provider.RequestSpec, onLine func(string)) (Exit, error) {
	return f(ctx, spec, onLine)
}

// Transport defaults.
const (
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultMaxLineSize           = 1024 * 1024
	initialLineBuffer            = 64 * 1024
)

// HTTPOptions configures an HTTPTransport.
type HTTPOptions struct {
	// ResponseHeaderTimeout bounds the wait for the first response byte
	// after the request is written. Zero uses the default.
	ResponseHeaderTimeout time.Duration

	// MaxLineSize is the longest accepted line. Zero uses the default.
	MaxLineSize int

	// Client replaces the built-in HTTP client when non-nil.
	Client *http.Client
}

// HTTPTransport streams over HTTP/1.1 or HTTP/2. Safe for concurrent use.
type HTTPTransport struct {
	client      *http.Client
	maxLineSize int
}

// NewHTTPTransport creates a transport. The client has no overall timeout
// because streams legitimately run for minutes; cancellation comes from the
// request context.
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = DefaultMaxLineSize
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				ForceAttemptHTTP2:     true,
			},
		}
	}

	return &HTTPTransport{client: client, maxLineSize: opts.MaxLineSize}
}

// Stream sends the request and feeds every body line to onLine, including
// the body of non-2xx responses so error payloads can be classified.
func (t *HTTPTransport) Stream(ctx context.Context, spec provider.RequestSpec, onLine func(string)) (Exit, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, bytes.NewReader(spec.Body))
	if err != nil {
		return Exit{}, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream, application/x-ndjson, application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Exit{}, err
	}
	defer resp.Body.Close()

	exit := Exit{StatusCode: resp.StatusCode}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), t.maxLineSize)
	for scanner.Scan() {
		onLine(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return exit, err
	}
	// A cancelled context can surface as a clean EOF on some transports.
	if err := ctx.Err(); err != nil {
		return exit, err
	}
	return exit, nil
}
