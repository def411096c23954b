// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/relay/internal/history"
	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/provider"
)

// DefaultMaxRawBytes bounds the raw output kept per job.
const DefaultMaxRawBytes = 1024 * 1024

// =============================================================================
// RESULT
// =============================================================================

// Result summarizes a finished job.
type Result struct {
	Job      *job.Job
	State    job.State
	Err      error
	Provider provider.Kind
	Model    string

	// Response is the text accumulated in history, partial on cancel or
	// failure.
	Response string
	Deltas   int

	PromptTokens   int
	ContextTokens  int
	ResponseTokens int
	Duration       time.Duration
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends prompts and streams responses. All methods are safe for
// concurrent use.
type Client struct {
	transport      Transport
	sink           Sink
	pump           *Pump
	logger         *slog.Logger
	historyLimit   int
	requestTimeout time.Duration
	maxRawBytes    int
	onFinish       func(Result)

	history    *history.History
	controller *job.Controller

	// sendMu serializes Send so a job's run is registered before any later
	// Send can supersede it.
	sendMu sync.Mutex

	mu   sync.Mutex
	runs map[*job.Job]*run
	wg   sync.WaitGroup
}

// run is the per-job state owned by the streaming goroutine. Fields touched
// by dispatch are guarded by the controller lock.
type run struct {
	kind          provider.Kind
	model         string
	responseSeq   uint64
	promptTokens  int
	contextTokens int

	raw       rawBuffer
	streamErr string

	deltas   int
	response strings.Builder
}

// New creates a client. Without WithTransport it uses an HTTPTransport with
// default options.
func New(opts ...Option) *Client {
	c := &Client{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRawBytes: DefaultMaxRawBytes,
		runs:        make(map[*job.Job]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(HTTPOptions{})
	}
	if c.sink != nil {
		c.pump = NewPump(c.sink)
	}
	c.history = history.New(c.historyLimit)
	c.controller = job.NewController(
		job.WithLogger(c.logger),
		job.WithOnTerminal(c.onTerminal),
	)
	return c
}

// Send starts a job for prompt using cfg. Any live job is cancelled first.
// Input and credential errors are returned before anything changes, in which
// case the running job, if any, keeps going.
func (c *Client) Send(ctx context.Context, prompt string, cfg provider.Config) (*job.Job, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, newError(KindEmptyPrompt, "prompt is empty", nil)
	}

	adapter, err := provider.For(cfg.Kind)
	if err != nil {
		return nil, newError(KindInvalidProvider, "invalid provider", err)
	}
	if err := provider.CheckCredential(cfg); err != nil {
		return nil, newError(KindMissingCredential, "cannot start request", err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	contextText := c.history.BuildContext()
	spec, err := adapter.BuildRequest(prompt, contextText, cfg)
	if err != nil {
		if errors.Is(err, provider.ErrMissingCredential) {
			return nil, newError(KindMissingCredential, "cannot start request", err)
		}
		return nil, newError(KindUnknown, "build request", err)
	}

	c.history.AppendPrompt(prompt)
	r := &run{
		kind:          cfg.Kind,
		model:         cfg.Model,
		responseSeq:   c.history.AppendResponsePlaceholder(),
		promptTokens:  history.EstimateTokens(prompt),
		contextTokens: history.EstimateTokens(contextText),
	}
	r.raw.limit = c.maxRawBytes

	// The job outlives the caller's context values but not its cancellation,
	// which is routed through the controller so the flag is set first.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if c.requestTimeout > 0 {
		jobCtx, cancel = withTimeout(jobCtx, cancel, c.requestTimeout)
	}

	j, prev := c.controller.Start(job.Meta{
		Provider: cfg.Kind.String(),
		Model:    cfg.Model,
		Prompt:   prompt,
	}, cancel)

	c.mu.Lock()
	c.runs[j] = r
	c.mu.Unlock()

	if prev != nil {
		c.logger.Info("previous request cancelled", "job", prev.ID)
	}
	c.logger.Info("request started",
		"job", j.ID,
		"provider", cfg.Kind.String(),
		"model", cfg.Model,
		"context_tokens", r.contextTokens,
		"prompt_tokens", r.promptTokens,
	)

	stop := context.AfterFunc(ctx, func() { c.controller.CancelJob(j) })

	c.wg.Add(1)
	go c.stream(jobCtx, cancel, stop, j, r, adapter.NewParser(), spec)

	return j, nil
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}

// stream runs the transport for one job and finalizes it.
func (c *Client) stream(ctx context.Context, cancel context.CancelFunc, stop func() bool,
	j *job.Job, r *run, parser provider.Parser, spec provider.RequestSpec) {
	defer c.wg.Done()

	exit, err := c.transport.Stream(ctx, spec, func(line string) {
		r.raw.add(line)

		ev := parser.ParseLine(line)
		switch ev.Type {
		case provider.EventTextDelta:
			c.controller.Dispatch(j, func() {
				r.deltas++
				r.response.WriteString(ev.Text)
				c.history.AppendResponse(r.responseSeq, ev.Text)
				if c.pump != nil {
					c.pump.Append(ev.Text)
				}
			})
		case provider.EventProviderError:
			if r.streamErr == "" {
				r.streamErr = ev.Text
			}
			c.logger.Warn("provider error in stream", "job", j.ID, "message", ev.Text)
		}
	})

	stop()
	cancel()

	c.controller.Finish(j, func(cancelled bool) (job.State, error) {
		return Classify(r.raw.String(), r.streamErr, exit, err, cancelled)
	})
}

// onTerminal runs once per job, from whichever goroutine finalized it.
func (c *Client) onTerminal(j *job.Job) {
	c.mu.Lock()
	r := c.runs[j]
	delete(c.runs, j)
	c.mu.Unlock()
	if r == nil {
		return
	}

	c.history.Freeze(r.responseSeq)

	err := j.Err()
	if errors.Is(err, job.ErrSuperseded) {
		err = newError(KindUserCancelled, "request cancelled", err)
	}

	// Dispatch is closed for this job, so the response is final.
	response := r.response.String()
	res := Result{
		Job:            j,
		State:          j.State(),
		Err:            err,
		Provider:       r.kind,
		Model:          r.model,
		Response:       response,
		Deltas:         r.deltas,
		PromptTokens:   r.promptTokens,
		ContextTokens:  r.contextTokens,
		ResponseTokens: history.EstimateTokens(response),
		Duration:       j.Duration(),
	}

	attrs := []any{
		"job", j.ID,
		"state", res.State.String(),
		"deltas", res.Deltas,
		"duration", res.Duration,
	}
	if err != nil && !IsCancelled(err) {
		c.logger.Warn("request failed", append(attrs, "kind", KindOf(err).String(), "error", err)...)
	} else {
		c.logger.Info("request finished", attrs...)
	}

	if c.onFinish == nil {
		return
	}
	if c.pump != nil {
		c.pump.Do(func() { c.onFinish(res) })
		return
	}
	c.onFinish(res)
}

// Cancel cancels the current job. It returns false if nothing was running.
func (c *Client) Cancel() bool {
	return c.controller.Cancel()
}

// Current returns the most recent job, or nil.
func (c *Client) Current() *job.Job {
	return c.controller.Current()
}

// State returns the controller state.
func (c *Client) State() job.State {
	return c.controller.State()
}

// History returns a snapshot of the conversation log.
func (c *Client) History() []history.Turn {
	return c.history.Turns()
}

// HistoryLimit returns the turn bound.
func (c *Client) HistoryLimit() int {
	return c.history.Limit()
}

// SetHistoryLimit changes the turn bound for later jobs.
func (c *Client) SetHistoryLimit(k int) {
	c.history.SetLimit(k)
}

// ClearHistory empties the conversation log.
func (c *Client) ClearHistory() {
	c.history.Clear()
}

// ContextTokens estimates the size of the context the next prompt carries.
func (c *Client) ContextTokens() int {
	return history.EstimateTokens(c.history.BuildContext())
}

// Flush waits for queued deltas and finish callbacks to be delivered.
func (c *Client) Flush() {
	if c.pump != nil {
		c.pump.Flush()
	}
}

// Close cancels the live job, waits for streaming goroutines and drains the
// sink.
func (c *Client) Close() {
	c.controller.Cancel()
	c.wg.Wait()
	if c.pump != nil {
		c.pump.Close()
	}
}

// =============================================================================
// RAW BUFFER
// =============================================================================

// rawBuffer keeps the head of the response body, up to limit bytes. Error
// payloads are short and arrive first, so the head is what matters.
type rawBuffer struct {
	sb    strings.Builder
	limit int
}

func (b *rawBuffer) add(line string) {
	if b.limit > 0 && b.sb.Len()+len(line)+1 > b.limit {
		return
	}
	b.sb.WriteString(line)
	b.sb.WriteByte('\n')
}

func (b *rawBuffer) String() string {
	return b.sb.String()
}
