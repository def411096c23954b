// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/relay/internal/config"
	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/logging"
	"github.com/jeranaias/relay/internal/provider"
	"github.com/jeranaias/relay/internal/stream"
	"github.com/jeranaias/relay/internal/telemetry"
	"github.com/jeranaias/relay/internal/util"
)

// =============================================================================
// SESSION
// =============================================================================

// SessionOptions customizes OpenSession.
type SessionOptions struct {
	// Sink receives deltas. Nil discards them.
	Sink stream.Sink
	// OnFinish runs after each job's last delta has reached Sink.
	OnFinish func(stream.Result)
	// Transport overrides the HTTP transport.
	Transport stream.Transport
	// Watch enables config hot reload.
	Watch bool
}

// SessionStats counts jobs finished during this session.
type SessionStats struct {
	Jobs           int
	Completed      int
	Cancelled      int
	Failed         int
	PromptTokens   int
	ResponseTokens int
	Elapsed        time.Duration
}

// Session ties together configuration, logging, telemetry and the streaming
// client for one CLI or TUI run.
type Session struct {
	Client *stream.Client
	Logger *logging.Logger
	Ledger *telemetry.Ledger

	cfgPath string
	watcher *config.Watcher
	started time.Time

	mu       sync.RWMutex
	cfg      *config.Config
	kind     provider.Kind
	model    string
	system   string
	stats    SessionStats
	last     stream.Result
	hasLast  bool
	onFinish func(stream.Result)
}

// OpenSession loads configuration and builds the client.
func OpenSession(args Args, opts SessionOptions) (*Session, error) {
	cfg, path, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if args.Verbose {
		logCfg.Level = "debug"
		logCfg.File = logging.StderrPath
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Logger:   logger,
		cfg:      cfg,
		cfgPath:  path,
		kind:     cfg.ActiveProvider(),
		model:    args.Model,
		system:   args.System,
		started:  time.Now(),
		onFinish: opts.OnFinish,
	}
	if args.Provider != "" {
		kind, err := provider.ParseKind(args.Provider)
		if err != nil {
			logger.Close()
			return nil, &UsageError{Message: err.Error(), Hint: "valid providers: anthropic, openai, gemini, ollama"}
		}
		s.kind = kind
	}

	if cfg.Telemetry.Enabled {
		s.openLedger(cfg.Telemetry.Path)
	}

	clientOpts := []stream.Option{
		stream.WithLogger(logger.Logger),
		stream.WithHistoryLimit(cfg.Chat.HistoryTurns),
		stream.WithRequestTimeout(cfg.RequestTimeout()),
		stream.WithOnFinish(s.finished),
	}
	if opts.Sink != nil {
		clientOpts = append(clientOpts, stream.WithSink(opts.Sink))
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, stream.WithTransport(opts.Transport))
	} else {
		clientOpts = append(clientOpts, stream.WithTransport(stream.NewHTTPTransport(stream.HTTPOptions{
			ResponseHeaderTimeout: cfg.HeaderTimeout(),
		})))
	}
	s.Client = stream.New(clientOpts...)

	if opts.Watch && path != "" {
		s.startWatcher()
	}

	logger.Debug("session opened", "provider", s.kind, "config", path)
	return s, nil
}

func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.LoadFromPath(explicit)
		return cfg, explicit, err
	}
	path, err := config.FindConfigFile()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load()
	return cfg, path, err
}

func (s *Session) openLedger(path string) {
	if path == "" {
		p, err := telemetry.DefaultPath()
		if err != nil {
			s.Logger.Warn("telemetry disabled", "error", err)
			return
		}
		path = p
	}
	ledger, err := telemetry.Open(path)
	if err != nil {
		s.Logger.Warn("telemetry disabled", "path", path, "error", err)
		return
	}
	s.Ledger = ledger
}

func (s *Session) startWatcher() {
	w, err := config.NewWatcher(s.cfgPath, config.WatcherOptions{
		Logger:   s.Logger.Logger,
		OnChange: s.applyConfig,
	})
	if err != nil {
		s.Logger.Warn("config watch unavailable", "error", err)
		return
	}
	if err := w.Watch(); err != nil {
		s.Logger.Warn("config watch unavailable", "error", err)
		w.Close()
		return
	}
	s.watcher = w
}

// applyConfig swaps in a reloaded config. Jobs already running keep the
// settings they started with.
func (s *Session) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	prevDefault := s.cfg.ActiveProvider()
	s.cfg = cfg
	if s.kind == prevDefault {
		s.kind = cfg.ActiveProvider()
	}
	s.mu.Unlock()

	s.Client.SetHistoryLimit(cfg.Chat.HistoryTurns)
	s.Logger.Info("config applied", "provider", cfg.Provider, "history_turns", cfg.Chat.HistoryTurns)
}

// finished runs on the client's sink goroutine.
func (s *Session) finished(r stream.Result) {
	s.mu.Lock()
	s.stats.Jobs++
	switch r.State {
	case job.StateCompleted:
		s.stats.Completed++
	case job.StateCancelled:
		s.stats.Cancelled++
	case job.StateFailed:
		s.stats.Failed++
	}
	s.stats.PromptTokens += r.PromptTokens + r.ContextTokens
	s.stats.ResponseTokens += r.ResponseTokens
	s.last = r
	s.hasLast = true
	hook := s.onFinish
	s.mu.Unlock()

	if s.Ledger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.Ledger.Record(ctx, telemetry.EntryFromResult(r)); err != nil {
			s.Logger.Warn("telemetry record failed", "error", err)
		}
		cancel()
	}
	if hook != nil {
		hook(r)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Config returns the active configuration.
func (s *Session) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ConfigPath returns the loaded config file, or "" when running on defaults.
func (s *Session) ConfigPath() string {
	return s.cfgPath
}

// Provider returns the backend used for the next prompt.
func (s *Session) Provider() provider.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// SetProvider switches backends for later prompts. The model override is
// cleared since model names are provider-specific.
func (s *Session) SetProvider(name string) error {
	kind, err := provider.ParseKind(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.kind = kind
	s.model = ""
	s.mu.Unlock()
	return nil
}

// Model returns the model for the next prompt.
func (s *Session) Model() string {
	return s.ProviderConfig().Model
}

// SetModel overrides the configured model. "" restores it.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// ProviderConfig builds the request settings for the next prompt.
func (s *Session) ProviderConfig() provider.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc := s.cfg.ProviderConfig(s.kind)
	if s.model != "" {
		pc.Model = s.model
	}
	if s.system != "" {
		pc.SystemPrompt = s.system
	}
	return pc
}

// Stats returns counters for this session.
func (s *Session) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Elapsed = time.Since(s.started)
	return st
}

// LastResult returns the most recent finished job.
func (s *Session) LastResult() (stream.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// Slog returns the underlying structured logger.
func (s *Session) Slog() *slog.Logger {
	return s.Logger.Logger
}

// Send normalizes prompt and starts a job with the current settings.
func (s *Session) Send(ctx context.Context, prompt string) (*job.Job, error) {
	return s.Client.Send(ctx, util.NormalizePrompt(prompt), s.ProviderConfig())
}

// Cancel cancels the running job, if any.
func (s *Session) Cancel() bool {
	return s.Client.Cancel()
}

// ClearHistory forgets the conversation.
func (s *Session) ClearHistory() {
	s.Client.ClearHistory()
}

// ContextTokens estimates the context the next prompt would carry.
func (s *Session) ContextTokens() int {
	return s.Client.ContextTokens()
}

// HistoryLimit returns how many turns are kept.
func (s *Session) HistoryLimit() int {
	return s.Client.HistoryLimit()
}

// Wait blocks until j is terminal and its output and finish hook have been
// delivered, then returns its result.
func (s *Session) Wait(ctx context.Context, j *job.Job) (stream.Result, error) {
	select {
	case <-j.Done():
	case <-ctx.Done():
		return stream.Result{}, ctx.Err()
	}
	s.Client.Flush()
	r, _ := s.LastResult()
	if r.Job != j {
		return stream.Result{Job: j, State: j.State(), Err: j.Err()}, nil
	}
	return r, nil
}

// Close stops the watcher, cancels any live job and releases resources.
func (s *Session) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.Client.Close()
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			s.Logger.Warn("telemetry close failed", "error", err)
		}
	}
	s.Logger.Debug("session closed")
	s.Logger.Close()
}

// describe renders "provider/model" for banners.
func (s *Session) describe() string {
	pc := s.ProviderConfig()
	if pc.Model == "" {
		return pc.Kind.String()
	}
	return fmt.Sprintf("%s/%s", pc.Kind, pc.Model)
}
