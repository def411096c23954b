// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/relay/internal/config"
	"github.com/jeranaias/relay/internal/stream"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ledger is closed")

// =============================================================================
// TYPES
// =============================================================================

// Entry is one finished job.
type Entry struct {
	JobID          string
	Provider       string
	Model          string
	State          string
	ErrorKind      string
	ContextTokens  int
	PromptTokens   int
	ResponseTokens int
	Deltas         int
	StartedAt      time.Time
	Duration       time.Duration
}

// EntryFromResult converts a stream result to a ledger row.
func EntryFromResult(r stream.Result) Entry {
	e := Entry{
		Provider:       r.Provider.String(),
		Model:          r.Model,
		State:          r.State.String(),
		ContextTokens:  r.ContextTokens,
		PromptTokens:   r.PromptTokens,
		ResponseTokens: r.ResponseTokens,
		Deltas:         r.Deltas,
		Duration:       r.Duration,
	}
	if r.Job != nil {
		e.JobID = r.Job.ID
		e.StartedAt = r.Job.StartedAt
	}
	if r.Err != nil {
		e.ErrorKind = stream.KindOf(r.Err).String()
	}
	return e
}

// ProviderStats aggregates one provider's jobs.
type ProviderStats struct {
	Provider       string
	Jobs           int
	Failed         int
	ResponseTokens int
	AvgDuration    time.Duration
}

// Summary aggregates jobs since a point in time.
type Summary struct {
	Since          time.Time
	Jobs           int
	Completed      int
	Cancelled      int
	Failed         int
	PromptTokens   int
	ResponseTokens int
	AvgDuration    time.Duration
	ByProvider     []ProviderStats
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger stores Entries in SQLite. Safe for concurrent use.
type Ledger struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.relay/telemetry.db.
func DefaultPath() (string, error) {
	return config.ConfigPath("telemetry.db")
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	if _, err := l.db.Exec(Schema); err != nil {
		return err
	}
	_, err := l.db.Exec(InitMetadata)
	return err
}

// Path returns the database file.
func (l *Ledger) Path() string {
	return l.path
}

// Record inserts e. Recording the same job twice keeps the latest row.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.JobID == "" {
		return errors.New("entry has no job id")
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs (
			id, provider, model, state, error_kind,
			context_tokens, prompt_tokens, response_tokens, deltas,
			started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.Provider, e.Model, e.State, e.ErrorKind,
		e.ContextTokens, e.PromptTokens, e.ResponseTokens, e.Deltas,
		e.StartedAt.UnixMilli(), e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", e.JobID, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, provider, model, state, error_kind,
		       context_tokens, prompt_tokens, response_tokens, deltas,
		       started_at, duration_ms
		FROM jobs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, durMs int64
		if err := rows.Scan(&e.JobID, &e.Provider, &e.Model, &e.State, &e.ErrorKind,
			&e.ContextTokens, &e.PromptTokens, &e.ResponseTokens, &e.Deltas,
			&started, &durMs); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started)
		e.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary aggregates every job started at or after since.
func (l *Ledger) Summary(ctx context.Context, since time.Time) (Summary, error) {
	s := Summary{Since: since}
	sinceMs := since.UnixMilli()

	var avgMs float64
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(state = 'completed'), 0),
		       COALESCE(SUM(state = 'cancelled'), 0),
		       COALESCE(SUM(state = 'failed'), 0),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(response_tokens), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM jobs WHERE started_at >= ?`, sinceMs).Scan(
		&s.Jobs, &s.Completed, &s.Cancelled, &s.Failed,
		&s.PromptTokens, &s.ResponseTokens, &avgMs)
	if err != nil {
		return s, err
	}
	s.AvgDuration = time.Duration(avgMs) * time.Millisecond

	rows, err := l.db.QueryContext(ctx, `
		SELECT provider,
		       COUNT(*),
		       COALESCE(SUM(state = 'failed'), 0),
		       COALESCE(SUM(response_tokens), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM jobs WHERE started_at >= ?
		GROUP BY provider
		ORDER BY COUNT(*) DESC, provider`, sinceMs)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProviderStats
		var avg float64
		if err := rows.Scan(&ps.Provider, &ps.Jobs, &ps.Failed, &ps.ResponseTokens, &avg); err != nil {
			return s, err
		}
		ps.AvgDuration = time.Duration(avg) * time.Millisecond
		s.ByProvider = append(s.ByProvider, ps)
	}
	return s, rows.Err()
}

// Prune deletes entries started before cutoff and returns how many went.
func (l *Ledger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, "DELETE FROM jobs WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return ErrClosed
	}
	err := l.db.Close()
	l.db = nil
	return err
}
