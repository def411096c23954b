// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

// SchemaVersion is stored in the metadata table.
const SchemaVersion = "1"

// Schema creates the ledger tables. Times are Unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
    id              TEXT PRIMARY KEY,
    provider        TEXT NOT NULL,
    model           TEXT NOT NULL,
    state           TEXT NOT NULL,
    error_kind      TEXT NOT NULL DEFAULT '',
    context_tokens  INTEGER NOT NULL DEFAULT 0,
    prompt_tokens   INTEGER NOT NULL DEFAULT 0,
    response_tokens INTEGER NOT NULL DEFAULT 0,
    deltas          INTEGER NOT NULL DEFAULT 0,
    started_at      INTEGER NOT NULL,
    duration_ms     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);
CREATE INDEX IF NOT EXISTS idx_jobs_provider ON jobs(provider);
`

// InitMetadata seeds the metadata table.
const InitMetadata = `INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '` + SchemaVersion + `');`
