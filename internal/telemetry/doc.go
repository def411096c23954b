// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry keeps a local ledger of finished requests.
//
// Each finished job becomes one row: provider, model, terminal state, error
// kind, token estimates and timing. Prompt and response text are never
// stored, and nothing leaves the machine.
//
// # Key Types
//
//   - Ledger: SQLite-backed store
//   - Entry: one finished job
//   - Summary: aggregate counts for a period
//
// # Usage
//
//	ledger, err := telemetry.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer ledger.Close()
//	_ = ledger.Record(ctx, telemetry.EntryFromResult(res))
//	sum, _ := ledger.Summary(ctx, time.Now().AddDate(0, 0, -7))
package telemetry
