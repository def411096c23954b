// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the relay command-line interface.
//
// The default command starts the TUI. The other commands share one Session,
// which owns the loaded configuration, the logger, the telemetry ledger and
// the streaming client.
//
// # Commands
//
//	relay                      Start the TUI
//	relay chat                 Line-oriented chat with history
//	relay ask "question"       One-shot question, streamed to stdout
//	relay config [show|path|init|get|set|keys]
//	relay stats [--since 7d]   Summarize recorded requests
//	relay version
//
// # Key Types
//
//   - Command, Args: parsed command line
//   - ArgParser: flag parsing shared by every subcommand
//   - Session: configuration, logging, telemetry and the client for one run
//   - Streams: the stdin/stdout/stderr a command talks to
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.HandleErrorAndExit(err)
//	}
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(ctx, args, cli.StdStreams())
//	}
package cli
