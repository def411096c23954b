// relay - stream LLM responses from Anthropic, OpenAI, Gemini and Ollama.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/relay/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.HandleErrorAndExit(err, false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err = run(ctx, cmd, args)
	stop()

	if err != nil {
		cli.HandleErrorAndExit(err, args.JSON)
	}
}

func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	streams := cli.StdStreams()

	switch cmd {
	case cli.CmdTUI:
		return cli.HandleTUI(ctx, args)
	case cli.CmdChat:
		return cli.HandleChat(ctx, args, streams)
	case cli.CmdAsk:
		return cli.HandleAsk(ctx, args, streams)
	case cli.CmdConfig:
		return cli.HandleConfig(args, streams)
	case cli.CmdStats:
		return cli.HandleStats(ctx, args, streams)
	case cli.CmdVersion:
		cli.PrintVersion(streams.Out)
	default:
		cli.PrintUsage(streams.Out)
	}
	return nil
}
