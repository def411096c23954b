// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/relay/internal/telemetry"
	"github.com/jeranaias/relay/internal/util"
)

// statsReport is the JSON shape of "relay stats --json".
type statsReport struct {
	Summary telemetry.Summary `json:"summary"`
	Recent  []telemetry.Entry `json:"recent,omitempty"`
}

// HandleStats prints a summary of the telemetry ledger.
func HandleStats(ctx context.Context, args Args, streams Streams) error {
	window, err := parseSince(args.Since)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	path := cfg.Telemetry.Path
	if path == "" {
		if path, err = telemetry.DefaultPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(streams.Out, DimStyle.Render("No requests recorded yet ("+path+")"))
		return nil
	}

	ledger, err := telemetry.Open(path)
	if err != nil {
		return &CommandError{Command: "stats", Action: "open ledger", Err: err}
	}
	defer ledger.Close()

	sum, err := ledger.Summary(ctx, time.Now().Add(-window))
	if err != nil {
		return &CommandError{Command: "stats", Action: "summarize", Err: err}
	}
	var recent []telemetry.Entry
	if args.Recent > 0 {
		if recent, err = ledger.Recent(ctx, args.Recent); err != nil {
			return &CommandError{Command: "stats", Action: "list", Err: err}
		}
	}

	if args.JSON {
		return outputJSON(streams.Out, statsReport{Summary: sum, Recent: recent})
	}

	fmt.Fprintln(streams.Out, TitleStyle.Render(fmt.Sprintf("Requests since %s", sum.Since.Format("2006-01-02 15:04"))))
	fmt.Fprintln(streams.Out, formatKeyValue("Total:", sum.Jobs))
	fmt.Fprintln(streams.Out, formatKeyValue("Completed:", sum.Completed))
	fmt.Fprintln(streams.Out, formatKeyValue("Cancelled:", sum.Cancelled))
	fmt.Fprintln(streams.Out, formatKeyValue("Failed:", sum.Failed))
	fmt.Fprintln(streams.Out, formatKeyValue("Prompt tokens:", sum.PromptTokens))
	fmt.Fprintln(streams.Out, formatKeyValue("Response tokens:", sum.ResponseTokens))
	fmt.Fprintln(streams.Out, formatKeyValue("Avg duration:", sum.AvgDuration))

	if len(sum.ByProvider) > 0 {
		fmt.Fprintln(streams.Out, SectionStyle.Render("By provider"))
		for _, p := range sum.ByProvider {
			fmt.Fprintf(streams.Out, "  %s %4d jobs  %3d failed  %8s tokens  avg %s\n",
				util.PadWidth(p.Provider, 10), p.Jobs, p.Failed,
				util.FormatCount(p.ResponseTokens), util.FormatDuration(p.AvgDuration))
		}
	}

	if len(recent) > 0 {
		fmt.Fprintln(streams.Out, SectionStyle.Render("Recent"))
		for _, e := range recent {
			state := e.State
			if e.ErrorKind != "" {
				state += " (" + e.ErrorKind + ")"
			}
			fmt.Fprintf(streams.Out, "  %s  %s  %s  %s\n",
				e.StartedAt.Format("01-02 15:04:05"),
				util.PadWidth(util.TruncateWidth(e.Provider+"/"+e.Model, 32), 32),
				util.PadWidth(state, 30),
				util.FormatDuration(e.Duration))
		}
	}
	return nil
}
