// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/relay/internal/stream"
	"github.com/jeranaias/relay/internal/ui/styles"
	"github.com/jeranaias/relay/internal/util"
)

// maxStdinPrompt bounds a prompt read from a pipe.
const maxStdinPrompt = 1 << 20

// HandleAsk sends one prompt and streams the answer to stdout. With no
// query argument the prompt is read from a non-terminal stdin. Ctrl+C
// cancels the request and keeps the partial answer on screen.
func HandleAsk(ctx context.Context, args Args, streams Streams) error {
	query := args.Query
	if strings.TrimSpace(query) == "" && streams.In != nil && !isTerminal(streams.In) {
		data, err := io.ReadAll(io.LimitReader(streams.In, maxStdinPrompt))
		if err != nil {
			return &CommandError{Command: "ask", Action: "read stdin", Err: err}
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return &UsageError{Message: "no question given", Hint: `relay ask "your question"`}
	}

	var sink stream.Sink
	var out *writerSink
	buf := &stream.BufferSink{}
	if args.NoStream {
		sink = buf
	} else {
		out = newWriterSink(streams.Out)
		sink = out
	}

	sess, err := OpenSession(args, SessionOptions{Sink: sink})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Fprintln(streams.Err, DimStyle.Render("["+sess.describe()+"]"))
	}

	j, err := sess.Send(ctx, query)
	if err != nil {
		return err
	}
	res, err := sess.Wait(context.Background(), j)
	if err != nil {
		return err
	}

	if args.NoStream {
		text := buf.String()
		if isTerminal(streams.Out) && sess.Config().UI.Markdown {
			md := styles.NewMarkdown(sess.Config().UI.Theme, wrapWidth(sess, streams.Out))
			text = md.Render(text)
		}
		fmt.Fprint(streams.Out, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(streams.Out)
		}
	} else {
		out.EndLine()
	}

	if res.Err != nil {
		if stream.IsCancelled(res.Err) {
			fmt.Fprintln(streams.Err, WarningStyle.Render("[Cancelled]"))
		}
		return res.Err
	}
	if !args.Quiet {
		fmt.Fprintln(streams.Err, DimStyle.Render(fmt.Sprintf("%s tokens in %s",
			util.FormatCount(res.ResponseTokens), util.FormatDuration(res.Duration))))
	}
	return nil
}

// wrapWidth prefers the configured width, then the terminal's.
func wrapWidth(sess *Session, w io.Writer) int {
	if ww := sess.Config().UI.WordWrap; ww > 0 {
		return ww
	}
	return TerminalWidth(w) - 2
}
