// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/relay/internal/config"
	"github.com/jeranaias/relay/internal/history"
	"github.com/jeranaias/relay/internal/job"
	"github.com/jeranaias/relay/internal/provider"
	"github.com/jeranaias/relay/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the REPL's input source.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// linerReader offers line editing and persistent history on a terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &linerReader{line: line}
	if p, err := config.ConfigPath("chat_history"); err == nil {
		r.historyFile = p
		if f, err := os.Open(p); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions.
func (r *linerReader) Close() error {
	defer r.line.Close()
	if r.historyFile == "" {
		return nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.line.WriteHistory(f)
	return err
}

// scanReader reads piped input one line at a time.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxStdinPrompt)
	return &scanReader{sc: sc}
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	sess   *Session
	sink   *writerSink
	out    io.Writer
	errw   io.Writer
	quiet  bool
	width  int
	cancel chan os.Signal
}

// HandleChat runs the interactive chat loop. Ctrl+C during a response
// cancels it. Ctrl+C or Ctrl+D at the prompt exits.
func HandleChat(ctx context.Context, args Args, streams Streams) error {
	sink := newWriterSink(streams.Out)
	sess, err := OpenSession(args, SessionOptions{Sink: sink, Watch: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	var reader lineReader
	if isTerminal(streams.In) {
		reader = newLinerReader()
	} else {
		reader = newScanReader(streams.In)
	}
	defer reader.Close()

	r := &repl{
		sess:   sess,
		sink:   sink,
		out:    streams.Out,
		errw:   streams.Err,
		quiet:  args.Quiet,
		width:  TerminalWidth(streams.Out),
		cancel: make(chan os.Signal, 1),
	}
	signal.Notify(r.cancel, os.Interrupt)
	defer signal.Stop(r.cancel)

	if !r.quiet {
		r.printWelcome()
	}

	for {
		input, err := reader.ReadLine(PromptStyle.Render("relay> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				r.printExitSummary()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			r.printExitSummary()
			return nil
		}
		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleSlash(input)
			if err != nil {
				DisplayError(r.errw, err, false)
			}
			if !keepGoing {
				r.printExitSummary()
				return nil
			}
			continue
		}

		if err := r.runPrompt(ctx, input); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			DisplayError(r.errw, err, false)
		}
	}
}

// runPrompt sends input and blocks until the response has been printed.
func (r *repl) runPrompt(ctx context.Context, input string) error {
	j, err := r.sess.Send(ctx, input)
	if err != nil {
		return err
	}

	for waiting := true; waiting; {
		select {
		case <-j.Done():
			waiting = false
		case <-r.cancel:
			r.sess.Client.Cancel()
		case <-ctx.Done():
			r.sess.Client.Cancel()
			<-j.Done()
			waiting = false
		}
	}

	res, _ := r.sess.Wait(context.Background(), j)
	r.sink.EndLine()

	switch {
	case res.State == job.StateCancelled:
		fmt.Fprintln(r.errw, WarningStyle.Render("[Cancelled]"))
		return nil
	case res.Err != nil:
		return res.Err
	}
	if !r.quiet {
		fmt.Fprintln(r.errw, DimStyle.Render(fmt.Sprintf("%s tokens | %s",
			util.FormatCount(res.ResponseTokens), util.FormatDuration(res.Duration))))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlash runs a slash command. It returns false when the REPL should
// exit.
func (r *repl) handleSlash(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]

	switch cmd {
	case "/help", "/h", "/?":
		r.printHelp()
	case "/quit", "/q", "/exit":
		return false, nil
	case "/provider", "/p":
		if len(rest) == 0 {
			fmt.Fprintln(r.out, formatKeyValue("Provider:", r.sess.Provider().String()))
			fmt.Fprintln(r.out, formatKeyValue("Available:", strings.Join(provider.Names(), ", ")))
			return true, nil
		}
		if err := r.sess.SetProvider(rest[0]); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Switched to "+r.sess.describe()))
	case "/model", "/m":
		if len(rest) == 0 {
			fmt.Fprintln(r.out, formatKeyValue("Model:", r.sess.Model()))
			return true, nil
		}
		model := rest[0]
		if model == "default" {
			model = ""
		}
		r.sess.SetModel(model)
		fmt.Fprintln(r.out, SuccessStyle.Render("Using "+r.sess.describe()))
	case "/history":
		r.printHistory()
	case "/limit":
		if len(rest) == 0 {
			fmt.Fprintln(r.out, formatKeyValue("History limit:", r.sess.Client.HistoryLimit()))
			return true, nil
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return true, &UsageError{Message: "limit must be a positive number"}
		}
		r.sess.Client.SetHistoryLimit(n)
		fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("History limited to %d turns", n)))
	case "/tokens", "/t":
		turns := r.sess.Client.History()
		fmt.Fprintln(r.out, formatKeyValue("Context tokens:", r.sess.Client.ContextTokens()))
		fmt.Fprintln(r.out, formatKeyValue("Turns:", fmt.Sprintf("%d / %d", len(turns), r.sess.Client.HistoryLimit())))
	case "/clear", "/c":
		r.sess.Client.ClearHistory()
		fmt.Fprintln(r.out, SuccessStyle.Render("Conversation cleared"))
	case "/cancel":
		if !r.sess.Client.Cancel() {
			fmt.Fprintln(r.out, DimStyle.Render("Nothing to cancel"))
		}
	case "/stats", "/s":
		r.printStats()
	default:
		return true, &UsageError{Message: "unknown command " + cmd, Hint: "type /help"}
	}
	return true, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("relay chat"))
	fmt.Fprintln(r.out, formatKeyValue("Using:", r.sess.describe()))
	fmt.Fprintln(r.out, formatKeyValue("History:", fmt.Sprintf("%d turns", r.sess.Client.HistoryLimit())))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+C to cancel a response, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *repl) printHelp() {
	rows := [][2]string{
		{"/provider [name]", "Show or switch provider"},
		{"/model [name]", "Show or set the model (default restores config)"},
		{"/history", "Show the conversation context"},
		{"/limit [n]", "Show or set how many turns are kept"},
		{"/tokens", "Estimate the context size"},
		{"/clear", "Forget the conversation"},
		{"/cancel", "Cancel the running response"},
		{"/stats", "Show session statistics"},
		{"/quit", "Exit"},
	}
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %s %s\n", CommandStyle.Render(util.PadWidth(row[0], 18)), DimStyle.Render(row[1]))
	}
}

func (r *repl) printHistory() {
	turns := r.sess.Client.History()
	if len(turns) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No history yet"))
		return
	}
	width := r.width - 14
	if width < 20 {
		width = 20
	}
	for _, t := range turns {
		label := PromptStyle.Render(util.PadWidth(t.Role.String()+":", 11))
		if t.Role == history.RoleResponse {
			label = CommandStyle.Render(util.PadWidth(t.Role.String()+":", 11))
		}
		fmt.Fprintf(r.out, "%s %s\n", label, util.TruncateWidth(util.OneLine(t.Content), width))
	}
}

func (r *repl) printStats() {
	st := r.sess.Stats()
	fmt.Fprintln(r.out, SectionStyle.Render("Session"))
	fmt.Fprintln(r.out, formatKeyValue("Requests:", st.Jobs))
	fmt.Fprintln(r.out, formatKeyValue("Completed:", st.Completed))
	fmt.Fprintln(r.out, formatKeyValue("Cancelled:", st.Cancelled))
	fmt.Fprintln(r.out, formatKeyValue("Failed:", st.Failed))
	fmt.Fprintln(r.out, formatKeyValue("Prompt tokens:", st.PromptTokens))
	fmt.Fprintln(r.out, formatKeyValue("Response tokens:", st.ResponseTokens))
	fmt.Fprintln(r.out, formatKeyValue("Elapsed:", st.Elapsed.Round(time.Second)))
}

func (r *repl) printExitSummary() {
	if r.quiet {
		return
	}
	st := r.sess.Stats()
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("%d requests, %s response tokens, %s",
		st.Jobs, util.FormatCount(st.ResponseTokens), util.FormatDuration(st.Elapsed))))
}
