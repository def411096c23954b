// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay/internal/ui/chat"
	"github.com/jeranaias/relay/internal/ui/styles"
)

var _ chat.Backend = (*Session)(nil)

// HandleTUI runs the interactive full-screen interface.
func HandleTUI(ctx context.Context, args Args) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &UsageError{
			Message: "the TUI needs an interactive terminal",
			Hint:    "use 'relay ask' or 'relay chat' for piped input",
		}
	}

	sink := chat.NewProgramSink()
	sess, err := OpenSession(args, SessionOptions{
		Sink:     sink,
		OnFinish: sink.Finished,
		Watch:    true,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ui := sess.Config().UI
	var md *styles.Markdown
	if ui.Markdown {
		md = styles.NewMarkdown(ui.Theme, ui.WordWrap)
	}

	model := chat.New(sess, chat.Options{
		Theme:    styles.NewTheme(ui.Theme),
		Markdown: md,
		Context:  ctx,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(p)

	sess.Logger.Info("tui started", "provider", sess.Provider().String())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return &CommandError{Command: "tui", Action: "run", Err: err}
	}

	st := sess.Stats()
	if st.Jobs > 0 {
		fmt.Printf("%d requests, ~%d tokens in / ~%d out\n", st.Jobs, st.PromptTokens, st.ResponseTokens)
	}
	return nil
}
