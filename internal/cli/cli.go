// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the subcommand to run.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdConfig
	CmdStats
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdChat:    "chat",
	CmdAsk:     "ask",
	CmdConfig:  "config",
	CmdStats:   "stats",
	CmdVersion: "version",
	CmdHelp:    "help",
}

func (c Command) String() string {
	return commandNames[c]
}

// Args holds the parsed command line.
type Args struct {
	// Global flags
	Provider   string
	Model      string
	ConfigPath string
	System     string
	Quiet      bool
	Verbose    bool
	JSON       bool

	// Command-specific
	Query      string
	Subcommand string
	Positional []string
	NoStream   bool
	Since      string
	Recent     int
	Force      bool
}

// Streams is the I/O a command uses.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

var parserSpec = ParserSpec{
	Bools: []string{"quiet", "verbose", "json", "no-stream", "force", "help", "version"},
	Aliases: map[string]string{
		"p": "provider",
		"m": "model",
		"c": "config",
		"s": "system",
		"q": "quiet",
		"v": "verbose",
		"f": "force",
		"n": "recent",
		"h": "help",
	},
}

const usageText = `relay - stream answers from Anthropic, OpenAI, Gemini or Ollama

Usage:
  relay                          Start the TUI (default)
  relay chat                     Interactive line-mode chat
  relay ask "question"           Ask one question and stream the answer
  relay config [subcommand]      Show or edit configuration
  relay stats                    Summarize recorded requests
  relay version                  Show version information
  relay help                     Show this help

Global Flags:
  -p, --provider NAME            anthropic, openai, gemini or ollama
  -m, --model NAME               Model for the chosen provider
  -c, --config PATH              Use a specific config file
  -s, --system TEXT              System prompt for this run
  -q, --quiet                    Suppress banners and summaries
  -v, --verbose                  Log debug output to stderr

Ask:
  relay ask "What is 2+2?"
  echo "explain this" | relay ask
  --no-stream                    Wait for the full answer and render markdown

Config:
  relay config show              Print the effective config (keys redacted)
  relay config path              Print the config file location
  relay config init [--force]    Write a default config.toml
  relay config get KEY           Print one value (e.g. chat.history_turns)
  relay config set KEY VALUE     Change one value and save
  relay config keys              List settable keys

Stats:
  --since DURATION               Window such as 24h or 7d (default 7d)
  -n, --recent N                 Also list the N most recent requests
  --json                         Output JSON

Chat commands:
  /help /provider /model /history /limit /tokens /clear /cancel /stats /quit

Environment:
  ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OLLAMA_HOST
  RELAY_PROVIDER, RELAY_MODEL, RELAY_HOME, NO_COLOR
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "relay %s\n", Version)
	fmt.Fprintf(w, "  commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses argv (without the program name).
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, parserSpec)

	args := Args{
		Provider:   p.Flag("provider"),
		Model:      p.Flag("model"),
		ConfigPath: p.Flag("config"),
		System:     p.Flag("system"),
		Quiet:      p.BoolFlag("quiet"),
		Verbose:    p.BoolFlag("verbose"),
		JSON:       p.BoolFlag("json"),
		NoStream:   p.BoolFlag("no-stream"),
		Force:      p.BoolFlag("force"),
		Since:      p.Flag("since"),
	}
	recent, err := p.FlagInt("recent", 0)
	if err != nil {
		return CmdHelp, args, err
	}
	args.Recent = recent

	if p.BoolFlag("help") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}

	name := strings.ToLower(p.Positional(0))
	rest := p.Rest(1)
	args.Positional = rest

	switch name {
	case "", "tui":
		return CmdTUI, args, nil
	case "chat", "repl":
		return CmdChat, args, nil
	case "ask", "a":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args, nil
	case "config", "cfg":
		args.Subcommand = "show"
		if len(rest) > 0 {
			args.Subcommand = strings.ToLower(rest[0])
			args.Positional = rest[1:]
		}
		return CmdConfig, args, nil
	case "stats":
		return CmdStats, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	}
	return CmdHelp, args, &UsageError{
		Message: fmt.Sprintf("unknown command %q", name),
		Hint:    "run 'relay help' for usage",
	}
}
