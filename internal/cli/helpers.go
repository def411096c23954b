// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/relay/internal/util"
)

// fmtValue formats config values and counters for display.
func fmtValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case time.Duration:
		return util.FormatDuration(x)
	case int:
		return util.FormatCount(x)
	default:
		return fmt.Sprint(x)
	}
}

// parseSince accepts Go durations plus a "d" suffix for days.
func parseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 7 * 24 * time.Hour, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, &UsageError{Message: fmt.Sprintf("invalid --since %q", s), Hint: "use e.g. 24h or 7d"}
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, &UsageError{Message: fmt.Sprintf("invalid --since %q", s), Hint: "use e.g. 24h or 7d"}
	}
	return d, nil
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// TERMINAL SINK
// =============================================================================

// writerSink prints deltas as they arrive and remembers whether the output
// ended mid-line.
type writerSink struct {
	mu      sync.Mutex
	w       io.Writer
	written int
	openEnd bool
}

func newWriterSink(w io.Writer) *writerSink {
	return &writerSink{w: w}
}

func (s *writerSink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		return
	}
	io.WriteString(s.w, text)
	s.written += len(text)
	s.openEnd = !strings.HasSuffix(text, "\n")
}

// EndLine terminates a partial last line and resets the counters.
func (s *writerSink) EndLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openEnd {
		io.WriteString(s.w, "\n")
	}
	s.openEnd = false
	s.written = 0
}

// Written returns bytes printed since the last EndLine.
func (s *writerSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}
