// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/relay/internal/config"
	"github.com/jeranaias/relay/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitProviderErr  = 6
	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
	Hint    string
}

func (e *UsageError) Error() string {
	if e.Hint != "" {
		return e.Message + " (" + e.Hint + ")"
	}
	return e.Message
}

// CommandError wraps a failure with the command and action that hit it.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	var verr config.ValidateErrors
	if errors.As(err, &verr) {
		return ExitConfigError
	}

	switch stream.KindOf(err) {
	case stream.KindEmptyPrompt, stream.KindInvalidProvider:
		return ExitUsageError
	case stream.KindMissingCredential:
		return ExitConfigError
	case stream.KindTransportFailure:
		return ExitNetworkError
	case stream.KindProviderError:
		return ExitProviderErr
	case stream.KindUserCancelled:
		return ExitInterrupted
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w in the standard format.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"kind":    stream.KindOf(err).String(),
			"code":    ExitCode(err),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if stream.IsKind(err, stream.KindMissingCredential) {
		fmt.Fprintln(w, DimStyle.Render("Set the key in the environment or with: relay config set providers.<name>.api_key KEY"))
	}
}

// HandleErrorAndExit prints err to stderr and exits with its code.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(os.Stderr, err, jsonMode)
	os.Exit(ExitCode(err))
}
