// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.
//
// Handlers always return errors; main decides how to show them.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/gemini"
	"github.com/tublox/tublox-tui/internal/storage"
	"github.com/tublox/tublox-tui/internal/voice"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func usageErr(command, reason string) error {
	return &UsageError{Command: command, Reason: reason}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": errorType(err),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	var ue *UsageError
	if errors.As(err, &ue) {
		fmt.Fprintln(w, MutedStyle.Render(`Run "tublox help" for usage.`))
	}
	if errors.Is(err, gemini.ErrNotConfigured) || errors.Is(err, config.ErrNoAPIKey) {
		fmt.Fprintln(w, MutedStyle.Render("Set TUBLOX_API_KEY or run: tublox config set gemini.api_key <key>"))
	}
}

func errorType(err error) string {
	var ue *UsageError
	switch {
	case errors.As(err, &ue):
		return "usage_error"
	case errors.Is(err, storage.ErrSessionNotFound):
		return "not_found_error"
	case errors.Is(err, gemini.ErrNotConfigured), errors.Is(err, config.ErrNoAPIKey):
		return "config_error"
	case errors.Is(err, gemini.ErrAuthFailed):
		return "auth_error"
	case errors.Is(err, voice.ErrPermissionDenied):
		return "permission_error"
	default:
		return "generic_error"
	}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *UsageError
	var ve config.ValidateErrors
	var se *gemini.StreamError
	switch {
	case errors.As(err, &ue):
		return ExitUsageError
	case errors.As(err, &ve),
		errors.Is(err, gemini.ErrNotConfigured),
		errors.Is(err, config.ErrNoAPIKey),
		errors.Is(err, gemini.ErrModelNotFound):
		return ExitConfigError
	case errors.Is(err, gemini.ErrAuthFailed), errors.Is(err, voice.ErrPermissionDenied):
		return ExitAuthError
	case errors.Is(err, storage.ErrSessionNotFound):
		return ExitNotFoundError
	case errors.As(err, &se), errors.Is(err, gemini.ErrRateLimited):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
