// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollamachat/internal/config"
	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	// ExitNotFoundError indicates a missing model or session file
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command with context.
type CommandError struct {
	Command string // e.g. "ask", "models"
	Action  string // e.g. "stream", "list"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a failure to load or validate the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErr *ConfigError
	var validateErrs config.ValidateErrors

	switch {
	case errors.As(err, &validationErr), errors.Is(err, storage.ErrEmptyPath):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &validateErrs):
		return ExitConfigError
	case ollama.IsModelNotFound(err), errors.Is(err, fs.ErrNotExist):
		return ExitNotFoundError
	case ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

var errorLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F43F5E"))

// DisplayError writes err to w in the CLI's error format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	label := "[ERROR]"
	if colorsEnabled() {
		label = errorLabel.Render(label)
	}
	fmt.Fprintf(w, "%s %s\n", label, err.Error())
}
