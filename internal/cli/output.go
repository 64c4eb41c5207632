package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (sync error, not enough soil, non-deterministic replay, etc.)
	ExitCommandError = 2 // Command error (invalid event, bad flags, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
// OutputFormatter writes command results as JSON or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Response is the JSON envelope every command writes with --format json.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError identifies a failed operation, e.g. E_SYNC or E_SOIL.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Render writes data as an ok envelope, or calls text for the human form.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(Response{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail writes data as an error envelope (or text), then returns an
// ExitFailure so the command exits non-zero.
func (f *OutputFormatter) Fail(code, message string, data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		resp := Response{Status: "error", Data: data, Error: &ResponseError{Code: code, Message: message}}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		text(f.Writer)
	}
	return NewExitError(ExitFailure, message)
}

func (f *OutputFormatter) encode(resp Response) error {
	if err := json.NewEncoder(f.Writer).Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// VerboseLog writes a diagnostic line when --verbose is set. It never
// writes to Writer when ErrWriter is set, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
