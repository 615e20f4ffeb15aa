package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tomventa/sqlwarden/internal/envelope"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/tableprint"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Statement rejected by the guard or failed in the database
	ExitCommandError = 2 // Command error (bad config, database unreachable, etc.)
)

// ExitError represents an error with a specific exit code.
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
// Returns ExitSuccess for nil and ExitCommandError for errors that carry no code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostic output; keeps JSON on Writer clean
	Verbose   bool
}

// Envelope prints a pipeline result.
func (f *OutputFormatter) Envelope(env envelope.Envelope) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(env)
	}
	return tableprint.Render(f.Writer, env)
}

// decisionOutput is the JSON shape of a guard-only check.
type decisionOutput struct {
	OK           bool   `json:"ok"`
	Statement    string `json:"statement"`
	Rewritten    string `json:"rewritten,omitempty"`
	Bound        int    `json:"bound,omitempty"`
	Rule         string `json:"rule,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Decision prints a guard decision without executing anything.
func (f *OutputFormatter) Decision(candidate string, d guard.Decision) error {
	if f.Format == "json" {
		out := decisionOutput{OK: d.Approved(), Statement: candidate}
		if d.Approved() {
			out.Rewritten, out.Bound = d.SQL(), d.Bound()
		} else {
			out.Rule, out.ErrorCode, out.ErrorMessage = d.Rule(), string(d.Code()), d.Message()
		}
		return json.NewEncoder(f.Writer).Encode(out)
	}

	if d.Approved() {
		fmt.Fprintf(f.Writer, "✅ Approved (row bound %d):\n%s\n", d.Bound(), d.SQL())
		return nil
	}
	fmt.Fprintf(f.Writer, "❌ Rejected [%s] by rule %q: %s\n", d.Code(), d.Rule(), d.Message())
	return nil
}

// Error reports a command error.
func (f *OutputFormatter) Error(err error) {
	if f.Format == "json" {
		json.NewEncoder(f.Writer).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	fmt.Fprintf(f.GetErrWriter(), "❌ Error: %v\n", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
