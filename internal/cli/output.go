package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/trace"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Oracle failure, failed scenario or non-deterministic replay
	ExitCommandError = 2 // Command error (bad config, store not found, ledger unreachable)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes data as an indented response. A non-nil cliErr marks
// the response as an error.
func writeJSON(cmd *cobra.Command, data any, cliErr *CLIError) error {
	resp := CLIResponse{Status: "ok", Data: data}
	if cliErr != nil {
		resp.Status = "error"
		resp.Error = cliErr
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// canonicalSteps embeds steps in JSON output in their canonical encoding.
func canonicalSteps(steps []oracle.StepRecord) (json.RawMessage, error) {
	return trace.Marshal(trace.Steps(steps))
}

func canonicalCommands(cmds []command.Command) (json.RawMessage, error) {
	return trace.MarshalCommands(cmds)
}

var (
	acceptedColor = color.New(color.FgGreen)
	rejectedColor = color.New(color.FgYellow)
	waitedColor   = color.New(color.FgCyan)
	failedColor   = color.New(color.FgRed, color.Bold)
)

func passMark() string { return color.New(color.FgGreen).Sprint("✓") }

func failMark() string { return color.New(color.FgRed).Sprint("✗") }

func outcomeColor(o oracle.Outcome) *color.Color {
	switch o {
	case oracle.OutcomeAccepted:
		return acceptedColor
	case oracle.OutcomeRejected:
		return rejectedColor
	case oracle.OutcomeWaited:
		return waitedColor
	}
	return failedColor
}

// renderSteps writes one colored line per step, prefixed by indent.
func renderSteps(w io.Writer, steps []oracle.StepRecord, indent string) {
	for _, s := range steps {
		line := strings.TrimSuffix(trace.RenderString([]oracle.StepRecord{s}), "\n")
		outcomeColor(s.Outcome).Fprintf(w, "%s%s\n", indent, line)
		if s.Error != "" && s.Outcome == oracle.OutcomeFailed {
			fmt.Fprintf(w, "%s    %s\n", indent, s.Error)
		}
	}
}
