package cmd

import (
	"errors"
	"fmt"

	"github.com/fakeyudi/proofread/internal/analysis"
	"github.com/fakeyudi/proofread/internal/config"
	"github.com/fakeyudi/proofread/internal/report"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message string
	Hint    string
	Err     error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{Message: msg, Hint: hint, Err: err}
}

// mapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return err
	}

	var parseErr *config.ParseError
	if errors.As(err, &parseErr) {
		return NewCLIError("invalid config file", "Fix or remove "+parseErr.Path, err)
	}

	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		return NewCLIError("nothing to analyze", "Pass a non-empty file or pipe text on stdin", nil)
	case errors.Is(err, analysis.ErrMissingCredential):
		return NewCLIError("no API key configured",
			fmt.Sprintf("Export %s or run 'proofread setup' to choose another variable", cfg.APIKeyEnv), nil)
	case errors.Is(err, analysis.ErrInvalidCredential):
		return NewCLIError("the API key was rejected",
			fmt.Sprintf("Check the key in %s, or run 'proofread setup'", cfg.APIKeyEnv), err)
	case errors.Is(err, analysis.ErrOracleFailure):
		return NewCLIError("analysis failed", "Try again; use --verbose for details", err)
	case errors.Is(err, report.ErrUnknownFormat):
		return NewCLIError("unknown output format", "Use --format text, markdown, json or yaml", err)
	}
	return err
}
