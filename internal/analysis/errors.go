package analysis

import (
	"errors"
	"fmt"

	"github.com/fakeyudi/proofread/internal/oracle"
)

// Kind classifies why an analysis did not produce a result.
type Kind string

const (
	KindEmptyInput        Kind = "empty_input"
	KindMissingCredential Kind = "missing_credential"
	KindInvalidCredential Kind = "invalid_credential"
	KindOracleFailure     Kind = "oracle_failure"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrOracleFailure     = &Error{Kind: KindOracleFailure}
)

// Error is the only error type Analyze returns.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindEmptyInput:
		msg = "nothing to analyze"
	case KindMissingCredential:
		msg = "no API key configured"
	case KindInvalidCredential:
		msg = "the API key was rejected"
	default:
		msg = "analysis failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NeedsSetup reports whether the user must fix credentials before retrying.
func (e *Error) NeedsSetup() bool {
	return e.Kind == KindMissingCredential || e.Kind == KindInvalidCredential
}

// Retryable reports whether trying again unchanged may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindOracleFailure
}

// classify maps a provider failure onto a Kind.
func classify(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, oracle.ErrMissingCredential) {
		return &Error{Kind: KindMissingCredential, Err: err}
	}
	var se *oracle.StatusError
	if errors.As(err, &se) && se.Unauthorized() {
		return &Error{Kind: KindInvalidCredential, Err: err}
	}
	return &Error{Kind: KindOracleFailure, Err: err}
}
