// Package oracle talks to the external analysis service that proposes
// corrections for a passage of text.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fakeyudi/proofread/internal/correction"
)

// ErrMissingCredential is returned when no API key is available.
var ErrMissingCredential = errors.New("oracle credential not provided")

// Provider analyzes text and returns proposed corrections.
type Provider interface {
	ID() string
	Analyze(ctx context.Context, text string) (correction.Result, error)
}

// CredentialSource reports the API key an oracle call would use.
type CredentialSource interface {
	Credential() (string, bool)
}

// EnvCredential reads the key from the named environment variable at call time.
type EnvCredential string

func (e EnvCredential) Credential() (string, bool) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	return v, v != ""
}

// StaticCredential is a fixed key, mostly for tests.
type StaticCredential string

func (s StaticCredential) Credential() (string, bool) {
	return string(s), s != ""
}

// StatusError is a non-200 response from the oracle.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("oracle returned status %s: %s", e.Status, e.Message)
	}
	return "oracle returned status " + e.Status
}

// Unauthorized reports whether the oracle rejected the credential.
func (e *StatusError) Unauthorized() bool {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return true
	}
	return e.Code == http.StatusBadRequest && strings.Contains(e.Message, "API key not valid")
}

// Transient reports whether retrying err could succeed.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, context.Canceled) {
		return false
	}
	var de *correction.DecodeError
	if errors.As(err, &de) {
		// The response reached us intact but broke the schema.
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// Static returns a fixed result or error. It backs the "mock" provider and tests.
type Static struct {
	Result correction.Result
	Err    error
	// Calls counts Analyze invocations.
	Calls int
}

func (s *Static) ID() string { return "static" }

func (s *Static) Analyze(ctx context.Context, text string) (correction.Result, error) {
	s.Calls++
	if err := ctx.Err(); err != nil {
		return correction.Result{}, err
	}
	if s.Err != nil {
		return correction.Result{}, s.Err
	}
	if s.Result.CorrectedFullText == "" && len(s.Result.Corrections) == 0 {
		return correction.NewResult(text, s.Result.Summary, nil), nil
	}
	return s.Result, nil
}
