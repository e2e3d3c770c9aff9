package oracle_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/oracle"
)

// flaky fails with errs in order, then succeeds.
type flaky struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *flaky) ID() string { return "flaky" }

func (f *flaky) Analyze(ctx context.Context, text string) (correction.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return correction.Result{}, err
	}
	return correction.NewResult(text, "", nil), nil
}

func (f *flaky) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fast(attempts int) oracle.ResilienceConfig {
	return oracle.ResilienceConfig{MaxAttempts: attempts, RetryDelay: time.Millisecond, Timeout: 5 * time.Second}
}

func TestResilientDelegatesID(t *testing.T) {
	p := oracle.NewResilientProvider(oracle.NewGeminiProvider("m", nil), oracle.ResilienceConfig{})
	if p.ID() != "gemini:m" {
		t.Errorf("ID: got %q", p.ID())
	}
}

func TestResilientDoesNotRetryPermanentErrors(t *testing.T) {
	cases := []error{
		oracle.ErrMissingCredential,
		&oracle.StatusError{Code: http.StatusUnauthorized, Status: "401 Unauthorized"},
		&oracle.StatusError{Code: http.StatusForbidden, Status: "403 Forbidden"},
		&correction.DecodeError{Field: "improvedText", Err: errors.New("missing")},
	}
	for _, want := range cases {
		inner := &flaky{errs: []error{want, want, want}}
		p := oracle.NewResilientProvider(inner, fast(3))

		_, err := p.Analyze(context.Background(), "text")
		if !errors.Is(err, want) {
			t.Errorf("got %v, want %v", err, want)
		}
		if inner.count() != 1 {
			t.Errorf("%v: called %d times, want 1", want, inner.count())
		}
	}
}

func TestResilientRetriesTransientErrors(t *testing.T) {
	inner := &flaky{errs: []error{&oracle.StatusError{Code: http.StatusServiceUnavailable, Status: "503"}}}
	p := oracle.NewResilientProvider(inner, fast(3))

	res, err := p.Analyze(context.Background(), "text")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.CorrectedFullText != "text" {
		t.Errorf("result: %+v", res)
	}
	if inner.count() != 2 {
		t.Errorf("called %d times, want 2", inner.count())
	}
}

func TestResilientGivesUpAfterMaxAttempts(t *testing.T) {
	boom := &oracle.StatusError{Code: http.StatusInternalServerError, Status: "500"}
	inner := &flaky{errs: []error{boom, boom, boom, boom, boom}}
	p := oracle.NewResilientProvider(inner, fast(2))

	if _, err := p.Analyze(context.Background(), "text"); err == nil {
		t.Fatal("expected an error")
	}
	if n := inner.count(); n < 2 || n > 3 {
		t.Errorf("called %d times", n)
	}
}

type blocking struct{}

func (blocking) ID() string { return "blocking" }

func (blocking) Analyze(ctx context.Context, text string) (correction.Result, error) {
	<-ctx.Done()
	return correction.Result{}, ctx.Err()
}

func TestResilientTimeout(t *testing.T) {
	p := oracle.NewResilientProvider(blocking{}, oracle.ResilienceConfig{
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
		Timeout:     20 * time.Millisecond,
	})

	start := time.Now()
	if _, err := p.Analyze(context.Background(), "text"); err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced: took %v", elapsed)
	}
}
