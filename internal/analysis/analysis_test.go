package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/oracle"
	"github.com/fakeyudi/proofread/internal/session"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func typoResult() correction.Result {
	return correction.NewResult("I like the cat.", "One typo.", correction.Set{
		{OriginalSpan: "teh", SuggestedSpan: "the", Category: correction.CategorySpelling},
	})
}

func TestAnalyzeEmptyInputNeverCallsOracle(t *testing.T) {
	p := &oracle.Static{}
	o := New(p, oracle.StaticCredential("k"), nil, quiet)
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := o.Analyze(context.Background(), text)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Analyze(%q): got %v", text, err)
		}
	}
	if p.Calls != 0 {
		t.Errorf("oracle called %d times", p.Calls)
	}
}

func TestAnalyzeMissingCredential(t *testing.T) {
	p := &oracle.Static{}
	o := New(p, oracle.StaticCredential(""), nil, quiet)
	if o.CanAnalyze() {
		t.Error("CanAnalyze must be false without a key")
	}
	_, err := o.Analyze(context.Background(), "text")
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != KindMissingCredential || !ae.NeedsSetup() {
		t.Errorf("got %v", err)
	}
	if p.Calls != 0 {
		t.Error("oracle must not be called without a key")
	}
}

func TestAnalyzeNilCredentialSource(t *testing.T) {
	o := New(&oracle.Static{}, nil, nil, quiet)
	if !o.CanAnalyze() {
		t.Error("a provider without credentials can always analyze")
	}
}

func TestAnalyzeClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      *Error
		setup     bool
		retryable bool
	}{
		{"missing", oracle.ErrMissingCredential, ErrMissingCredential, true, false},
		{"unauthorized", &oracle.StatusError{Code: http.StatusUnauthorized, Status: "401"}, ErrInvalidCredential, true, false},
		{"bad key", &oracle.StatusError{Code: http.StatusBadRequest, Status: "400", Message: "API key not valid"}, ErrInvalidCredential, true, false},
		{"server", &oracle.StatusError{Code: http.StatusInternalServerError, Status: "500"}, ErrOracleFailure, false, true},
		{"malformed", &correction.DecodeError{Err: errors.New("bad")}, ErrOracleFailure, false, true},
		{"network", errors.New("connection refused"), ErrOracleFailure, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := New(&oracle.Static{Err: tc.err}, oracle.StaticCredential("k"), nil, quiet)
			_, err := o.Analyze(context.Background(), "text")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want kind %s", err, tc.want.Kind)
			}
			if !errors.Is(err, tc.err) {
				t.Error("the provider error must stay reachable")
			}
			var ae *Error
			errors.As(err, &ae)
			if ae.NeedsSetup() != tc.setup || ae.Retryable() != tc.retryable {
				t.Errorf("NeedsSetup=%v Retryable=%v", ae.NeedsSetup(), ae.Retryable())
			}
		})
	}
}

func TestAnalyzeNormalizesResult(t *testing.T) {
	r := typoResult()
	r.IsFullyCorrect = true
	o := New(&oracle.Static{Result: r}, nil, nil, quiet)
	got, err := o.Analyze(context.Background(), "I like teh cat.")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsFullyCorrect {
		t.Error("IsFullyCorrect must follow the correction set")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	hist := history.NewStore(nil, quiet)
	o := New(&oracle.Static{Result: typoResult()}, nil, hist, quiet)
	sess := session.New("I like teh cat.", session.Policy{})

	out, err := o.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Accepted || !out.Recorded {
		t.Errorf("outcome: %+v", out)
	}
	if len(sess.Corrections()) != 1 {
		t.Error("corrections must be installed in the session")
	}
	entries := hist.Entries()
	if len(entries) != 1 || entries[0].SourceText != "I like teh cat." || entries[0].ID != out.Entry.ID {
		t.Errorf("history: %+v", entries)
	}
}

func TestRunFailureKeepsSession(t *testing.T) {
	hist := history.NewStore(nil, quiet)
	o := New(&oracle.Static{Err: errors.New("down")}, nil, hist, quiet)
	sess := session.New("I like teh cat.", session.Policy{})

	if _, err := o.Run(context.Background(), sess); !errors.Is(err, ErrOracleFailure) {
		t.Fatalf("got %v", err)
	}
	if sess.InFlight() || sess.Buffer() != "I like teh cat." {
		t.Error("a failed analysis must leave the buffer and clear the in-flight flag")
	}
	if hist.Len() != 0 {
		t.Error("failures are not recorded")
	}
}

func TestRunEmptyBuffer(t *testing.T) {
	p := &oracle.Static{}
	o := New(p, nil, nil, quiet)
	if _, err := o.Run(context.Background(), session.New("  ", session.Policy{})); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("got %v", err)
	}
	if p.Calls != 0 {
		t.Error("oracle called on empty buffer")
	}
}

func TestAcceptStaleResultStillRecorded(t *testing.T) {
	hist := history.NewStore(nil, quiet)
	o := New(&oracle.Static{}, nil, hist, quiet)
	sess := session.New("I like teh cat.", session.Policy{})
	submitted, err := sess.Begin()
	if err != nil {
		t.Fatal(err)
	}
	sess.Edit("Something else entirely.")

	out := o.Accept(sess, submitted, typoResult())
	if out.Accepted {
		t.Error("stale result must not be installed")
	}
	if _, ok := sess.Result(); ok {
		t.Error("session must have no open result")
	}
	if !out.Recorded || hist.Entries()[0].SourceText != submitted {
		t.Error("the analysis of the submitted text is still recorded")
	}
}
