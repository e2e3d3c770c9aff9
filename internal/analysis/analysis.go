// Package analysis is the boundary to the analysis oracle. It validates
// input, probes credentials, maps every failure to a typed Kind, and feeds
// successful results into the session and the history store.
package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/oracle"
	"github.com/fakeyudi/proofread/internal/session"
)

// Orchestrator owns the single external analyze call.
type Orchestrator struct {
	provider oracle.Provider
	creds    oracle.CredentialSource
	history  *history.Store
	logger   *slog.Logger
}

// New returns an Orchestrator. creds may be nil when the provider needs no
// credential; hist may be nil to skip recording.
func New(provider oracle.Provider, creds oracle.CredentialSource, hist *history.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		creds:    creds,
		history:  hist,
		logger:   logger.With("component", "analysis", "provider", provider.ID()),
	}
}

// ProviderID names the oracle behind this orchestrator.
func (o *Orchestrator) ProviderID() string {
	return o.provider.ID()
}

// CanAnalyze reports whether a credential is present. When false the caller
// should show its setup affordance instead of offering analysis.
func (o *Orchestrator) CanAnalyze() bool {
	if o.creds == nil {
		return true
	}
	_, ok := o.creds.Credential()
	return ok
}

// Analyze runs the oracle on text. Any returned error is an *Error.
func (o *Orchestrator) Analyze(ctx context.Context, text string) (correction.Result, error) {
	if strings.TrimSpace(text) == "" {
		return correction.Result{}, &Error{Kind: KindEmptyInput}
	}
	if !o.CanAnalyze() {
		return correction.Result{}, &Error{Kind: KindMissingCredential}
	}

	o.logger.Debug("analysis started", "runes", len([]rune(text)))
	res, err := o.provider.Analyze(ctx, text)
	if err != nil {
		ae := classify(err)
		o.logger.Warn("analysis failed", "kind", ae.Kind, "error", err)
		return correction.Result{}, ae
	}
	res = res.WithCorrections(res.Corrections)
	o.logger.Debug("analysis finished", "corrections", len(res.Corrections))
	return res, nil
}

// Outcome describes what Accept did with a result.
type Outcome struct {
	Result correction.Result
	// Accepted is false when the buffer changed too much while the analysis
	// was outstanding and the result was discarded.
	Accepted bool
	Entry    history.Entry
	Snapshot history.Snapshot
	Recorded bool
}

// Accept hands a successful result to the session and records it in
// history. The returned snapshot still has to be saved by the caller.
func (o *Orchestrator) Accept(sess *session.Session, submitted string, res correction.Result) Outcome {
	out := Outcome{Result: res, Accepted: sess.Complete(res)}
	if !out.Accepted {
		o.logger.Info("discarding stale analysis result", "corrections", len(res.Corrections))
	}
	if o.history != nil {
		out.Entry, out.Snapshot = o.history.Record(submitted, res)
		out.Recorded = true
	}
	return out
}

// Run performs a full analysis round-trip on the session's buffer and
// persists history inline. It is the synchronous path used by the CLI.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session) (Outcome, error) {
	if strings.TrimSpace(sess.Buffer()) == "" {
		return Outcome{}, &Error{Kind: KindEmptyInput}
	}
	submitted, err := sess.Begin()
	if err != nil {
		return Outcome{}, err
	}
	res, err := o.Analyze(ctx, submitted)
	if err != nil {
		sess.Abort()
		return Outcome{}, err
	}
	out := o.Accept(sess, submitted, res)
	if out.Recorded {
		// Save failures are logged by the store and do not fail the analysis.
		_ = o.history.Save(out.Snapshot)
	}
	return out, nil
}
