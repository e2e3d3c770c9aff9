// Package session holds the state of one editing session: the live buffer,
// the open analysis result, and whether an analysis is outstanding. Every
// component call receives the session explicitly; nothing is global.
package session

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/fakeyudi/proofread/internal/apply"
	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/highlight"
)

// ErrAnalysisInFlight is returned by Begin while a previous analysis is outstanding.
var ErrAnalysisInFlight = errors.New("analysis already in progress")

// DefaultStaleThreshold is the edit size, in runes, past which open
// corrections are dropped.
const DefaultStaleThreshold = 5

// Policy decides when an edit makes the open corrections stale.
type Policy struct {
	// StaleThreshold of zero drops corrections on any edit. A positive value
	// drops them only when one edit changes the length by more than that
	// many runes.
	StaleThreshold int
}

// Stale reports whether moving from before to after invalidates corrections.
func (p Policy) Stale(before, after string) bool {
	if before == after {
		return false
	}
	if p.StaleThreshold <= 0 {
		return true
	}
	d := utf8.RuneCountInString(after) - utf8.RuneCountInString(before)
	if d < 0 {
		d = -d
	}
	return d > p.StaleThreshold
}

// Session is the single owner of buffer and correction state.
type Session struct {
	buffer    string
	result    *correction.Result
	inFlight  bool
	submitted string
	policy    Policy
}

// New starts a session over buffer.
func New(buffer string, policy Policy) *Session {
	return &Session{buffer: buffer, policy: policy}
}

// Buffer returns the current text.
func (s *Session) Buffer() string { return s.buffer }

// Result returns the open analysis result, if any.
func (s *Session) Result() (correction.Result, bool) {
	if s.result == nil {
		return correction.Result{}, false
	}
	return *s.result, true
}

// Corrections returns the open corrections; nil when there is no result.
func (s *Session) Corrections() correction.Set {
	if s.result == nil {
		return nil
	}
	return s.result.Corrections
}

// InFlight reports whether an analysis is outstanding.
func (s *Session) InFlight() bool { return s.inFlight }

// Edit replaces the buffer with text typed by the user. It reports whether
// the edit dropped the open corrections.
func (s *Session) Edit(text string) bool {
	prev := s.buffer
	s.buffer = text
	if s.result != nil && s.policy.Stale(prev, text) {
		s.result = nil
		return true
	}
	return false
}

// Begin marks an analysis as started and returns the text to submit.
func (s *Session) Begin() (string, error) {
	if s.inFlight {
		return "", ErrAnalysisInFlight
	}
	s.inFlight = true
	s.submitted = s.buffer
	return s.submitted, nil
}

// Abort ends an analysis that failed.
func (s *Session) Abort() {
	s.inFlight = false
	s.submitted = ""
}

// Complete installs the result of the outstanding analysis. The result is
// discarded, and false returned, when the buffer has moved too far from the
// submitted text.
func (s *Session) Complete(r correction.Result) bool {
	submitted := s.submitted
	s.Abort()
	if s.policy.Stale(submitted, s.buffer) {
		return false
	}
	r = r.WithCorrections(r.Corrections)
	s.result = &r
	return true
}

// ApplyAll replaces the buffer with the corrected text and drops the result.
// It does nothing, and returns false, when there is nothing left to apply.
func (s *Session) ApplyAll() bool {
	if s.result == nil || s.result.IsFullyCorrect {
		return false
	}
	s.buffer = apply.All(*s.result)
	s.result = nil
	return true
}

// ApplySingle applies the open correction at index i.
func (s *Session) ApplySingle(i int) (apply.Outcome, bool) {
	if s.result == nil || i < 0 || i >= len(s.result.Corrections) {
		return apply.Outcome{}, false
	}
	return s.ApplyCorrection(s.result.Corrections[i]), true
}

// ApplyCorrection applies c to the buffer and narrows the open result. A
// correction that is not open leaves the session unchanged.
func (s *Session) ApplyCorrection(c correction.Correction) apply.Outcome {
	if s.result == nil {
		return apply.Outcome{Buffer: s.buffer}
	}
	out := apply.Single(s.buffer, c, *s.result)
	s.buffer = out.Buffer
	s.result = &out.Result
	return out
}

// Clear empties the buffer and drops the result.
func (s *Session) Clear() {
	s.buffer = ""
	s.result = nil
}

// Restore re-hydrates buffer and result, typically from a history entry.
func (s *Session) Restore(text string, r correction.Result) {
	s.buffer = text
	r = r.WithCorrections(r.Corrections)
	s.result = &r
}

// Render highlights the open corrections in the current buffer.
func (s *Session) Render() highlight.AnnotatedText {
	return highlight.Render(s.buffer, s.Corrections())
}

// Stats returns the character and word counts of the buffer.
func (s *Session) Stats() (chars, words int) {
	return utf8.RuneCountInString(s.buffer), len(strings.Fields(s.buffer))
}
