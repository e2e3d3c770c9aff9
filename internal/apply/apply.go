// Package apply writes accepted corrections back into a buffer and narrows
// the open correction set to match.
package apply

import (
	"strings"

	"github.com/fakeyudi/proofread/internal/correction"
)

// All replaces the whole buffer with the oracle's corrected text. The caller
// discards the correction set afterwards.
func All(result correction.Result) string {
	return result.CorrectedFullText
}

// Outcome is the result of applying one correction.
type Outcome struct {
	Buffer string
	Result correction.Result
	// Replaced counts the occurrences rewritten. Zero means the correction
	// was stale or blank and was only acknowledged.
	Replaced int
}

// Stale reports whether the applied span was not found in the buffer.
func (o Outcome) Stale() bool {
	return o.Replaced == 0
}

// Single replaces every literal occurrence of c.OriginalSpan in buffer with
// c.SuggestedSpan and removes every correction with c's identity from the
// result. A blank or missing span leaves the buffer untouched; the correction
// is still removed. A correction no longer in the result was already applied
// or dismissed, so buffer and result come back unchanged.
func Single(buffer string, c correction.Correction, result correction.Result) Outcome {
	if !result.Corrections.Contains(c) {
		return Outcome{Buffer: buffer, Result: result.WithCorrections(result.Corrections)}
	}
	out := Outcome{
		Buffer: buffer,
		Result: result.WithCorrections(result.Corrections.Without(c)),
	}
	if !c.Matchable() {
		return out
	}
	out.Replaced = strings.Count(buffer, c.OriginalSpan)
	if out.Replaced > 0 {
		out.Buffer = strings.ReplaceAll(buffer, c.OriginalSpan, c.SuggestedSpan)
	}
	return out
}
