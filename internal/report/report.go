// Package report turns a finished analysis into a shareable document and
// reads such documents back so their corrections can be applied later.
package report

import (
	"time"

	"github.com/fakeyudi/proofread/internal/correction"
)

// Report is the complete, renderable record of one analysis.
type Report struct {
	Source      string            `json:"source" yaml:"source"` // file path, or "-" for stdin
	Author      string            `json:"author,omitempty" yaml:"author,omitempty"`
	Provider    string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	EntryID     string            `json:"entry_id,omitempty" yaml:"entry_id,omitempty"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Text        string            `json:"text" yaml:"text"` // the text that was submitted
	Result      correction.Result `json:"result" yaml:"result"`
}

// New builds a Report for text analysed into res.
func New(source, text string, res correction.Result, at time.Time) *Report {
	return &Report{
		Source:      source,
		GeneratedAt: at.UTC(),
		Text:        text,
		Result:      res,
	}
}

// Corrections returns the report's open corrections.
func (r *Report) Corrections() correction.Set {
	return r.Result.Corrections
}
