// Package correction defines the correction records returned by an analysis
// oracle and the set operations used to reconcile them against a buffer.
package correction

import (
	"encoding/json"
	"strings"
)

// Category classifies a correction for display grouping only.
type Category string

const (
	CategorySpelling Category = "spelling"
	CategoryGrammar  Category = "grammar"
	CategoryStyle    Category = "style"
	CategoryUnknown  Category = "unknown"
)

// khmerLabels maps the tri-labels some oracles emit onto the canonical categories.
var khmerLabels = map[string]Category{
	"អក្ខរាវិរុទ្ធ": CategorySpelling,
	"វេយ្យាករណ៍":  CategoryGrammar,
	"កម្រិតភាសា":  CategoryStyle,
}

// ParseCategory normalises an oracle label. Unknown labels map to CategoryUnknown.
func ParseCategory(label string) Category {
	l := strings.ToLower(strings.TrimSpace(label))
	switch Category(l) {
	case CategorySpelling, CategoryGrammar, CategoryStyle:
		return Category(l)
	}
	if c, ok := khmerLabels[strings.TrimSpace(label)]; ok {
		return c
	}
	return CategoryUnknown
}

// Correction is a single proposed fix.
type Correction struct {
	OriginalSpan  string   `json:"original_span" yaml:"original_span"`
	SuggestedSpan string   `json:"suggested_span" yaml:"suggested_span"`
	Rationale     string   `json:"rationale" yaml:"rationale"`
	Category      Category `json:"category" yaml:"category"`
	// Label is the category text as the oracle sent it, kept for display.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Matchable reports whether the correction targets a non-blank span.
// Blank spans are never searched for.
func (c Correction) Matchable() bool {
	return strings.TrimSpace(c.OriginalSpan) != ""
}

// SameAs reports whether c and other have the same identity: the
// (OriginalSpan, SuggestedSpan) pair.
func (c Correction) SameAs(other Correction) bool {
	return c.OriginalSpan == other.OriginalSpan && c.SuggestedSpan == other.SuggestedSpan
}

// DisplayLabel returns the oracle's label when present, otherwise the category.
func (c Correction) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return string(c.Category)
}

// Set is the ordered list of open corrections for one analysis.
type Set []Correction

// Contains reports whether any correction in s has c's identity.
func (s Set) Contains(c Correction) bool {
	for _, x := range s {
		if x.SameAs(c) {
			return true
		}
	}
	return false
}

// Without returns a copy of s with every correction identical to c removed.
func (s Set) Without(c Correction) Set {
	out := make(Set, 0, len(s))
	for _, x := range s {
		if x.SameAs(c) {
			continue
		}
		out = append(out, x)
	}
	return out
}

// Result is the outcome of one analysis.
type Result struct {
	CorrectedFullText string `json:"corrected_full_text" yaml:"corrected_full_text"`
	Summary           string `json:"summary" yaml:"summary"`
	IsFullyCorrect    bool   `json:"is_fully_correct" yaml:"is_fully_correct"`
	Corrections       Set    `json:"corrections" yaml:"corrections"`
}

// NewResult builds a Result whose IsFullyCorrect flag agrees with the set.
func NewResult(corrected, summary string, set Set) Result {
	if set == nil {
		set = Set{}
	}
	return Result{
		CorrectedFullText: corrected,
		Summary:           summary,
		IsFullyCorrect:    len(set) == 0,
		Corrections:       set,
	}
}

// WithCorrections returns a copy of r narrowed to set.
func (r Result) WithCorrections(set Set) Result {
	return NewResult(r.CorrectedFullText, r.Summary, set)
}

// oracleRecord is the wire shape an analysis oracle returns.
type oracleRecord struct {
	IsCorrect    *bool   `json:"isCorrect"`
	ImprovedText *string `json:"improvedText"`
	Summary      string  `json:"summary"`
	Corrections  []struct {
		OriginalText  string `json:"originalText"`
		SuggestedText string `json:"suggestedText"`
		Reason        string `json:"reason"`
		Type          string `json:"type"`
	} `json:"corrections"`
}

// Decode parses an oracle JSON response into a Result. The oracle's own
// isCorrect flag is not trusted; it is recomputed from the decoded set.
func Decode(data []byte) (Result, error) {
	var rec oracleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Result{}, &DecodeError{Err: err}
	}
	if rec.ImprovedText == nil {
		return Result{}, &DecodeError{Field: "improvedText"}
	}
	if rec.IsCorrect == nil {
		return Result{}, &DecodeError{Field: "isCorrect"}
	}
	set := make(Set, 0, len(rec.Corrections))
	for _, c := range rec.Corrections {
		set = append(set, Correction{
			OriginalSpan:  c.OriginalText,
			SuggestedSpan: c.SuggestedText,
			Rationale:     c.Reason,
			Category:      ParseCategory(c.Type),
			Label:         c.Type,
		})
	}
	return NewResult(*rec.ImprovedText, rec.Summary, set), nil
}

// DecodeError is returned when an oracle response is not a valid analysis record.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "malformed analysis response: " + e.Err.Error()
	}
	return "malformed analysis response: missing field " + e.Field
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
