// Package highlight renders a text buffer with every open correction span
// marked. Rendering is a pure function of (buffer, corrections) and is cheap
// enough to run on every keystroke.
package highlight

import (
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fakeyudi/proofread/internal/correction"
)

// Segment is a run of buffer text that is either plain or covered by one
// correction's span.
type Segment struct {
	Text        string
	Highlighted bool
	// Index is the position of the owning correction in the rendered set,
	// or -1 for plain text.
	Index      int
	Correction correction.Correction
}

// AnnotatedText is the rendered buffer. Concatenating segment texts yields the
// original buffer exactly.
type AnnotatedText struct {
	Segments []Segment
}

// Formatter turns segments into display text.
type Formatter interface {
	Plain(text string) string
	Highlight(seg Segment) string
}

type match struct {
	start, end int
	index      int
}

// Render marks every literal occurrence of each matchable correction's
// original span in buffer. Longer spans claim text first; a shorter span is
// never highlighted inside text a longer span already claimed. Spans are
// located with plain substring search, never interpreted as patterns.
func Render(buffer string, set correction.Set) AnnotatedText {
	if len(set) == 0 {
		return plain(buffer)
	}

	order := make([]int, 0, len(set))
	for i, c := range set {
		if c.Matchable() {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return plain(buffer)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return utf8.RuneCountInString(set[order[a]].OriginalSpan) > utf8.RuneCountInString(set[order[b]].OriginalSpan)
	})

	claimed := make([]bool, len(buffer))
	var matches []match
	for _, idx := range order {
		span := set[idx].OriginalSpan
		start := 0
		for start <= len(buffer)-len(span) {
			i := strings.Index(buffer[start:], span)
			if i < 0 {
				break
			}
			pos := start + i
			end := pos + len(span)
			if free(claimed, pos, end) {
				for k := pos; k < end; k++ {
					claimed[k] = true
				}
				matches = append(matches, match{start: pos, end: end, index: idx})
				start = end
				continue
			}
			_, size := utf8.DecodeRuneInString(buffer[pos:])
			start = pos + size
		}
	}
	if len(matches) == 0 {
		return plain(buffer)
	}

	sort.Slice(matches, func(a, b int) bool { return matches[a].start < matches[b].start })

	segs := make([]Segment, 0, 2*len(matches)+1)
	cursor := 0
	for _, m := range matches {
		if m.start > cursor {
			segs = append(segs, Segment{Text: buffer[cursor:m.start], Index: -1})
		}
		segs = append(segs, Segment{
			Text:        buffer[m.start:m.end],
			Highlighted: true,
			Index:       m.index,
			Correction:  set[m.index],
		})
		cursor = m.end
	}
	if cursor < len(buffer) {
		segs = append(segs, Segment{Text: buffer[cursor:], Index: -1})
	}
	return AnnotatedText{Segments: segs}
}

func plain(buffer string) AnnotatedText {
	if buffer == "" {
		return AnnotatedText{}
	}
	return AnnotatedText{Segments: []Segment{{Text: buffer, Index: -1}}}
}

func free(claimed []bool, start, end int) bool {
	for k := start; k < end; k++ {
		if claimed[k] {
			return false
		}
	}
	return true
}

// String returns the buffer text without any markup.
func (a AnnotatedText) String() string {
	var sb strings.Builder
	for _, s := range a.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Highlights returns the number of highlighted segments.
func (a AnnotatedText) Highlights() int {
	n := 0
	for _, s := range a.Segments {
		if s.Highlighted {
			n++
		}
	}
	return n
}

// IsPlain reports whether nothing is highlighted.
func (a AnnotatedText) IsPlain() bool {
	return a.Highlights() == 0
}

// Format renders every segment through f.
func (a AnnotatedText) Format(f Formatter) string {
	var sb strings.Builder
	for _, s := range a.Segments {
		if s.Highlighted {
			sb.WriteString(f.Highlight(s))
		} else {
			sb.WriteString(f.Plain(s.Text))
		}
	}
	return sb.String()
}

// Markup returns the buffer escaped for embedding in HTML with each
// highlighted span wrapped in a highlight-error element. Escaping happens per
// segment, before wrapping, so entity text is never matched or split.
func (a AnnotatedText) Markup() string {
	return a.Format(MarkupFormatter{})
}

// Escape is the escaping Markup applies to buffer text.
func Escape(s string) string {
	return html.EscapeString(s)
}

// MarkupFormatter emits HTML.
type MarkupFormatter struct{}

func (MarkupFormatter) Plain(text string) string {
	return Escape(text)
}

func (MarkupFormatter) Highlight(seg Segment) string {
	return `<span class="highlight-error highlight-` + string(seg.Correction.Category) + `">` +
		Escape(seg.Text) + `</span>`
}
