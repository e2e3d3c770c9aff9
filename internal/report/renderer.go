package report

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/proofread/internal/highlight"
)

// ErrUnknownFormat is returned by NewRenderer for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

const (
	versionSentinel = "<!-- proofread-report-version: 1 -->"
	dataPrefix      = "<!-- proofread-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// NewRenderer returns the renderer for format. color only affects "text".
func NewRenderer(format string, color bool) (Renderer, error) {
	switch format {
	case "", "text":
		return &TextRenderer{Color: color}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want text, markdown, json or yaml)", ErrUnknownFormat, format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(rep *Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// YAMLRenderer renders a Report as YAML.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(rep *Report) ([]byte, error) {
	return yaml.Marshal(rep)
}

// TextRenderer renders a Report for a terminal. Without Color, highlighted
// spans are bracketed as [[span]].
type TextRenderer struct {
	Color bool
}

type bracketFormatter struct{}

func (bracketFormatter) Plain(text string) string { return text }

func (bracketFormatter) Highlight(seg highlight.Segment) string {
	return "[[" + seg.Text + "]]"
}

func (r *TextRenderer) Render(rep *Report) ([]byte, error) {
	var f highlight.Formatter = bracketFormatter{}
	if r.Color {
		f = highlight.NewTerminalFormatter()
	}
	res := rep.Result

	var sb strings.Builder
	sb.WriteString(highlight.Render(rep.Text, res.Corrections).Format(f))
	if !strings.HasSuffix(rep.Text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if res.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", res.Summary)
	}
	if res.IsFullyCorrect {
		sb.WriteString("No corrections: the text looks correct.\n")
		return []byte(sb.String()), nil
	}

	fmt.Fprintf(&sb, "%d correction(s):\n", len(res.Corrections))
	for i, c := range res.Corrections {
		label := "[" + c.DisplayLabel() + "]"
		if r.Color {
			label = highlight.CategoryStyle(c.Category).Render(label)
		}
		fmt.Fprintf(&sb, "  %d. %s %q → %q\n", i+1, label, c.OriginalSpan, c.SuggestedSpan)
		if c.Rationale != "" {
			fmt.Fprintf(&sb, "     %s\n", c.Rationale)
		}
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders a Report as Markdown with inline highlight markup
// and an embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)
	res := rep.Result

	var sb strings.Builder

	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# Proofread: %s (%s)\n\n", rep.Source, rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	if res.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", res.Summary)
	}
	if res.IsFullyCorrect {
		sb.WriteString("- Status: fully correct\n")
	} else {
		fmt.Fprintf(&sb, "- Status: %d open correction(s)\n", len(res.Corrections))
	}
	if rep.Author != "" {
		fmt.Fprintf(&sb, "- Author: %s\n", rep.Author)
	}
	if rep.Provider != "" {
		fmt.Fprintf(&sb, "- Provider: %s\n", rep.Provider)
	}
	if rep.EntryID != "" {
		fmt.Fprintf(&sb, "- History entry: %s\n", rep.EntryID)
	}
	sb.WriteString("\n")

	// ## Text
	sb.WriteString("## Text\n\n")
	sb.WriteString("<div class=\"proofread-text\">")
	sb.WriteString(highlight.Render(rep.Text, res.Corrections).Markup())
	sb.WriteString("</div>\n\n")

	// ## Corrections
	sb.WriteString("## Corrections\n\n")
	if len(res.Corrections) == 0 {
		sb.WriteString("_No corrections._\n")
	} else {
		sb.WriteString("| # | Category | Original | Suggested | Reason |\n")
		sb.WriteString("|---|----------|----------|-----------|--------|\n")
		for i, c := range res.Corrections {
			fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
				i+1,
				cell(c.DisplayLabel()),
				cell(c.OriginalSpan),
				cell(c.SuggestedSpan),
				cell(c.Rationale),
			)
		}
	}
	sb.WriteString("\n")

	// ## Corrected Text
	sb.WriteString("## Corrected Text\n\n")
	sb.WriteString("```text\n")
	sb.WriteString(res.CorrectedFullText)
	if !strings.HasSuffix(res.CorrectedFullText, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")

	return []byte(sb.String()), nil
}

// cell makes s safe for a single Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
