package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser deserializes a report file back into structured data.
type Parser interface {
	Parse(data []byte) (*Report, error)
}

// ParserFor picks a parser from the file extension, falling back to
// sniffing the content.
func ParserFor(path string, data []byte) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return &MarkdownParser{}
	case ".json":
		return &JSONParser{}
	case ".yaml", ".yml":
		return &YAMLParser{}
	}
	switch {
	case bytes.Contains(data, []byte(versionSentinel)):
		return &MarkdownParser{}
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")):
		return &JSONParser{}
	}
	return &YAMLParser{}
}

// JSONParser parses a JSON-encoded Report.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Report, error) {
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	return normalize(&rep), nil
}

// YAMLParser parses a YAML-encoded Report.
type YAMLParser struct{}

func (p *YAMLParser) Parse(data []byte) (*Report, error) {
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse YAML report: %w", err)
	}
	if rep.Text == "" && rep.Result.CorrectedFullText == "" && len(rep.Result.Corrections) == 0 {
		return nil, fmt.Errorf("failed to parse YAML report: no report fields found")
	}
	return normalize(&rep), nil
}

// MarkdownParser parses a Markdown-rendered Report by extracting the
// embedded base64 JSON payload from the sentinel comments.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Report, error) {
	content := string(data)

	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a valid proofread report: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid proofread report: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid proofread report: malformed data payload")
	}
	encoded := content[start : start+end]

	jsonBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not a valid proofread report: corrupted base64 payload: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(jsonBytes, &rep); err != nil {
		return nil, fmt.Errorf("not a valid proofread report: failed to parse embedded JSON: %w", err)
	}
	return normalize(&rep), nil
}

// normalize re-derives the fully-correct flag, which a hand-edited report
// may contradict.
func normalize(rep *Report) *Report {
	rep.Result = rep.Result.WithCorrections(rep.Result.Corrections)
	return rep
}
