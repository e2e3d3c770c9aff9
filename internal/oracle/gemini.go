package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fakeyudi/proofread/internal/correction"
)

const (
	DefaultModel    = "gemini-3-flash-preview"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
)

const systemInstruction = "You are a professional Khmer linguist and editor. Your goal is to help users write perfect Khmer. " +
	"Identify errors accurately and provide helpful explanations in Khmer language."

const promptTemplate = "Please analyze the following Khmer text for spelling, grammar, and style errors. " +
	"Provide a list of specific corrections and an overall improved version.\n\nText to analyze: %q"

// responseSchema constrains the model to the analysis record shape.
var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"isCorrect": map[string]any{
			"type":        "BOOLEAN",
			"description": "True if the text has no spelling or grammar errors.",
		},
		"improvedText": map[string]any{
			"type":        "STRING",
			"description": "The complete corrected version of the text.",
		},
		"summary": map[string]any{
			"type":        "STRING",
			"description": "A short summary of the linguistic feedback in Khmer.",
		},
		"corrections": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"originalText":  map[string]any{"type": "STRING"},
					"suggestedText": map[string]any{"type": "STRING"},
					"reason":        map[string]any{"type": "STRING", "description": "Why this correction is suggested (in Khmer)."},
					"type":          map[string]any{"type": "STRING", "description": "spelling, grammar, or style"},
				},
				"required": []string{"originalText", "suggestedText", "reason", "type"},
			},
		},
	},
	"required": []string{"isCorrect", "improvedText", "summary", "corrections"},
}

// GeminiProvider calls the Gemini generateContent endpoint with a JSON
// response schema.
type GeminiProvider struct {
	Model       string
	Credentials CredentialSource
	baseURL     string       // endpoint prefix; the model name is appended
	httpClient  *http.Client // defaults to http.DefaultClient
}

// NewGeminiProvider returns a provider for model using keys from creds.
func NewGeminiProvider(model string, creds CredentialSource) *GeminiProvider {
	return NewGeminiProviderWithClient(model, creds, "", nil)
}

// NewGeminiProviderWithClient creates a provider with a custom endpoint and HTTP client.
func NewGeminiProviderWithClient(model string, creds CredentialSource, baseURL string, client *http.Client) *GeminiProvider {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}
	return &GeminiProvider{
		Model:       model,
		Credentials: creds,
		baseURL:     baseURL,
		httpClient:  client,
	}
}

func (p *GeminiProvider) ID() string {
	return "gemini:" + p.Model
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends text to Gemini and decodes the structured answer.
func (p *GeminiProvider) Analyze(ctx context.Context, text string) (correction.Result, error) {
	var key string
	if p.Credentials != nil {
		key, _ = p.Credentials.Credential()
	}
	if key == "" {
		return correction.Result{}, ErrMissingCredential
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(promptTemplate, text)}}},
		},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	})
	if err != nil {
		return correction.Result{}, err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, url.PathEscape(p.Model), url.QueryEscape(key))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return correction.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return correction.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Code: resp.StatusCode, Status: resp.Status}
		var ge geminiError
		if data, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); rerr == nil && json.Unmarshal(data, &ge) == nil {
			se.Message = ge.Error.Message
		}
		return correction.Result{}, se
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return correction.Result{}, &correction.DecodeError{Err: err}
	}
	if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
		return correction.Result{}, errors.New("gemini returned no candidates")
	}

	return correction.Decode([]byte(gResp.Candidates[0].Content.Parts[0].Text))
}
