package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// GeminiClient implements the three oracle roles against a Gemini-compatible
// generateContent API.
type GeminiClient struct {
	client   *resty.Client
	apiKey   string
	model    string
	baseURL  string
	validate *validator.Validate
}

var (
	_ Classifier = (*GeminiClient)(nil)
	_ Selector   = (*GeminiClient)(nil)
	_ Summarizer = (*GeminiClient)(nil)
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ClientOptions configures the transport behavior of the oracle client.
type ClientOptions struct {
	Timeout time.Duration
	Retries int // transport retries only; rejected responses are never retried
	BaseURL string
}

func NewGeminiClient(apiKey, model string, opts ClientOptions) *GeminiClient {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return &GeminiClient{
		client: resty.New().
			SetTimeout(opts.Timeout).
			SetRetryCount(opts.Retries).
			SetRetryWaitTime(2 * time.Second),
		apiKey:   apiKey,
		model:    model,
		baseURL:  opts.BaseURL,
		validate: validator.New(),
	}
}

// ClassifySlots judges slot eligibility for a batch of candidate items.
// Any error here means "no eligible slots" to the caller; it must never be
// interpreted as eligibility.
func (g *GeminiClient) ClassifySlots(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	prompt, err := buildClassifyPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("error building classify prompt: %w", err)
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("error calling classification oracle: %w", err)
	}

	var resp ClassifyResponse
	if err := json.Unmarshal([]byte(stripFences(text)), &resp); err != nil {
		return nil, fmt.Errorf("malformed classification response: %w", err)
	}

	return &resp, nil
}

// SelectWinner asks for one winner for a slot. A malformed or structurally
// incomplete response is a hard error for the slot.
func (g *GeminiClient) SelectWinner(ctx context.Context, req SelectRequest) (*Selection, error) {
	prompt, err := buildSelectPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("error building select prompt: %w", err)
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("error calling selection oracle: %w", err)
	}

	sel, err := parseSelection(text)
	if err != nil {
		return nil, err
	}
	if err := g.validate.Struct(sel); err != nil {
		return nil, fmt.Errorf("incomplete selection response: %w", err)
	}

	return sel, nil
}

// SubjectLine generates the issue subject. The caller enforces the length
// cap; the oracle's output is treated as a suggestion.
func (g *GeminiClient) SubjectLine(ctx context.Context, req SubjectRequest) (string, error) {
	text, err := g.generate(ctx, buildSubjectPrompt(req))
	if err != nil {
		return "", fmt.Errorf("error calling subject oracle: %w", err)
	}

	line := strings.TrimSpace(stripFences(text))
	if line == "" {
		return "", fmt.Errorf("empty subject response")
	}
	// Keep the first line only; some models add commentary below.
	if idx := strings.IndexByte(line, '\n'); idx > 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line), nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{
				Text: prompt,
			}},
		}},
	}

	var resp geminiResponse
	_, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		Post(url)

	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// parseSelection decodes a selector answer, tolerating markdown code fences.
func parseSelection(text string) (*Selection, error) {
	clean := stripFences(text)

	var sel Selection
	if err := json.Unmarshal([]byte(clean), &sel); err != nil {
		return nil, fmt.Errorf("malformed selection response: %w\nResponse: %s", err, clean)
	}
	return &sel, nil
}

// stripFences removes markdown code fences some models wrap JSON output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
