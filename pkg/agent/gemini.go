package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultGeminiBaseURL is the Generative Language API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultGeminiModel is used when no model is configured. The model
	// identifier is always injected from configuration; the client never
	// probes a model registry at runtime.
	DefaultGeminiModel = "gemini-1.5-flash"
	// DefaultGeminiTimeout bounds one completion request.
	DefaultGeminiTimeout = 30 * time.Second
)

// GeminiClient implements CompletionProvider against the Generative Language
// REST API.
type GeminiClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGeminiClient creates a Gemini completion client. apiKey is required;
// model and baseURL fall back to defaults when empty.
func NewGeminiClient(apiKey, model, baseURL string, logger *logrus.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &GeminiClient{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultGeminiTimeout,
		},
		logger: logger,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate    `json:"candidates"`
	PromptFeedback geminiPromptFeedback `json:"promptFeedback"`
}

// Name identifies the provider in logs.
func (c *GeminiClient) Name() string {
	return "gemini/" + c.model
}

// Complete sends the prompt and returns the generated text. HTTP status and
// payload markers are classified into the package error kinds.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"model":         c.model,
		"prompt_length": len(prompt),
	}).Debug("Requesting completion")

	reqPayload := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&reqPayload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	default:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if gResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrSafetyBlocked, gResp.PromptFeedback.BlockReason)
	}
	if len(gResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := gResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", fmt.Errorf("%w: candidate finish reason SAFETY", ErrSafetyBlocked)
	}
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no parts in candidate")
	}

	text := strings.TrimSpace(candidate.Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty completion text")
	}

	c.logger.WithFields(logrus.Fields{
		"model":        c.model,
		"duration_ms":  duration.Milliseconds(),
		"reply_length": len(text),
	}).Debug("Completion received")

	return text, nil
}

var _ CompletionProvider = (*GeminiClient)(nil)
