package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultEndpointTimeout bounds every request to a single endpoint.
	// A slow mirror burns at most this much wall clock before the pool
	// advances to the next one.
	DefaultEndpointTimeout = 5 * time.Second
)

// LibreClient implements the Provider interface against a
// LibreTranslate-compatible HTTP API. All public mirrors the assistant uses
// speak this request shape.
type LibreClient struct {
	baseURL    string
	name       string
	detect     bool
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewLibreClient creates a client for one LibreTranslate-compatible endpoint.
// name identifies the endpoint in logs; detect marks whether the endpoint
// exposes the /detect route.
func NewLibreClient(name, baseURL string, timeout time.Duration, detect bool, logger *logrus.Logger) *LibreClient {
	if timeout <= 0 {
		timeout = DefaultEndpointTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LibreClient{
		baseURL: baseURL,
		name:    name,
		detect:  detect,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// translateRequest represents a LibreTranslate API request.
type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"` // e.g., "hi"
	Target string `json:"target"` // e.g., "en"
	Format string `json:"format"` // "text" or "html"
}

// translateResponse represents a LibreTranslate API response.
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// detectResponse represents one entry of a LibreTranslate /detect response.
type detectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// languagesResponse represents the response from the /languages endpoint.
type languagesResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Name identifies the endpoint in logs and metrics.
func (c *LibreClient) Name() string {
	return c.name
}

// CanDetect reports whether the endpoint offers language detection.
func (c *LibreClient) CanDetect() bool {
	return c.detect
}

// Translate translates text from source language to target language.
func (c *LibreClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"endpoint":    c.name,
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": len(text),
	}).Debug("Translating text")

	reqPayload := translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&reqPayload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/translate"
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

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ltResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ltResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if ltResp.TranslatedText == "" {
		return "", fmt.Errorf("empty translation in response")
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    c.name,
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"duration_ms": duration.Milliseconds(),
	}).Debug("Translation completed")

	return ltResp.TranslatedText, nil
}

// Detect returns the language code of the given text.
func (c *LibreClient) Detect(ctx context.Context, text string) (string, error) {
	if !c.detect {
		return "", fmt.Errorf("endpoint %s does not support detection", c.name)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    c.name,
		"text_length": len(text),
	}).Debug("Detecting language")

	payload := map[string]string{"q": text}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var candidates []detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(candidates) == 0 || candidates[0].Language == "" {
		return "", fmt.Errorf("no language candidates in response")
	}

	return candidates[0].Language, nil
}

// CheckHealth verifies that the endpoint is reachable and serving a language
// list. The /languages route doubles as a health check.
func (c *LibreClient) CheckHealth(ctx context.Context) error {
	codes, err := c.SupportedLanguages(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(codes) == 0 {
		return fmt.Errorf("endpoint reports no languages")
	}
	return nil
}

// SupportedLanguages returns the language codes the endpoint can translate.
func (c *LibreClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	url := c.baseURL + "/languages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create languages request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var languages []languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		codes = append(codes, lang.Code)
	}

	return codes, nil
}
