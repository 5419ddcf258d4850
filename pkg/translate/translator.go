package translate

import (
	"context"
)

// Provider defines the interface for a single translation/detection endpoint.
// This abstraction keeps the pool independent of the wire protocol of any one
// hosted service (LibreTranslate-compatible servers, self-hosted mirrors, etc.).
type Provider interface {
	// Translate translates text from source language to target language.
	// sourceLang and targetLang are ISO 639-1 codes (e.g., "en", "hi").
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// Detect returns the ISO 639-1 code of the language the text is written in.
	Detect(ctx context.Context, text string) (string, error)

	// Name identifies the endpoint in logs and metrics.
	Name() string

	// CheckHealth verifies that the endpoint is reachable and operational.
	CheckHealth(ctx context.Context) error

	// CanDetect reports whether the endpoint offers language detection.
	// Translate-only mirrors are skipped by the pool's Detect failover.
	CanDetect() bool
}

// Attempt records the outcome of one provider call during failover. The pool
// aggregates attempts instead of raising per-provider errors.
type Attempt struct {
	Provider string
	Err      error
}

// Ok reports whether the attempt succeeded.
func (a Attempt) Ok() bool {
	return a.Err == nil
}
