package agent

import (
	"context"
	"errors"
)

// Completion failure kinds. The orchestrator maps each kind to a literal
// user-facing fallback string; raw provider errors never reach the caller.
var (
	// ErrAuth covers missing, invalid or expired credentials.
	ErrAuth = errors.New("completion provider rejected credentials")
	// ErrRateLimited covers quota and rate-limit rejections.
	ErrRateLimited = errors.New("completion provider rate limited")
	// ErrSafetyBlocked covers replies withheld by the provider's content filter.
	ErrSafetyBlocked = errors.New("completion blocked by safety filter")
)

// CompletionProvider generates a text completion for one opaque prompt.
// Implementations classify failures into the error kinds above where
// possible so the orchestrator can pick the right fallback reply.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}
