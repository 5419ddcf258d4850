package store

import (
	"context"
	"time"
)

// ExchangeRecord is one persisted (query, reply) pair. Records are
// append-only; the core never updates or deletes them.
type ExchangeRecord struct {
	ID        int64     `json:"id"`
	UserQuery string    `json:"user_query"`
	BotReply  string    `json:"bot_reply"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists chat exchanges. Persistence is best-effort: implementations
// must never take down the chat path, and callers treat a failed Record as
// a logged no-op.
type Store interface {
	// Record appends one exchange.
	Record(ctx context.Context, userQuery, botReply string) error

	// AllRecords returns every stored exchange, most recent first.
	AllRecords(ctx context.Context) ([]ExchangeRecord, error)

	// Close releases the underlying connection.
	Close() error
}

// NoopStore discards writes and returns no history. Used when persistence is
// disabled by configuration.
type NoopStore struct{}

// Record discards the exchange.
func (NoopStore) Record(ctx context.Context, userQuery, botReply string) error {
	return nil
}

// AllRecords returns an empty history.
func (NoopStore) AllRecords(ctx context.Context) ([]ExchangeRecord, error) {
	return []ExchangeRecord{}, nil
}

// Close is a no-op.
func (NoopStore) Close() error {
	return nil
}

var _ Store = NoopStore{}
