package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
)

// connState is the connection lifecycle of a LibSQLStore.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const createSearchesTable = `
CREATE TABLE IF NOT EXISTS searches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_query TEXT NOT NULL,
	bot_reply TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// LibSQLStore persists exchanges in an embedded libsql database file.
//
// The store survives dropped connections and corrupted files: construction
// failure leaves it Disconnected without aborting the host process, every
// operation attempts one reconnect when Disconnected, and a corrupt file at
// startup is deleted and recreated rather than refusing to start. The
// reconnect-then-write sequence runs under the store mutex since it is not
// atomic on its own.
type LibSQLStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	state  connState
	logger *logrus.Logger
}

// NewLibSQLStore opens (or creates) the database file at path. A connection
// failure is logged, not returned: the store starts Disconnected and retries
// on first use.
func NewLibSQLStore(path string, logger *logrus.Logger) *LibSQLStore {
	if logger == nil {
		logger = logrus.New()
	}

	s := &LibSQLStore{
		path:   path,
		state:  stateDisconnected,
		logger: logger,
	}

	if err := s.connect(); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path": path,
		}).Warn("Store unavailable at startup, will reconnect on demand")
	}

	return s
}

// connect transitions Disconnected -> Connecting -> Connected. Callers must
// hold the mutex or be the constructor.
func (s *LibSQLStore) connect() error {
	s.state = stateConnecting

	db, err := s.open()
	if err != nil {
		// A file that exists but cannot be opened or verified is treated as
		// corrupt: recreate it from scratch rather than failing to start.
		if _, statErr := os.Stat(s.path); statErr == nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"path": s.path,
			}).Warn("Database file unusable, deleting and recreating")
			storeRecoveriesTotal.Inc()
			if rmErr := os.Remove(s.path); rmErr != nil {
				s.state = stateDisconnected
				return fmt.Errorf("remove corrupt database: %w", rmErr)
			}
			db, err = s.open()
		}
		if err != nil {
			s.state = stateDisconnected
			return err
		}
	}

	s.db = db
	s.state = stateConnected
	s.logger.WithFields(logrus.Fields{
		"path": s.path,
	}).Info("Store connected")
	return nil
}

// open opens the database file, validates its integrity and applies the
// idempotent schema.
func (s *LibSQLStore) open() (*sql.DB, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.path)
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql connection: %w", err)
	}

	ctx := context.Background()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		db.Close()
		return nil, fmt.Errorf("connectivity check: %w", err)
	}

	var verdict string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&verdict); err != nil {
		db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(verdict, "ok") {
		db.Close()
		return nil, fmt.Errorf("integrity check failed: %s", verdict)
	}

	if _, err := db.ExecContext(ctx, createSearchesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}

// ensureConnected attempts one reconnect when Disconnected. Callers must hold
// the mutex.
func (s *LibSQLStore) ensureConnected() error {
	if s.state == stateConnected {
		return nil
	}

	storeReconnectsTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"path":  s.path,
		"state": s.state.String(),
	}).Info("Store disconnected, attempting reconnect")

	return s.connect()
}

// markDisconnected drops the connection after an I/O error so the next
// operation reconnects. Callers must hold the mutex.
func (s *LibSQLStore) markDisconnected() {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	s.state = stateDisconnected
}

// Record appends one exchange. On a dropped connection the write is retried
// once after a reconnect; a second failure is returned for the caller to log,
// never to propagate to the user.
func (s *LibSQLStore) Record(ctx context.Context, userQuery, botReply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnected(); err != nil {
		storeOpsTotal.WithLabelValues("record", "unavailable").Inc()
		return fmt.Errorf("store unavailable: %w", err)
	}

	const insert = `INSERT INTO searches (user_query, bot_reply) VALUES (?, ?)`

	if _, err := s.db.ExecContext(ctx, insert, userQuery, botReply); err != nil {
		s.markDisconnected()
		if reErr := s.ensureConnected(); reErr != nil {
			storeOpsTotal.WithLabelValues("record", "error").Inc()
			return fmt.Errorf("record exchange: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, insert, userQuery, botReply); err != nil {
			s.markDisconnected()
			storeOpsTotal.WithLabelValues("record", "error").Inc()
			return fmt.Errorf("record exchange after reconnect: %w", err)
		}
	}

	storeOpsTotal.WithLabelValues("record", "success").Inc()
	return nil
}

// AllRecords returns every stored exchange, most recent first. When the store
// is unavailable it returns an empty slice along with the error; the chat
// path never depends on this call.
func (s *LibSQLStore) AllRecords(ctx context.Context) ([]ExchangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnected(); err != nil {
		storeOpsTotal.WithLabelValues("all_records", "unavailable").Inc()
		return []ExchangeRecord{}, fmt.Errorf("store unavailable: %w", err)
	}

	const query = `SELECT id, user_query, bot_reply, created_at FROM searches ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.markDisconnected()
		storeOpsTotal.WithLabelValues("all_records", "error").Inc()
		return []ExchangeRecord{}, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	records := make([]ExchangeRecord, 0)
	for rows.Next() {
		var rec ExchangeRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserQuery, &rec.BotReply, &createdAt); err != nil {
			storeOpsTotal.WithLabelValues("all_records", "error").Inc()
			return []ExchangeRecord{}, fmt.Errorf("scan exchange: %w", err)
		}
		rec.CreatedAt = parseTimestamp(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.markDisconnected()
		storeOpsTotal.WithLabelValues("all_records", "error").Inc()
		return []ExchangeRecord{}, fmt.Errorf("iterate exchanges: %w", err)
	}

	storeOpsTotal.WithLabelValues("all_records", "success").Inc()
	return records, nil
}

// parseTimestamp parses the formats libsql emits for CURRENT_TIMESTAMP
// columns. Unparseable values map to the zero time rather than an error;
// timestamps are informational.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Close shuts the connection down and leaves the store Disconnected.
func (s *LibSQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = stateDisconnected
	return err
}

var _ Store = (*LibSQLStore)(nil)
