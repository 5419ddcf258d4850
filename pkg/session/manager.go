package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/atlastlabs/yatra/pkg/agent"
)

// DefaultTTL is how long an idle session survives before pruning.
const DefaultTTL = 24 * time.Hour

// entry pairs one assistant (and thus one conversation memory) with its
// last-use timestamp.
type entry struct {
	assistant *agent.Assistant
	lastSeen  time.Time
}

// Manager shards one Assistant per session so concurrent users never share
// conversation state. The assistant model assumes one active conversation per
// instance; the manager is the external shard around that assumption.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory func() *agent.Assistant
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewManager creates a session manager. factory builds a fresh Assistant for
// each new session. Non-positive ttl uses DefaultTTL.
func NewManager(factory func() *agent.Assistant, ttl time.Duration, logger *logrus.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		entries: make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the assistant for sessionID, creating both the session and its
// ID when sessionID is empty. The returned ID is the one the client should
// send on its next request.
func (m *Manager) Get(sessionID string) (*agent.Assistant, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	e, ok := m.entries[sessionID]
	if !ok {
		e = &entry{assistant: m.factory()}
		m.entries[sessionID] = e
		m.logger.WithFields(logrus.Fields{
			"session_id":     sessionID,
			"total_sessions": len(m.entries),
		}).Info("Session created")
	}
	e.lastSeen = time.Now()

	return e.assistant, sessionID
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Prune drops sessions idle longer than the TTL and returns how many were
// removed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	removed := 0
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"removed":        removed,
			"total_sessions": len(m.entries),
		}).Info("Pruned idle sessions")
	}
	return removed
}

// StartPruning runs Prune on the given interval until stop is closed.
func (m *Manager) StartPruning(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune()
		case <-stop:
			return
		}
	}
}
