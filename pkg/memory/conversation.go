package memory

import (
	"sync"

	"github.com/atlastlabs/yatra/pkg/language"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	// SpeakerUser marks turns written by the user.
	SpeakerUser Speaker = "user"
	// SpeakerAssistant marks turns written by the assistant.
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance in a conversation. Turns held in a Conversation are
// always in the canonical language so multi-turn context stays coherent when
// the user switches languages between turns.
type Turn struct {
	Role Speaker
	Text string
	Lang language.Code
}

// DefaultWindow is the default number of turns retained for prompt context.
const DefaultWindow = 12

// Conversation is a bounded, ordered window of turns. When the window is
// full the oldest turn is evicted first. One Conversation belongs to one
// session; the mutex covers the reconnecting HTTP deployments where two
// requests for the same session can overlap.
type Conversation struct {
	mu     sync.RWMutex
	turns  []Turn
	window int
}

// NewConversation creates a Conversation with the given window size.
// Non-positive windows fall back to DefaultWindow.
func NewConversation(window int) *Conversation {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Conversation{
		window: window,
	}
}

// Append adds a turn at the tail, evicting the oldest turns beyond the window.
func (c *Conversation) Append(turn Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	if len(c.turns) > c.window {
		c.turns = c.turns[len(c.turns)-c.window:]
	}
}

// Recent returns up to limit turns from the tail, oldest first. A
// non-positive limit returns the whole window. The returned slice is a copy.
func (c *Conversation) Recent(limit int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.turns) {
		limit = len(c.turns)
	}

	out := make([]Turn, limit)
	copy(out, c.turns[len(c.turns)-limit:])
	return out
}

// Len returns the number of turns currently held.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Window returns the configured window size.
func (c *Conversation) Window() int {
	return c.window
}
