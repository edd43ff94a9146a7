// session.go holds the per-session state the turn controller owns: the
// append-only conversation, the system prompt and the fleet balance cache.
// Cross-cutting toggles live here instead of process-wide globals.
package copilot

import (
	"sync"
	"time"
)

// Session is one user's conversation with the copilot. The conversation
// lives in memory for the session lifetime only; nothing here persists.
type Session struct {
	// ID identifies the session.
	ID string

	// CreatedAt is the session creation timestamp.
	CreatedAt time.Time

	systemPrompt string
	messages     []Message

	// balances caches the last known balance per bot, fed by the
	// refresh_balances tool and the scheduler.
	balances map[string]string

	lastActiveAt time.Time

	mu sync.RWMutex
}

// NewSession creates a session with the given system prompt.
func NewSession(id, systemPrompt string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		systemPrompt: systemPrompt,
		balances:     make(map[string]string),
		lastActiveAt: now,
	}
}

// SystemPrompt returns the session's system prompt.
func (s *Session) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemPrompt
}

// Append adds a message to the conversation.
func (s *Session) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.lastActiveAt = time.Now()
}

// Messages returns a copy of the conversation slice. Blocks are shared;
// callers that need isolated copies go through Segment.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of conversation messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Truncate drops messages appended after position n. The turn controller
// uses it to retract an abandoned turn when the backend fails, so the
// triggering user message can be resent cleanly.
func (s *Session) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= 0 && n < len(s.messages) {
		s.messages = s.messages[:n]
	}
}

// SetBalance updates the cached balance for a bot.
func (s *Session) SetBalance(bot, balance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[bot] = balance
}

// Balances returns a copy of the cached balances.
func (s *Session) Balances() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out
}
