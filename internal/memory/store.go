package memory

import (
	"context"
	"log"
	"sync"
	"time"
)

// Role tags one side of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Stats summarizes live conversation state.
type Stats struct {
	ActiveConversations int `json:"activeConversations"`
	TotalTurns          int `json:"totalTurns"`
	HistoryLimit        int `json:"historyLimit"`
}

type conversation struct {
	turns        []Turn
	metadata     map[string]string
	lastActivity time.Time
}

// Store keeps a bounded, TTL-expiring conversation log per user.
//
// Expiry is dual: reads lazily drop a conversation whose last activity is
// older than the context timeout, and a janitor sweeps the whole map on a
// fixed interval so abandoned conversations cannot accumulate.
type Store struct {
	mu             sync.RWMutex
	conversations  map[string]*conversation
	historyLimit   int
	contextTimeout time.Duration
	now            func() time.Time
}

func NewStore(historyLimit int, contextTimeout time.Duration) *Store {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	if contextTimeout <= 0 {
		contextTimeout = 30 * time.Minute
	}
	return &Store{
		conversations:  make(map[string]*conversation),
		historyLimit:   historyLimit,
		contextTimeout: contextTimeout,
		now:            time.Now,
	}
}

// History returns the turns for a user, oldest first. An expired
// conversation is deleted and reported as empty.
func (s *Store) History(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if !ok {
		return nil
	}
	if s.now().Sub(conv.lastActivity) > s.contextTimeout {
		delete(s.conversations, userID)
		return nil
	}

	out := make([]Turn, len(conv.turns))
	copy(out, conv.turns)
	return out
}

// Append records a turn, creating the conversation on first use and
// truncating to the most recent turns when the cap is exceeded.
func (s *Store) Append(userID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if !ok {
		conv = &conversation{metadata: make(map[string]string)}
		s.conversations[userID] = conv
	}

	conv.turns = append(conv.turns, Turn{Role: role, Content: content})
	conv.lastActivity = s.now()

	if len(conv.turns) > s.historyLimit {
		conv.turns = append([]Turn(nil), conv.turns[len(conv.turns)-s.historyLimit:]...)
	}
}

// Clear deletes a user's conversation. Idempotent on missing users.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[userID]; ok {
		delete(s.conversations, userID)
		log.Printf("[memory] cleared context for user %s", userID)
	}
}

// SetMetadata stores a per-user preference alongside the conversation.
func (s *Store) SetMetadata(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[userID]
	if !ok {
		conv = &conversation{metadata: make(map[string]string)}
		s.conversations[userID] = conv
		conv.lastActivity = s.now()
	}
	conv.metadata[key] = value
}

func (s *Store) Metadata(userID, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[userID]
	if !ok {
		return ""
	}
	return conv.metadata[key]
}

// Stats counts live conversations, excluding those already past the timeout.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	st := Stats{HistoryLimit: s.historyLimit}
	for _, conv := range s.conversations {
		if now.Sub(conv.lastActivity) > s.contextTimeout {
			continue
		}
		st.ActiveConversations++
		st.TotalTurns += len(conv.turns)
	}
	return st
}

// Sweep removes every conversation idle longer than the context timeout and
// returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, conv := range s.conversations {
		if now.Sub(conv.lastActivity) > s.contextTimeout {
			delete(s.conversations, userID)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired conversations on a fixed interval until ctx is
// cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("[memory] swept %d inactive conversations", n)
				}
			}
		}
	}()
}
