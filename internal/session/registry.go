package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Transport is the outbound side of one live connection. Implementations
// must be safe for concurrent use; the websocket adapter serializes writes.
type Transport interface {
	WriteJSON(v any) error
	Ping() error
	Close() error
}

// Session is one live bidirectional connection and its identity metadata.
type Session struct {
	ID          string
	UserID      string
	Device      string
	RemoteAddr  string
	ConnectedAt time.Time

	transport Transport
	alive     bool
}

// EffectiveUserID returns the authenticated user id, or the connection id
// for sessions that never sent auth. Unauthenticated sessions deliberately
// get a per-connection synthetic identity for conversation history.
func (s *Session) EffectiveUserID() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.ID
}

// Stats summarizes the registry.
type Stats struct {
	TotalClients int            `json:"totalClients"`
	Devices      map[string]int `json:"devices"`
}

// Registry tracks live connections. All sends are best-effort: writing to a
// closed or errored transport is dropped, never surfaced to the caller.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onClose  func(*Session)
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// SetCloseHook registers a callback invoked after a session is removed,
// whether by Unregister or by heartbeat reclamation.
func (r *Registry) SetCloseHook(hook func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = hook
}

func (r *Registry) Register(transport Transport, remoteAddr string) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		Device:      "unknown",
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
		transport:   transport,
		alive:       true,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.Printf("[session] connected: %s from %s", s.ID, remoteAddr)
	return s
}

// Authenticate binds a user identity and device label to a session. Empty
// fields keep their previous values.
func (r *Registry) Authenticate(sessionID, userID, device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if userID != "" {
		s.UserID = userID
	}
	if device != "" {
		s.Device = device
	}
	return nil
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	hook := r.onClose
	r.mu.Unlock()

	if !ok {
		return
	}
	log.Printf("[session] disconnected: %s (%s)", s.ID, s.Device)
	if hook != nil {
		hook(s)
	}
}

// Send delivers a payload to one session. Missing sessions and transport
// errors are no-ops.
func (r *Registry) Send(sessionID string, payload any) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.transport.WriteJSON(payload); err != nil {
		log.Printf("[session] send to %s failed: %v", sessionID, err)
	}
}

// Broadcast delivers a payload to every session except excludeID.
func (r *Registry) Broadcast(payload any, excludeID string) {
	for _, s := range r.snapshot() {
		if s.ID == excludeID {
			continue
		}
		_ = s.transport.WriteJSON(payload)
	}
}

// SendToUser delivers a payload to every session authenticated as userID.
func (r *Registry) SendToUser(userID string, payload any) {
	for _, s := range r.snapshot() {
		if s.UserID == userID {
			_ = s.transport.WriteJSON(payload)
		}
	}
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{
		TotalClients: len(r.sessions),
		Devices:      make(map[string]int),
	}
	for _, s := range r.sessions {
		st.Devices[s.Device]++
	}
	return st
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// MarkAlive records a pong from the session's transport.
func (r *Registry) MarkAlive(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.alive = true
	}
}

// StartHeartbeat pings every transport on a fixed interval. A session that
// failed to answer the previous cycle's ping is force-closed and removed;
// this is the sole liveness mechanism for transports that died without a
// clean close.
func (r *Registry) StartHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.heartbeat()
			}
		}
	}()
}

func (r *Registry) heartbeat() {
	var stale []*Session

	r.mu.Lock()
	for _, s := range r.sessions {
		if !s.alive {
			stale = append(stale, s)
			delete(r.sessions, s.ID)
			continue
		}
		s.alive = false
	}
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	hook := r.onClose
	r.mu.Unlock()

	for _, s := range stale {
		log.Printf("[session] heartbeat timeout: %s (%s)", s.ID, s.Device)
		_ = s.transport.Close()
		if hook != nil {
			hook(s)
		}
	}
	for _, s := range live {
		_ = s.transport.Ping()
	}
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
