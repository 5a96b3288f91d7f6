package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu       sync.Mutex
	written  []any
	pings    int
	closed   bool
	writeErr error
	onPing   func()
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeTransport) Ping() error {
	f.mu.Lock()
	f.pings++
	cb := f.onPing
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func TestRegisterAuthenticateUnregister(t *testing.T) {
	r := NewRegistry()
	s := r.Register(&fakeTransport{}, "127.0.0.1")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}
	if s.EffectiveUserID() != s.ID {
		t.Fatalf("EffectiveUserID = %q, want connection id %q", s.EffectiveUserID(), s.ID)
	}

	if err := r.Authenticate(s.ID, "user-1", "kitchen-tablet"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "user-1" || got.Device != "kitchen-tablet" {
		t.Fatalf("unexpected session state: %+v", got)
	}
	if got.EffectiveUserID() != "user-1" {
		t.Fatalf("EffectiveUserID = %q, want %q", got.EffectiveUserID(), "user-1")
	}

	r.Unregister(s.ID)
	if _, err := r.Get(s.ID); err != ErrNotFound {
		t.Fatalf("Get() after Unregister error = %v, want ErrNotFound", err)
	}
}

func TestSendToMissingSessionIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Send("no-such-session", map[string]string{"type": "pong"})
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRegistry()
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}
	s1 := r.Register(t1, "a")
	r.Register(t2, "b")

	r.Broadcast(map[string]string{"type": "status"}, s1.ID)
	if t1.writtenCount() != 0 {
		t.Fatalf("excluded session received %d messages", t1.writtenCount())
	}
	if t2.writtenCount() != 1 {
		t.Fatalf("other session received %d messages, want 1", t2.writtenCount())
	}
}

func TestSendToUserReachesAllUserSessions(t *testing.T) {
	r := NewRegistry()
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}
	t3 := &fakeTransport{}
	s1 := r.Register(t1, "a")
	s2 := r.Register(t2, "b")
	r.Register(t3, "c")
	_ = r.Authenticate(s1.ID, "user-1", "phone")
	_ = r.Authenticate(s2.ID, "user-1", "laptop")

	r.SendToUser("user-1", map[string]string{"type": "response"})
	if t1.writtenCount() != 1 || t2.writtenCount() != 1 {
		t.Fatalf("user sessions got %d/%d messages, want 1/1", t1.writtenCount(), t2.writtenCount())
	}
	if t3.writtenCount() != 0 {
		t.Fatalf("unrelated session got %d messages", t3.writtenCount())
	}
}

func TestStatsDeviceHistogram(t *testing.T) {
	r := NewRegistry()
	s1 := r.Register(&fakeTransport{}, "a")
	s2 := r.Register(&fakeTransport{}, "b")
	r.Register(&fakeTransport{}, "c")
	_ = r.Authenticate(s1.ID, "u1", "phone")
	_ = r.Authenticate(s2.ID, "u2", "phone")

	st := r.Stats()
	if st.TotalClients != 3 {
		t.Fatalf("TotalClients = %d, want 3", st.TotalClients)
	}
	if st.Devices["phone"] != 2 || st.Devices["unknown"] != 1 {
		t.Fatalf("unexpected device histogram: %+v", st.Devices)
	}
}

func TestHeartbeatReclaimsUnresponsiveSession(t *testing.T) {
	r := NewRegistry()
	responsive := &fakeTransport{}
	silent := &fakeTransport{}
	s1 := r.Register(responsive, "a")
	s2 := r.Register(silent, "b")

	// The responsive transport answers every ping, the silent one never does.
	responsive.onPing = func() { r.MarkAlive(s1.ID) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartHeartbeat(ctx, 10*time.Millisecond)

	deadline := time.After(500 * time.Millisecond)
	for {
		if _, err := r.Get(s2.ID); err == ErrNotFound {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("silent session was not reclaimed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	silent.mu.Lock()
	closed := silent.closed
	silent.mu.Unlock()
	if !closed {
		t.Fatalf("silent transport was not closed")
	}
	if _, err := r.Get(s1.ID); err != nil {
		t.Fatalf("responsive session was reclaimed: %v", err)
	}
	if st := r.Stats(); st.TotalClients != 1 {
		t.Fatalf("TotalClients = %d after reclamation, want 1", st.TotalClients)
	}
}
