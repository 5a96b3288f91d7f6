package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mgerber/atlas/internal/brain"
	"github.com/mgerber/atlas/internal/claude"
	"github.com/mgerber/atlas/internal/memory"
	"github.com/mgerber/atlas/internal/protocol"
	"github.com/mgerber/atlas/internal/session"
	"github.com/mgerber/atlas/internal/skills"
	"github.com/mgerber/atlas/internal/voice"
)

type recordingTransport struct {
	mu     sync.Mutex
	frames []any
}

func (r *recordingTransport) WriteJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, v)
	return nil
}

func (r *recordingTransport) Ping() error  { return nil }
func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) types() []protocol.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.MessageType, 0, len(r.frames))
	for _, f := range r.frames {
		if t, ok := frameTypeOf(f); ok {
			out = append(out, t)
		}
	}
	return out
}

func newTestHandler(stt voice.Transcriber) (*Handler, *session.Registry) {
	store := memory.NewStore(20, 30*time.Minute)
	skillSvc := skills.NewService(skills.Config{DefaultLocation: "Berlin"}, nil)
	b := brain.New(claude.NewMockAdapter(), store, nil, skillSvc, nil)
	sessions := session.NewRegistry()
	if stt == nil {
		stt = &voice.MockTranscriber{Result: voice.Transcript{Text: "hallo"}}
	}
	return New(sessions, b, voice.NewMockSynthesizer(), stt, nil), sessions
}

func TestAuthBindsIdentity(t *testing.T) {
	h, sessions := newTestHandler(nil)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"auth","userId":"u1","device":"phone"}`))

	got, err := sessions.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Device != "phone" {
		t.Fatalf("session not bound: %+v", got)
	}

	types := tr.types()
	if len(types) != 1 || types[0] != protocol.TypeAuthSuccess {
		t.Fatalf("frames = %v, want [auth_success]", types)
	}
}

func TestTextMessageEmitsResponseAndOptionalAudio(t *testing.T) {
	h, sessions := newTestHandler(nil)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"message","text":"hallo","wantAudio":true}`))

	types := tr.types()
	if len(types) != 2 || types[0] != protocol.TypeResponse || types[1] != protocol.TypeAudioOut {
		t.Fatalf("frames = %v, want [response audio]", types)
	}
	resp := tr.frames[0].(protocol.Response)
	if !resp.Success || resp.Text == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAudioFallbackAbortsPipeline(t *testing.T) {
	stt := &voice.MockTranscriber{Result: voice.Transcript{
		UseClientSide: true,
		Message:       "Kein STT API Key konfiguriert.",
	}}
	h, sessions := newTestHandler(stt)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"audio","audio":"AAAA"}`))

	types := tr.types()
	want := []protocol.MessageType{protocol.TypeProcessing, protocol.TypeUseClientSTT}
	if len(types) != len(want) {
		t.Fatalf("frames = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("frames = %v, want %v", types, want)
		}
	}
	stage := tr.frames[0].(protocol.Processing)
	if stage.Stage != protocol.StageSTT {
		t.Fatalf("first stage = %q, want stt", stage.Stage)
	}
}

func TestAudioPipelineStages(t *testing.T) {
	stt := &voice.MockTranscriber{Result: voice.Transcript{Text: "Wie spät ist es in Tokyo?"}}
	h, sessions := newTestHandler(stt)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"audio","audio":"AAAA","format":"webm"}`))

	want := []protocol.MessageType{
		protocol.TypeProcessing,
		protocol.TypeTranscription,
		protocol.TypeProcessing,
		protocol.TypeResponse,
		protocol.TypeProcessing,
		protocol.TypeAudioOut,
	}
	types := tr.types()
	if len(types) != len(want) {
		t.Fatalf("frames = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("frames = %v, want %v", types, want)
		}
	}

	resp := tr.frames[3].(protocol.Response)
	dt, ok := resp.Data.(skills.DateTimeResult)
	if !ok || dt.Timezone != "Asia/Tokyo" {
		t.Fatalf("response data = %#v, want datetime for Tokyo", resp.Data)
	}
}

func TestPingAndStatus(t *testing.T) {
	h, sessions := newTestHandler(nil)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"ping"}`))
	h.Handle(context.Background(), s.ID, []byte(`{"type":"status"}`))

	types := tr.types()
	if len(types) != 2 || types[0] != protocol.TypePong || types[1] != protocol.TypeStatusReply {
		t.Fatalf("frames = %v, want [pong status]", types)
	}
	status := tr.frames[1].(protocol.StatusReply)
	if status.Clients != 1 {
		t.Fatalf("Clients = %d, want 1", status.Clients)
	}
}

func TestUnknownTypeIsIgnored(t *testing.T) {
	h, sessions := newTestHandler(nil)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")

	h.Handle(context.Background(), s.ID, []byte(`{"type":"telemetry"}`))

	if types := tr.types(); len(types) != 0 {
		t.Fatalf("frames = %v, want none", types)
	}
}

func TestSendToGoneSessionIsNoop(t *testing.T) {
	h, sessions := newTestHandler(nil)
	tr := &recordingTransport{}
	s := sessions.Register(tr, "test")
	sessions.Unregister(s.ID)

	// The pipeline may still be mid-flight after a disconnect.
	h.Handle(context.Background(), s.ID, []byte(`{"type":"ping"}`))

	if types := tr.types(); len(types) != 0 {
		t.Fatalf("frames sent to gone session: %v", types)
	}
}
