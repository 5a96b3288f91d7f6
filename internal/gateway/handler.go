package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mgerber/atlas/internal/brain"
	"github.com/mgerber/atlas/internal/observability"
	"github.com/mgerber/atlas/internal/protocol"
	"github.com/mgerber/atlas/internal/session"
	"github.com/mgerber/atlas/internal/skills"
	"github.com/mgerber/atlas/internal/voice"
)

// Handler interprets inbound session frames and drives the staged audio
// pipeline. One call handles one frame; failures become an error frame to
// the originating session and never propagate.
type Handler struct {
	sessions  *session.Registry
	brain     *brain.Brain
	tts       voice.Synthesizer
	stt       voice.Transcriber
	metrics   *observability.Metrics
	startedAt time.Time
}

func New(sessions *session.Registry, b *brain.Brain, tts voice.Synthesizer, stt voice.Transcriber, metrics *observability.Metrics) *Handler {
	return &Handler{
		sessions:  sessions,
		brain:     b,
		tts:       tts,
		stt:       stt,
		metrics:   metrics,
		startedAt: time.Now(),
	}
}

// Welcome sends the initial frame after a connection is registered.
func (h *Handler) Welcome(sessionID string) {
	h.send(sessionID, protocol.Connected{
		Type:     protocol.TypeConnected,
		ClientID: sessionID,
		Message:  "Verbindung zu ATLAS hergestellt",
	})
}

// Handle processes one raw inbound frame for a session.
func (h *Handler) Handle(ctx context.Context, sessionID string, raw []byte) {
	parsed, err := protocol.ParseClientMessage(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			log.Printf("[gateway] %s: %v", sessionID, err)
			return
		}
		h.send(sessionID, protocol.ErrorFrame{Type: protocol.TypeError, Message: "Fehler bei der Verarbeitung"})
		return
	}

	switch msg := parsed.(type) {
	case protocol.Auth:
		h.countInbound(protocol.TypeAuth)
		h.handleAuth(sessionID, msg)
	case protocol.TextMessage:
		h.countInbound(protocol.TypeMessage)
		h.handleText(ctx, sessionID, msg)
	case protocol.AudioMessage:
		h.countInbound(protocol.TypeAudio)
		h.handleAudio(ctx, sessionID, msg)
	case protocol.Ping:
		h.countInbound(protocol.TypePing)
		h.send(sessionID, protocol.Pong{Type: protocol.TypePong, Timestamp: time.Now().UnixMilli()})
	case protocol.StatusRequest:
		h.countInbound(protocol.TypeStatus)
		h.send(sessionID, protocol.StatusReply{
			Type:    protocol.TypeStatusReply,
			Clients: h.sessions.Count(),
			Uptime:  time.Since(h.startedAt).Seconds(),
		})
	}
}

func (h *Handler) handleAuth(sessionID string, msg protocol.Auth) {
	userID := msg.UserID
	if userID == "" {
		// Advisory identity only; fall back to the connection id.
		userID = sessionID
	}
	device := msg.Device
	if device == "" {
		device = "unknown"
	}
	if err := h.sessions.Authenticate(sessionID, userID, device); err != nil {
		return
	}
	h.send(sessionID, protocol.AuthSuccess{
		Type:   protocol.TypeAuthSuccess,
		UserID: userID,
		Device: device,
	})
}

func (h *Handler) handleText(ctx context.Context, sessionID string, msg protocol.TextMessage) {
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		return
	}
	userID := sess.EffectiveUserID()

	result := h.brain.Process(ctx, userID, msg.Text, skills.Context{
		Location: msg.Context.Location,
		Device:   sess.Device,
	})

	h.send(sessionID, protocol.Response{
		Type:    protocol.TypeResponse,
		Text:    result.Message,
		Data:    result.SkillData,
		Success: result.Success,
	})

	if msg.WantAudio && result.Success {
		audio, err := h.tts.SynthesizeBase64(ctx, result.Message)
		if err != nil {
			log.Printf("[gateway] tts failed for %s: %v", sessionID, err)
			return
		}
		h.send(sessionID, protocol.AudioOut{
			Type:   protocol.TypeAudioOut,
			Audio:  audio,
			Format: voice.AudioFormat,
		})
	}
}

// handleAudio runs the staged pipeline: stt → transcription → thinking →
// response → tts → audio. The session may disconnect at any suspension
// point; every send degrades to a no-op against a missing session.
func (h *Handler) handleAudio(ctx context.Context, sessionID string, msg protocol.AudioMessage) {
	h.send(sessionID, protocol.Processing{Type: protocol.TypeProcessing, Stage: protocol.StageSTT})

	transcript, err := h.stt.Transcribe(ctx, msg.Audio, msg.Format)
	if err != nil {
		log.Printf("[gateway] stt failed for %s: %v", sessionID, err)
		h.send(sessionID, protocol.ErrorFrame{Type: protocol.TypeError, Message: "Fehler bei der Audioverarbeitung"})
		return
	}
	if transcript.UseClientSide {
		h.send(sessionID, protocol.UseClientSTT{Type: protocol.TypeUseClientSTT, Message: transcript.Message})
		return
	}

	h.send(sessionID, protocol.Transcription{Type: protocol.TypeTranscription, Text: transcript.Text})
	h.send(sessionID, protocol.Processing{Type: protocol.TypeProcessing, Stage: protocol.StageThinking})

	// Re-resolve the session; identity may have changed while transcribing.
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		return
	}
	result := h.brain.Process(ctx, sess.EffectiveUserID(), transcript.Text, skills.Context{Device: sess.Device})

	h.send(sessionID, protocol.Response{
		Type:    protocol.TypeResponse,
		Text:    result.Message,
		Data:    result.SkillData,
		Success: result.Success,
	})

	h.send(sessionID, protocol.Processing{Type: protocol.TypeProcessing, Stage: protocol.StageTTS})
	audio, err := h.tts.SynthesizeBase64(ctx, result.Message)
	if err != nil {
		log.Printf("[gateway] tts failed for %s: %v", sessionID, err)
		h.send(sessionID, protocol.ErrorFrame{Type: protocol.TypeError, Message: "Fehler bei der Audioverarbeitung"})
		return
	}
	h.send(sessionID, protocol.AudioOut{
		Type:   protocol.TypeAudioOut,
		Audio:  audio,
		Format: voice.AudioFormat,
	})
}

func (h *Handler) send(sessionID string, frame any) {
	h.sessions.Send(sessionID, frame)
	if h.metrics != nil {
		if t, ok := frameTypeOf(frame); ok {
			h.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
		}
	}
}

func frameTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.Connected:
		return m.Type, true
	case protocol.AuthSuccess:
		return m.Type, true
	case protocol.Response:
		return m.Type, true
	case protocol.Transcription:
		return m.Type, true
	case protocol.Processing:
		return m.Type, true
	case protocol.AudioOut:
		return m.Type, true
	case protocol.UseClientSTT:
		return m.Type, true
	case protocol.Pong:
		return m.Type, true
	case protocol.StatusReply:
		return m.Type, true
	case protocol.ErrorFrame:
		return m.Type, true
	default:
		return "", false
	}
}

func (h *Handler) countInbound(t protocol.MessageType) {
	if h.metrics != nil {
		h.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
	}
}
