package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Inbound client frames.
const (
	TypeAuth    MessageType = "auth"
	TypeMessage MessageType = "message"
	TypeAudio   MessageType = "audio"
	TypePing    MessageType = "ping"
	TypeStatus  MessageType = "status"
)

// Outbound server frames.
const (
	TypeConnected     MessageType = "connected"
	TypeAuthSuccess   MessageType = "auth_success"
	TypeResponse      MessageType = "response"
	TypeTranscription MessageType = "transcription"
	TypeProcessing    MessageType = "processing"
	TypeAudioOut      MessageType = "audio"
	TypeUseClientSTT  MessageType = "use_client_stt"
	TypePong          MessageType = "pong"
	TypeStatusReply   MessageType = "status"
	TypeError         MessageType = "error"
)

// Processing stages emitted during the audio pipeline.
const (
	StageSTT      = "stt"
	StageThinking = "thinking"
	StageTTS      = "tts"
)

// ErrUnknownType marks frames whose type is not in the protocol. Handlers
// log and ignore these rather than erroring.
var ErrUnknownType = errors.New("unknown message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// --- inbound ---

type Auth struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Device string      `json:"device"`
}

type TextMessage struct {
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	WantAudio bool        `json:"wantAudio"`
	Context   struct {
		Location string `json:"location,omitempty"`
	} `json:"context"`
}

type AudioMessage struct {
	Type   MessageType `json:"type"`
	Audio  string      `json:"audio"`
	Format string      `json:"format"`
}

type Ping struct {
	Type MessageType `json:"type"`
}

type StatusRequest struct {
	Type MessageType `json:"type"`
}

// --- outbound ---

type Connected struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId"`
	Message  string      `json:"message"`
}

type AuthSuccess struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Device string      `json:"device"`
}

type Response struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text"`
	Data    any         `json:"data,omitempty"`
	Success bool        `json:"success"`
}

type Transcription struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type Processing struct {
	Type  MessageType `json:"type"`
	Stage string      `json:"stage"`
}

type AudioOut struct {
	Type   MessageType `json:"type"`
	Audio  string      `json:"audio"`
	Format string      `json:"format"`
}

type UseClientSTT struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

type StatusReply struct {
	Type    MessageType `json:"type"`
	Clients int         `json:"clients"`
	Uptime  float64     `json:"uptime"`
}

type ErrorFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ParseClientMessage decodes an inbound frame by its envelope type.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeAuth:
		var msg Auth
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeMessage:
		var msg TextMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid message: missing text")
		}
		return msg, nil
	case TypeAudio:
		var msg AudioMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Audio == "" {
			return nil, errors.New("invalid audio: missing payload")
		}
		if msg.Format == "" {
			msg.Format = "webm"
		}
		return msg, nil
	case TypePing:
		return Ping{Type: TypePing}, nil
	case TypeStatus:
		return StatusRequest{Type: TypeStatus}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
