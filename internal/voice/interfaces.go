package voice

import "context"

// Voice describes one entry of the static voice catalog.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// Synthesizer renders text to base64-encoded audio.
type Synthesizer interface {
	SynthesizeBase64(ctx context.Context, text string) (string, error)
	SetVoice(voice string)
	Voices() []Voice
}

// Transcript is the outcome of a transcription attempt. UseClientSide marks
// the "no server-side provider configured" sentinel; it is not an error and
// callers should instruct the client to fall back to browser recognition.
type Transcript struct {
	Text          string
	UseClientSide bool
	Message       string
}

// Transcriber converts base64-encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64, format string) (Transcript, error)
}

// AudioFormat is the container produced by the synthesizer.
const AudioFormat = "mp3"
