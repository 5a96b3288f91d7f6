package voice

import (
	"context"
	"encoding/base64"
)

// MockSynthesizer returns canned audio for tests and keyless dev setups.
type MockSynthesizer struct {
	CurrentVoice string
	Err          error
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{CurrentVoice: "mock"}
}

func (m *MockSynthesizer) SynthesizeBase64(_ context.Context, text string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return base64.StdEncoding.EncodeToString([]byte("mock-audio:" + text)), nil
}

func (m *MockSynthesizer) SetVoice(voice string) { m.CurrentVoice = voice }

func (m *MockSynthesizer) Voices() []Voice {
	return []Voice{{ID: "mock", Name: "Mock", Gender: "None", Description: "Test voice"}}
}

// MockTranscriber returns a fixed transcript, fallback sentinel or error.
type MockTranscriber struct {
	Result Transcript
	Err    error
}

func (m *MockTranscriber) Transcribe(context.Context, string, string) (Transcript, error) {
	if m.Err != nil {
		return Transcript{}, m.Err
	}
	return m.Result, nil
}
