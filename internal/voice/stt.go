package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const sttLanguage = "de"

// fallbackTranscript is returned when no provider key is configured. The
// client is expected to run browser speech recognition instead.
func fallbackTranscript() Transcript {
	return Transcript{
		UseClientSide: true,
		Message:       "Kein STT API Key konfiguriert. Verwende Browser Speech Recognition.",
	}
}

// NewTranscriber selects the configured speech-to-text provider.
func NewTranscriber(provider, openAIKey, deepgramKey string) (Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "whisper":
		return &WhisperTranscriber{apiKey: openAIKey, client: sttClient()}, nil
	case "deepgram":
		return &DeepgramTranscriber{apiKey: deepgramKey, client: sttClient()}, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", provider)
	}
}

func sttClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// WhisperTranscriber calls the OpenAI Whisper transcription API.
type WhisperTranscriber struct {
	apiKey string
	client *http.Client
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioBase64, format string) (Transcript, error) {
	if strings.TrimSpace(w.apiKey) == "" {
		log.Printf("[stt] no OpenAI key, signalling client-side fallback")
		return fallbackTranscript(), nil
	}

	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return Transcript{}, fmt.Errorf("decode audio: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "audio."+format)
	if err != nil {
		return Transcript{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, err
	}
	_ = form.WriteField("model", "whisper-1")
	_ = form.WriteField("language", sttLanguage)
	if err := form.Close(); err != nil {
		return Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openai.com/v1/audio/transcriptions", &body)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := w.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Transcript{}, fmt.Errorf("whisper status %d: %s", res.StatusCode, string(detail))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Transcript{}, fmt.Errorf("decode whisper response: %w", err)
	}
	return Transcript{Text: parsed.Text}, nil
}

// DeepgramTranscriber calls the Deepgram prerecorded transcription API.
type DeepgramTranscriber struct {
	apiKey string
	client *http.Client
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audioBase64, format string) (Transcript, error) {
	if strings.TrimSpace(d.apiKey) == "" {
		log.Printf("[stt] no Deepgram key, signalling client-side fallback")
		return fallbackTranscript(), nil
	}

	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return Transcript{}, fmt.Errorf("decode audio: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.deepgram.com/v1/listen?language="+sttLanguage+"&model=nova-2",
		bytes.NewReader(audio))
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/"+format)

	res, err := d.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("deepgram request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Transcript{}, fmt.Errorf("deepgram status %d: %s", res.StatusCode, string(detail))
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Transcript{}, fmt.Errorf("decode deepgram response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return Transcript{}, fmt.Errorf("deepgram response contained no transcript")
	}
	return Transcript{Text: parsed.Results.Channels[0].Alternatives[0].Transcript}, nil
}
