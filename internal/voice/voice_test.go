package voice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEdgeTTSDefaultsAndVoiceSwitch(t *testing.T) {
	tts, err := NewEdgeTTS(EdgeTTSConfig{TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEdgeTTS() error = %v", err)
	}
	if tts.voice != "de-DE-ConradNeural" {
		t.Fatalf("default voice = %q", tts.voice)
	}

	tts.SetVoice("de-DE-KatjaNeural")
	if tts.voice != "de-DE-KatjaNeural" {
		t.Fatalf("voice after SetVoice = %q", tts.voice)
	}
	tts.SetVoice("  ")
	if tts.voice != "de-DE-KatjaNeural" {
		t.Fatalf("blank SetVoice must be ignored, got %q", tts.voice)
	}

	voices := tts.Voices()
	if len(voices) != 5 {
		t.Fatalf("catalog size = %d, want 5", len(voices))
	}
	if voices[0].ID != "de-DE-ConradNeural" {
		t.Fatalf("first catalog entry = %q", voices[0].ID)
	}
}

func TestEdgeTTSCleanupStale(t *testing.T) {
	dir := t.TempDir()
	tts, err := NewEdgeTTS(EdgeTTSConfig{TempDir: dir})
	if err != nil {
		t.Fatalf("NewEdgeTTS() error = %v", err)
	}

	stale := filepath.Join(dir, "stale.mp3")
	fresh := filepath.Join(dir, "fresh.mp3")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	tts.cleanupStale(time.Hour)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file survived cleanup")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}

func TestTranscriberFallbackWithoutKey(t *testing.T) {
	for _, provider := range []string{"whisper", "deepgram"} {
		tr, err := NewTranscriber(provider, "", "")
		if err != nil {
			t.Fatalf("NewTranscriber(%s) error = %v", provider, err)
		}
		got, err := tr.Transcribe(context.Background(), "aGFsbG8=", "webm")
		if err != nil {
			t.Fatalf("%s Transcribe() error = %v", provider, err)
		}
		if !got.UseClientSide {
			t.Fatalf("%s without key must signal client-side fallback", provider)
		}
		if got.Message == "" {
			t.Fatalf("%s fallback is missing its client message", provider)
		}
	}

	if _, err := NewTranscriber("google", "", ""); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}
