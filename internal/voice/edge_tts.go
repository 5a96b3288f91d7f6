package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EdgeTTS shells out to the edge-tts CLI for speech synthesis. Audio is
// written to a temp file, read back and deleted; arguments are passed as
// separate argv entries so no shell escaping is involved.
type EdgeTTS struct {
	mu      sync.RWMutex
	voice   string
	rate    string
	pitch   string
	tempDir string
	cliPath string
}

type EdgeTTSConfig struct {
	Voice   string
	Rate    string
	Pitch   string
	TempDir string
	CLIPath string
}

func NewEdgeTTS(cfg EdgeTTSConfig) (*EdgeTTS, error) {
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = "de-DE-ConradNeural"
	}
	if strings.TrimSpace(cfg.Rate) == "" {
		cfg.Rate = "+0%"
	}
	if strings.TrimSpace(cfg.Pitch) == "" {
		cfg.Pitch = "+0Hz"
	}
	if strings.TrimSpace(cfg.TempDir) == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "atlas-tts")
	}
	if strings.TrimSpace(cfg.CLIPath) == "" {
		cfg.CLIPath = "edge-tts"
	}
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tts temp dir: %w", err)
	}

	log.Printf("[tts] edge-tts ready with voice %s", cfg.Voice)
	return &EdgeTTS{
		voice:   cfg.Voice,
		rate:    cfg.Rate,
		pitch:   cfg.Pitch,
		tempDir: cfg.TempDir,
		cliPath: cfg.CLIPath,
	}, nil
}

func (t *EdgeTTS) SynthesizeBase64(ctx context.Context, text string) (string, error) {
	t.mu.RLock()
	voice, rate, pitch := t.voice, t.rate, t.pitch
	t.mu.RUnlock()

	outputPath := filepath.Join(t.tempDir, uuid.NewString()+".mp3")
	defer os.Remove(outputPath)

	// edge-tts reads newlines as pauses; flatten to keep timing consistent.
	flat := strings.ReplaceAll(text, "\n", " ")

	cmd := exec.CommandContext(ctx, t.cliPath,
		"--voice", voice,
		"--rate="+rate,
		"--pitch="+pitch,
		"--text", flat,
		"--write-media", outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(string(out)))
	}

	audio, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("read synthesized audio: %w", err)
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

func (t *EdgeTTS) SetVoice(voice string) {
	if strings.TrimSpace(voice) == "" {
		return
	}
	t.mu.Lock()
	t.voice = voice
	t.mu.Unlock()
	log.Printf("[tts] voice changed to %s", voice)
}

func (t *EdgeTTS) Voices() []Voice {
	return []Voice{
		{ID: "de-DE-ConradNeural", Name: "Conrad", Gender: "Male", Description: "Professionell, ATLAS Standard"},
		{ID: "de-DE-KatjaNeural", Name: "Katja", Gender: "Female", Description: "Freundlich"},
		{ID: "de-DE-KillianNeural", Name: "Killian", Gender: "Male", Description: "Energisch"},
		{ID: "de-AT-JonasNeural", Name: "Jonas", Gender: "Male", Description: "Österreichisch"},
		{ID: "de-CH-LeniNeural", Name: "Leni", Gender: "Female", Description: "Schweizerdeutsch"},
	}
}

// StartCleanup removes leftover audio files older than an hour. Files are
// normally deleted right after synthesis; this catches crashes mid-request.
func (t *EdgeTTS) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.cleanupStale(time.Hour)
			}
		}
	}()
}

func (t *EdgeTTS) cleanupStale(maxAge time.Duration) {
	entries, err := os.ReadDir(t.tempDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(t.tempDir, entry.Name()))
		}
	}
}
