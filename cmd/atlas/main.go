package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mgerber/atlas/internal/brain"
	"github.com/mgerber/atlas/internal/claude"
	"github.com/mgerber/atlas/internal/config"
	"github.com/mgerber/atlas/internal/gateway"
	"github.com/mgerber/atlas/internal/httpapi"
	"github.com/mgerber/atlas/internal/memory"
	"github.com/mgerber/atlas/internal/observability"
	"github.com/mgerber/atlas/internal/session"
	"github.com/mgerber/atlas/internal/skills"
	"github.com/mgerber/atlas/internal/voice"
)

func main() {
	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	store := memory.NewStore(cfg.HistoryLimit, cfg.ContextTimeout)
	store.StartJanitor(runCtx, cfg.SweepInterval)

	archive, err := memory.NewArchive(runCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript archive init failed: %v", err)
	}
	defer archive.Close()

	adapter, err := claude.New(claude.Config{
		Mode:      cfg.AdapterMode,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		log.Fatalf("claude adapter init failed: %v", err)
	}

	skillSvc := skills.NewService(skills.Config{
		DefaultLocation: cfg.DefaultLocation,
		NewsCacheTTL:    cfg.NewsCacheTTL,
		Timeout:         cfg.SkillTimeout,
	}, metrics)

	tts, err := voice.NewEdgeTTS(voice.EdgeTTSConfig{
		Voice:   cfg.TTSVoice,
		Rate:    cfg.TTSRate,
		Pitch:   cfg.TTSPitch,
		TempDir: cfg.TTSTempDir,
	})
	if err != nil {
		log.Fatalf("tts init failed: %v", err)
	}
	tts.StartCleanup(runCtx, cfg.SweepInterval)

	stt, err := voice.NewTranscriber(cfg.STTProvider, cfg.OpenAIAPIKey, cfg.DeepgramKey)
	if err != nil {
		log.Fatalf("stt init failed: %v", err)
	}

	sessions := session.NewRegistry()
	sessions.StartHeartbeat(runCtx, cfg.HeartbeatInterval)

	b := brain.New(adapter, store, archive, skillSvc, metrics)
	gw := gateway.New(sessions, b, tts, stt, metrics)

	api := httpapi.New(cfg, store, b, skillSvc, tts, sessions, gw, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("ATLAS listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
