package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/mgerber/atlas/internal/brain"
	"github.com/mgerber/atlas/internal/config"
	"github.com/mgerber/atlas/internal/gateway"
	"github.com/mgerber/atlas/internal/memory"
	"github.com/mgerber/atlas/internal/observability"
	"github.com/mgerber/atlas/internal/session"
	"github.com/mgerber/atlas/internal/skills"
	"github.com/mgerber/atlas/internal/voice"
)

const (
	serviceName    = "ATLAS"
	serviceVersion = "1.0.0"
)

// Server exposes the REST surface and the websocket endpoint. REST handlers
// share the brain and skill service with the websocket gateway, so both
// entrances observe the same conversation state.
type Server struct {
	cfg       config.Config
	store     *memory.Store
	brain     *brain.Brain
	skills    *skills.Service
	tts       voice.Synthesizer
	sessions  *session.Registry
	gateway   *gateway.Handler
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
	startedAt time.Time
}

func New(cfg config.Config, store *memory.Store, b *brain.Brain, skillSvc *skills.Service, tts voice.Synthesizer, sessions *session.Registry, gw *gateway.Handler, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		brain:     b,
		skills:    skillSvc,
		tts:       tts,
		sessions:  sessions,
		gateway:   gw,
		metrics:   metrics,
		upgrader:  newUpgrader(cfg.AllowAnyOrigin),
		startedAt: time.Now(),
	}

	// Session teardown funnels through one hook so websocket close and
	// heartbeat reclamation update the same instruments.
	sessions.SetCloseHook(func(*session.Session) {
		metrics.ActiveSessions.Set(float64(sessions.Count()))
		metrics.SessionEvents.WithLabelValues("disconnected").Inc()
	})

	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/api/status", s.handleStatus)
	r.Post("/api/message", s.handleMessage)
	r.Post("/api/message/audio", s.handleMessageAudio)

	r.Get("/api/skills/news", s.handleSkillNews)
	r.Get("/api/skills/datetime", s.handleSkillDateTime)
	r.Get("/api/skills/crypto", s.handleSkillCrypto)
	r.Get("/api/skills/weather", s.handleSkillWeather)
	r.Get("/api/skills/system", s.handleSkillSystem)

	r.Post("/api/tts", s.handleTTS)
	r.Get("/api/tts/voices", s.handleVoices)

	r.Delete("/api/conversation/{userId}", s.handleClearConversation)

	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "online",
		"name":    serviceName,
		"version": serviceVersion,
		"uptime":  time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "online",
		"uptime": time.Since(s.startedAt).Seconds(),
		"memory": map[string]any{
			"heapAllocMB":   ms.HeapAlloc / 1024 / 1024,
			"heapSysMB":     ms.HeapSys / 1024 / 1024,
			"numGoroutines": runtime.NumGoroutine(),
		},
		"websocket":     s.sessions.Stats(),
		"conversations": s.store.Stats(),
	})
}

type messageRequest struct {
	UserID  string         `json:"userId"`
	Text    string         `json:"text"`
	Context skills.Context `json:"context"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text ist erforderlich")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	result := s.brain.Process(r.Context(), req.UserID, req.Text, req.Context)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMessageAudio(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text ist erforderlich")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	result := s.brain.Process(r.Context(), req.UserID, req.Text, req.Context)

	// Synthesis failures degrade to a text-only reply, still 200.
	var audio *string
	if result.Success {
		if b64, err := s.tts.SynthesizeBase64(r.Context(), result.Message); err == nil {
			audio = &b64
		}
	}

	respondJSON(w, http.StatusOK, struct {
		brain.Result
		Audio       *string `json:"audio"`
		AudioFormat string  `json:"audioFormat"`
	}{
		Result:      result,
		Audio:       audio,
		AudioFormat: voice.AudioFormat,
	})
}

func (s *Server) handleSkillNews(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.skills.News(r.Context(), r.URL.Query().Get("query")))
}

func (s *Server) handleSkillDateTime(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.skills.DateTime(r.URL.Query().Get("location")))
}

func (s *Server) handleSkillCrypto(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.skills.Crypto(r.Context()))
}

func (s *Server) handleSkillWeather(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		location = s.cfg.DefaultLocation
	}
	respondJSON(w, http.StatusOK, s.skills.Weather(location))
}

func (s *Server) handleSkillSystem(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.skills.System())
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text ist erforderlich")
		return
	}
	if v := strings.TrimSpace(req.Voice); v != "" {
		s.tts.SetVoice(v)
	}

	audio, err := s.tts.SynthesizeBase64(r.Context(), req.Text)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"audio":   audio,
		"format":  voice.AudioFormat,
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.tts.Voices())
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	s.brain.ClearHistory(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Konversation gelöscht",
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
