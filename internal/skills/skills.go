package skills

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mgerber/atlas/internal/observability"
)

// Kind identifies the closed set of skill categories.
type Kind string

const (
	KindNews     Kind = "news"
	KindDateTime Kind = "datetime"
	KindWeather  Kind = "weather"
	KindCrypto   Kind = "crypto"
	KindSystem   Kind = "system"
	KindNone     Kind = "none"
)

// Names lists the invocable skills, in dispatch order.
var Names = []string{"news", "datetime", "weather", "crypto", "system"}

// Context carries per-request hints into skill extraction.
type Context struct {
	Location string `json:"location,omitempty"`
	Device   string `json:"device,omitempty"`
}

// Config controls external fetch behavior.
type Config struct {
	DefaultLocation string
	NewsCacheTTL    time.Duration
	Timeout         time.Duration
}

// Service holds the ordered intent table and the external-fetch state shared
// by the individual skills.
type Service struct {
	client          *http.Client
	defaultLocation string
	startedAt       time.Time
	metrics         *observability.Metrics

	newsCache newsCache

	intents []intent
}

type intent struct {
	kind     Kind
	keywords []string
	invoke   func(ctx context.Context, lower, raw string, sctx Context) any
}

func NewService(cfg Config, metrics *observability.Metrics) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.NewsCacheTTL <= 0 {
		cfg.NewsCacheTTL = 5 * time.Minute
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "Berlin"
	}

	s := &Service{
		client:          &http.Client{Timeout: cfg.Timeout},
		defaultLocation: cfg.DefaultLocation,
		startedAt:       time.Now(),
		metrics:         metrics,
		newsCache:       newsCache{ttl: cfg.NewsCacheTTL},
	}

	// First matching category wins; at most one skill runs per message.
	s.intents = []intent{
		{
			kind:     KindNews,
			keywords: []string{"nachrichten", "news", "neuigkeiten", "aktuell", "schlagzeilen"},
			invoke: func(ctx context.Context, lower, _ string, _ Context) any {
				return s.News(ctx, extractQuery(lower, []string{"über", "zu", "von", "aus"}))
			},
		},
		{
			kind:     KindDateTime,
			keywords: []string{"zeit", "uhrzeit", "wie spät", "datum", "welcher tag"},
			invoke: func(_ context.Context, _, raw string, _ Context) any {
				return s.DateTime(extractLocation(raw))
			},
		},
		{
			kind:     KindWeather,
			keywords: []string{"wetter", "temperatur", "regen", "sonne", "grad"},
			invoke: func(_ context.Context, _, raw string, sctx Context) any {
				location := extractLocation(raw)
				if location == "" {
					location = sctx.Location
				}
				if location == "" {
					location = s.defaultLocation
				}
				return s.Weather(location)
			},
		},
		{
			kind:     KindCrypto,
			keywords: []string{"bitcoin", "btc", "ethereum", "eth", "crypto", "krypto"},
			invoke: func(ctx context.Context, _, _ string, _ Context) any {
				return s.Crypto(ctx)
			},
		},
		{
			kind:     KindSystem,
			keywords: []string{"status", "system", "diagnose", "health"},
			invoke: func(_ context.Context, _, _ string, _ Context) any {
				return s.System()
			},
		},
	}

	return s
}

// Dispatch routes a message to at most one skill. The returned payload is nil
// when no category matched (Kind is KindNone). Provider failures surface
// inside the payload, never as an error.
func (s *Service) Dispatch(ctx context.Context, message string, sctx Context) (Kind, any) {
	lower := strings.ToLower(message)
	for _, in := range s.intents {
		if !matchesAny(lower, in.keywords) {
			continue
		}
		log.Printf("[skills] dispatch %s", in.kind)
		payload := in.invoke(ctx, lower, message, sctx)
		if s.metrics != nil {
			s.metrics.SkillInvocations.WithLabelValues(string(in.kind)).Inc()
		}
		return in.kind, payload
	}
	return KindNone, nil
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractQuery pulls a topic phrase following one of the connector words,
// up to a trailing question mark or end of text.
func extractQuery(text string, prepositions []string) string {
	for _, prep := range prepositions {
		re, err := regexp.Compile(regexp.QuoteMeta(prep) + `\s+(.+?)(?:\s*\?|$)`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:in|für|von)\s+([A-Za-zÄÖÜäöüß]+)`),
	regexp.MustCompile(`(?i)([A-Za-zÄÖÜäöüß]+)\s+wetter`),
}

// extractLocation finds a location name following a preposition (or preceding
// "wetter") in the raw, case-preserved text.
func extractLocation(text string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
