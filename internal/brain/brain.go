package brain

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mgerber/atlas/internal/claude"
	"github.com/mgerber/atlas/internal/memory"
	"github.com/mgerber/atlas/internal/observability"
	"github.com/mgerber/atlas/internal/skills"
)

// apologyText is the fixed user-facing failure reply. Provider error detail
// goes into Result.Err for logging, never to the end user.
const apologyText = "Entschuldigung, es gab einen Fehler bei der Verarbeitung. Bitte versuche es erneut."

// Result is the outcome of one conversational turn.
type Result struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	SkillData any           `json:"skillData,omitempty"`
	Usage     *claude.Usage `json:"usage,omitempty"`
	Err       string        `json:"error,omitempty"`
}

// Brain combines conversation history, skill output and the fixed persona
// into a single completion request and persists the exchange.
type Brain struct {
	adapter claude.Adapter
	store   *memory.Store
	archive memory.Archive
	skills  *skills.Service
	metrics *observability.Metrics
	persona string
}

func New(adapter claude.Adapter, store *memory.Store, archive memory.Archive, skillSvc *skills.Service, metrics *observability.Metrics) *Brain {
	if archive == nil {
		archive = memory.NopArchive{}
	}
	return &Brain{
		adapter: adapter,
		store:   store,
		archive: archive,
		skills:  skillSvc,
		metrics: metrics,
		persona: personaPrompt,
	}
}

// Process runs one turn for a user. Provider failures are converted into an
// apologetic result; the method never returns an error.
func (b *Brain) Process(ctx context.Context, userID, message string, sctx skills.Context) Result {
	started := time.Now()

	history := b.store.History(userID)

	kind, skillData := b.skills.Dispatch(ctx, message, sctx)

	// The skill payload rides along in the outbound prompt only; history
	// keeps the user's original wording so skill data cannot leak into
	// future context.
	enriched := message
	if kind != skills.KindNone && skillData != nil {
		if block, err := json.MarshalIndent(skillData, "", "  "); err == nil {
			enriched = message + "\n\n[SKILL-DATEN]:\n" + string(block)
		}
	}

	messages := make([]claude.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, claude.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, claude.Message{Role: "user", Content: enriched})

	res, err := b.adapter.Complete(ctx, claude.Request{
		System:   b.persona,
		Messages: messages,
	})
	if err != nil {
		log.Printf("[brain] completion failed for user %s: %v", userID, err)
		if b.metrics != nil {
			b.metrics.ProviderErrors.WithLabelValues("anthropic").Inc()
		}
		return Result{
			Success:   false,
			Message:   apologyText,
			SkillData: skillData,
			Err:       err.Error(),
		}
	}

	b.store.Append(userID, memory.RoleUser, message)
	b.store.Append(userID, memory.RoleAssistant, res.Text)
	b.archiveTurns(userID, message, res.Text)

	if b.metrics != nil {
		b.metrics.ObserveTurnLatency(time.Since(started))
	}

	usage := res.Usage
	return Result{
		Success:   true,
		Message:   res.Text,
		SkillData: skillData,
		Usage:     &usage,
	}
}

// ClearHistory drops the stored context for a user.
func (b *Brain) ClearHistory(userID string) {
	b.store.Clear(userID)
}

// archiveTurns writes to the durable transcript log without blocking the
// turn; the in-memory store already holds the authoritative context.
func (b *Brain) archiveTurns(userID, userText, assistantText string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.archive.SaveTurn(ctx, userID, memory.RoleUser, userText); err != nil {
			log.Printf("[brain] archive user turn: %v", err)
			return
		}
		if err := b.archive.SaveTurn(ctx, userID, memory.RoleAssistant, assistantText); err != nil {
			log.Printf("[brain] archive assistant turn: %v", err)
		}
	}()
}
