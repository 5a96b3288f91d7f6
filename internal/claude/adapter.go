package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one ordered role/text turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized chat-completion request.
type Request struct {
	System   string
	Messages []Message
}

// Usage reports token counts for one completion.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Response is the generated completion.
type Response struct {
	Text  string
	Usage Usage
}

// Adapter bridges the orchestrator with a chat-completion backend.
type Adapter interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode      string
	APIKey    string
	Model     string
	MaxTokens int
}

func New(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewAPIAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "api":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("anthropic API key is required for api mode")
		}
		return NewAPIAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported adapter mode %q", cfg.Mode)
	}
}
