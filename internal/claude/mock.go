package claude

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no API key is set.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if last == "" {
		last = "Ich höre."
	}

	return Response{
		Text:  fmt.Sprintf("Verstanden: %s", last),
		Usage: Usage{InputTokens: len(req.Messages), OutputTokens: 1},
	}, nil
}
