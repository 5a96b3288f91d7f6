package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIAdapterComplete(t *testing.T) {
	var gotReq apiRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "Guten Tag."}},
			"usage":   map[string]int{"input_tokens": 12, "output_tokens": 4},
		})
	}))
	defer ts.Close()

	a := NewAPIAdapter(Config{APIKey: "test-key", Model: "claude-sonnet-4-20250514", MaxTokens: 256})
	a.baseURL = ts.URL

	res, err := a.Complete(context.Background(), Request{
		System:   "Du bist ATLAS.",
		Messages: []Message{{Role: "user", Content: "hallo"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.Text != "Guten Tag." {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Usage.InputTokens != 12 || res.Usage.OutputTokens != 4 {
		t.Fatalf("Usage = %+v", res.Usage)
	}
	if gotReq.System != "Du bist ATLAS." || gotReq.MaxTokens != 256 {
		t.Fatalf("unexpected outbound request: %+v", gotReq)
	}
}

func TestAPIAdapterSurfacesHTTPErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"rate_limit_error"}}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	a := NewAPIAdapter(Config{APIKey: "test-key"})
	a.baseURL = ts.URL

	_, err := a.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatalf("Complete() should fail on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v, want status in message", err)
	}
}

func TestFactoryModes(t *testing.T) {
	if _, err := New(Config{Mode: "api"}); err == nil {
		t.Fatalf("api mode without key should fail")
	}

	a, err := New(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto without key should yield mock, got %T", a)
	}

	a, err = New(Config{Mode: "auto", APIKey: "k"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*APIAdapter); !ok {
		t.Fatalf("auto with key should yield api adapter, got %T", a)
	}

	if _, err := New(Config{Mode: "grpc"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestMockAdapterEchoesLastUserMessage(t *testing.T) {
	a := NewMockAdapter()
	res, err := a.Complete(context.Background(), Request{Messages: []Message{
		{Role: "user", Content: "erste"},
		{Role: "assistant", Content: "ok"},
		{Role: "user", Content: "zweite"},
	}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(res.Text, "zweite") {
		t.Fatalf("Text = %q, want echo of last user message", res.Text)
	}
}
