package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resume-pipeline/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func newTestServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var seen map[string]any
	srv := newTestServer(t, http.StatusOK, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":" {\"a\":1} "}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`, &seen)
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := client.Complete(context.Background(), "extract this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"a":1}` {
		t.Fatalf("unexpected content %q", got)
	}
	format, _ := seen["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", seen["response_format"])
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`, nil)
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := client.Complete(context.Background(), "p")
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, nil)
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := client.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
