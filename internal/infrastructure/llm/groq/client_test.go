package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivgusev/queryrouter/internal/core/ports"
)

func TestCompleteSendsMessagesAndFixedSampling(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  the answer \n"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "llama3-8b-8192")
	got, err := client.Complete(context.Background(), []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: "be brief"},
		{Role: ports.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "the answer" {
		t.Fatalf("Complete() = %q, want trimmed content", got)
	}

	if captured["model"] != "llama3-8b-8192" {
		t.Fatalf("model = %v", captured["model"])
	}
	if captured["temperature"] != 0.1 {
		t.Fatalf("temperature = %v, want 0.1", captured["temperature"])
	}
	msgs, ok := captured["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v", captured["messages"])
	}
}

func TestCompleteReturnsStatusErrorWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "k", "m")
	_, err := client.Complete(context.Background(), []ports.ChatMessage{{Role: ports.RoleUser, Content: "q"}})
	if err == nil {
		t.Fatalf("expected error")
	}

	verdict := classifyGroqError(err)
	if !verdict.Retry {
		t.Fatalf("expected 429 to be retryable, got %+v", verdict)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", "m")
	if _, err := client.Complete(context.Background(), []ports.ChatMessage{{Role: ports.RoleUser, Content: "q"}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
