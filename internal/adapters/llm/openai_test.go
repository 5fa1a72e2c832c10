package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Hello there!"}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL+"/v1/", "sk-test", "test-model", 0, nil)
	msgs := []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: "be brief"},
		{Role: entities.RoleUser, Content: "Hi", Timestamp: "2024-01-01T00:00:00Z"},
	}
	resp, err := adapter.Complete(context.Background(), msgs, ports.CompletionOptions{Temperature: 0.5, MaxTokens: 100})

	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if resp.Content != "Hello there!" {
		t.Errorf("unexpected response: %s", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage not decoded: %+v", resp.Usage)
	}
	if got.Model != "test-model" || got.Temperature != 0.5 || got.MaxTokens != 100 {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "Hi" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAI_RateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached. Please try again in 12.5 seconds.","type":"requests"}}`))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "sk-test", "test", 0, nil)
	_, err := adapter.Complete(context.Background(), nil, ports.CompletionOptions{})

	var upstream *entities.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != 429 {
		t.Errorf("unexpected status: %d", upstream.StatusCode)
	}
	if upstream.Message != "Rate limit reached. Please try again in 12.5 seconds." {
		t.Errorf("unexpected message: %s", upstream.Message)
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "sk-test", "test", 0, nil)
	_, err := adapter.Complete(context.Background(), nil, ports.CompletionOptions{})

	var upstream *entities.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != 404 {
		t.Errorf("should return a 404 UpstreamError, got %v", err)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "sk-test", "test", 0, nil)
	_, err := adapter.Complete(context.Background(), nil, ports.CompletionOptions{})

	if err == nil {
		t.Error("should error when no choices are returned")
	}
}

func TestOpenAI_DefaultValues(t *testing.T) {
	adapter := NewOpenAIAdapter("", "", "", 0, nil)
	if adapter.baseURL != "https://api.openai.com/v1" {
		t.Error("should default to the public endpoint")
	}
	if adapter.model != "gpt-4o-mini" {
		t.Error("should default to gpt-4o-mini")
	}
	if adapter.Configured() {
		t.Error("should not be configured without an API key")
	}
}
