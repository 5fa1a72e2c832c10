package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

func TestGemini_NotConfiguredWithoutKey(t *testing.T) {
	adapter, err := NewGeminiAdapter(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.Configured() {
		t.Error("should not be configured without an API key")
	}
	if adapter.model != "gemini-2.5-flash" {
		t.Errorf("unexpected default model: %s", adapter.model)
	}

	_, err = adapter.Complete(context.Background(), nil, ports.CompletionOptions{})
	var cerr *entities.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestGemini_ContentMapping(t *testing.T) {
	system, contents := toGeminiContents([]entities.ChatMessage{
		{Role: entities.RoleSystem, Content: "rules"},
		{Role: entities.RoleUser, Content: "hi"},
		{Role: entities.RoleAssistant, Content: "hello"},
		{Role: entities.RoleUser, Content: "what is due?"},
	})

	if system != "rules" {
		t.Errorf("unexpected system instruction: %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("assistant should map to model role, got %s", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "what is due?" {
		t.Errorf("unexpected last content: %+v", contents[2].Parts[0])
	}
}

func TestGemini_ErrorMapping(t *testing.T) {
	err := geminiError(fmt.Errorf("call: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Resource has been exhausted"}))

	var upstream *entities.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != 429 {
		t.Errorf("unexpected status: %d", upstream.StatusCode)
	}
	if upstream.Message != "rate limit exceeded: Resource has been exhausted" {
		t.Errorf("unexpected message: %s", upstream.Message)
	}

	quota := geminiError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for metric"})
	if !errors.As(quota, &upstream) || upstream.Message != "Quota exceeded for metric" {
		t.Errorf("quota message should pass through, got %v", quota)
	}
}
