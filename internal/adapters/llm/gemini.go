package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiAdapter implements ports.LLMService using the Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGeminiAdapter creates a Gemini adapter. An empty apiKey yields an adapter that
// reports itself as not configured, so the assistant can fail with a configuration error.
func NewGeminiAdapter(ctx context.Context, apiKey, model string, log *zap.Logger) (*GeminiAdapter, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &GeminiAdapter{model: model, log: log}
	if apiKey == "" {
		return a, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	a.client = client
	return a, nil
}

// Configured reports whether a client was created.
func (a *GeminiAdapter) Configured() bool {
	return a.client != nil
}

// Complete maps the conversation onto Gemini contents. System messages become the system instruction.
func (a *GeminiAdapter) Complete(ctx context.Context, messages []entities.ChatMessage, opts ports.CompletionOptions) (*entities.Completion, error) {
	if a.client == nil {
		return nil, &entities.ConfigurationError{Message: "Gemini API key is not configured"}
	}

	system, contents := toGeminiContents(messages)

	temp := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := a.client.Models.GenerateContent(ctx, a.model, contents, cfg)
	if err != nil {
		return nil, geminiError(err)
	}

	text := res.Text()
	if text == "" {
		return nil, &entities.UpstreamError{Message: "Gemini returned empty text"}
	}

	var usage *entities.Usage
	if md := res.UsageMetadata; md != nil {
		usage = &entities.Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}
	a.log.Debug("gemini completion", zap.String("model", a.model), zap.Int("contents", len(contents)))
	return &entities.Completion{Content: text, Usage: usage}, nil
}

func toGeminiContents(messages []entities.ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case entities.RoleSystem:
			system = append(system, m.Content)
		case entities.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// geminiError keeps the HTTP status so rate limits classify the same way as other vendors.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Status == "RESOURCE_EXHAUSTED" && !strings.Contains(strings.ToLower(msg), "quota") {
			msg = "rate limit exceeded: " + msg
		}
		return &entities.UpstreamError{StatusCode: apiErr.Code, Message: msg}
	}
	return &entities.UpstreamError{Message: fmt.Sprintf("gemini generate content: %v", err)}
}
