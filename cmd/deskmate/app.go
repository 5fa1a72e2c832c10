package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/adapters/blobstore"
	"github.com/0xcro3dile/deskmate/internal/adapters/datastore"
	"github.com/0xcro3dile/deskmate/internal/adapters/fetcher"
	"github.com/0xcro3dile/deskmate/internal/adapters/kvstore"
	"github.com/0xcro3dile/deskmate/internal/adapters/llm"
	"github.com/0xcro3dile/deskmate/internal/config"
	"github.com/0xcro3dile/deskmate/internal/domain/chat"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
	"github.com/0xcro3dile/deskmate/internal/domain/usecases"
)

// app holds the wired components shared by every command.
type app struct {
	assistant *usecases.AssistantUseCase
	history   *chat.HistoryStore
	registry  *chat.Registry
	closers   []func() error
	log       *zap.Logger
}

// buildApp wires adapters into use cases. The LLM credential is not required here;
// a missing key surfaces as a configuration error on the first request.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	model, err := newLLM(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	repo, err := datastore.NewSQLiteRepository(ctx, cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, repo.Close)

	blobs := blobstore.NewPublicBucket(cfg.Storage.PublicBaseURL, cfg.Storage.Bucket)
	content := fetcher.NewMultiFetcher(fetcher.NewHTTPFetcher(cfg.GetFetchTimeout()))
	extractor := usecases.NewAttachmentExtractor(content, cfg.Storage.MaxAttachmentBytes, cfg.Storage.MaxTextChars, log.Named("extract"))
	aggregator := usecases.NewContextAggregator(repo, blobs, extractor, cfg.Assistant.ProjectConcurrency, log.Named("aggregate"))

	a.assistant = usecases.NewAssistantUseCase(model, aggregator, usecases.AssistantOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		SnapshotTTL: cfg.GetSnapshotTTL(),
	}, log.Named("assistant"))

	kv, err := newKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := kv.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	a.history = chat.NewHistoryStore(kv, cfg.History.Limit)

	a.registry = chat.NewRegistry(a.assistant, a.history, chat.Options{
		Debounce:            cfg.GetDebounce(),
		FileRefreshInterval: cfg.GetFileRefreshInterval(),
		MaxRetries:          cfg.Session.MaxRetries,
	}, nil, log.Named("session"))

	log.Debug("app wired",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("history_backend", cfg.History.Backend),
		zap.String("db_driver", cfg.Database.Driver),
	)
	ok = true
	return a, nil
}

func newLLM(ctx context.Context, cfg *config.Config, log *zap.Logger) (ports.LLMService, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		return llm.NewOpenAIAdapter(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.GetLLMTimeout(), log.Named("openai")), nil
	case "gemini":
		return llm.NewGeminiAdapter(ctx, cfg.LLM.APIKey, cfg.LLM.Model, log.Named("gemini"))
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

func newKV(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, error) {
	h := cfg.History
	switch h.Backend {
	case "memory":
		return kvstore.NewInMemoryStore(), nil
	case "", "sqlite":
		return kvstore.NewSQLiteStore(ctx, h.Driver, h.Path)
	case "firestore":
		return kvstore.NewFirestoreStore(ctx, h.FirestoreProject, h.Collection)
	default:
		return nil, fmt.Errorf("unknown history backend %q", h.Backend)
	}
}

// Close disposes sessions and releases stores in reverse order.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
