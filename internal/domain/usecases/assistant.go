package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

const DefaultSnapshotTTL = 5 * time.Minute

// Snapshotter builds a user's context snapshot. *ContextAggregator implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string) entities.Snapshot
}

// AssistantOptions tunes the completion request and the snapshot cache.
type AssistantOptions struct {
	Temperature float64
	MaxTokens   int
	SnapshotTTL time.Duration
}

type cachedSnapshot struct {
	snap entities.Snapshot
	at   time.Time
}

// AssistantUseCase answers one user turn against the user's workspace snapshot.
// It implements ports.Assistant.
type AssistantUseCase struct {
	llm       ports.LLMService
	snapshots Snapshotter
	opts      AssistantOptions
	now       func() time.Time
	log       *zap.Logger

	// flights collapses concurrent aggregations for the same user.
	flights singleflight.Group

	mu    sync.Mutex
	cache map[string]cachedSnapshot
}

// NewAssistantUseCase creates an AssistantUseCase with injected dependencies.
func NewAssistantUseCase(llm ports.LLMService, snapshots Snapshotter, opts AssistantOptions, log *zap.Logger) *AssistantUseCase {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = DefaultSnapshotTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantUseCase{
		llm:       llm,
		snapshots: snapshots,
		opts:      opts,
		now:       time.Now,
		log:       log,
		cache:     make(map[string]cachedSnapshot),
	}
}

// Invoke validates the request, resolves the snapshot and calls the LLM.
func (uc *AssistantUseCase) Invoke(ctx context.Context, req entities.AssistantRequest) (*entities.AssistantReply, error) {
	if !uc.llm.Configured() {
		return nil, &entities.ConfigurationError{Message: "LLM API key is not configured"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &entities.ValidationError{Field: "message", Message: "is required"}
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &entities.ValidationError{Field: "userId", Message: "is required"}
	}

	snap := uc.snapshot(ctx, req.UserID, req.ForceRefreshContext)

	messages := make([]entities.ChatMessage, 0, len(req.History)+2)
	messages = append(messages, entities.ChatMessage{
		Role:    entities.RoleSystem,
		Content: BuildSystemPrompt(snap, uc.now()),
	})
	for _, m := range req.History {
		messages = append(messages, entities.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, entities.ChatMessage{Role: entities.RoleUser, Content: req.Message})

	completion, err := uc.llm.Complete(ctx, messages, ports.CompletionOptions{
		Temperature: uc.opts.Temperature,
		MaxTokens:   uc.opts.MaxTokens,
	})
	if err != nil {
		var upstream *entities.UpstreamError
		if errors.As(err, &upstream) {
			return nil, upstream
		}
		return nil, &entities.UpstreamError{Message: fmt.Sprintf("completing chat: %v", err)}
	}

	uc.log.Debug("assistant replied",
		zap.String("user_id", req.UserID),
		zap.Int("history", len(req.History)),
		zap.Bool("forced_refresh", req.ForceRefreshContext))

	return &entities.AssistantReply{
		Message: completion.Content,
		Usage:   completion.Usage,
	}, nil
}

// InvalidateSnapshot drops the cached snapshot for one user.
func (uc *AssistantUseCase) InvalidateSnapshot(userID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.cache, userID)
}

// snapshot returns the cached snapshot while it is fresh. Concurrent misses for
// one user share a single aggregation, which runs detached from any one caller.
func (uc *AssistantUseCase) snapshot(ctx context.Context, userID string, force bool) entities.Snapshot {
	if !force {
		uc.mu.Lock()
		cached, ok := uc.cache[userID]
		uc.mu.Unlock()
		if ok && uc.now().Sub(cached.at) < uc.opts.SnapshotTTL {
			return cached.snap
		}
	}

	ch := uc.flights.DoChan(userID, func() (interface{}, error) {
		started := uc.now()
		snap := uc.snapshots.Snapshot(context.WithoutCancel(ctx), userID)
		uc.store(userID, snap, started)
		return snap, nil
	})
	select {
	case res := <-ch:
		return res.Val.(entities.Snapshot)
	case <-ctx.Done():
		return entities.Snapshot{}
	}
}

// store caches snap and drops every other entry that has outlived the TTL.
func (uc *AssistantUseCase) store(userID string, snap entities.Snapshot, at time.Time) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	now := uc.now()
	for id, c := range uc.cache {
		if now.Sub(c.at) >= uc.opts.SnapshotTTL {
			delete(uc.cache, id)
		}
	}
	uc.cache[userID] = cachedSnapshot{snap: snap, at: at}
}

