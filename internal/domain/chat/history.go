// Package chat holds the per-user assistant session: conversation state, send scheduling,
// error classification and persisted history.
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// DefaultHistoryLimit is the number of most recent messages kept in persisted history.
const DefaultHistoryLimit = 50

const historyKeyPrefix = "chat_history_"

// HistoryKey returns the store key holding a user's conversation.
func HistoryKey(userID string) string {
	return historyKeyPrefix + userID
}

// HistoryStore is a bounded per-user conversation log on top of a key-value store.
// The cap is enforced on write; Load returns whatever is stored.
type HistoryStore struct {
	kv    ports.KeyValueStore
	limit int
}

// NewHistoryStore creates a HistoryStore. A non-positive limit uses DefaultHistoryLimit.
func NewHistoryStore(kv ports.KeyValueStore, limit int) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryStore{kv: kv, limit: limit}
}

// Load returns the stored messages, or nil when the user has none.
func (h *HistoryStore) Load(ctx context.Context, userID string) ([]entities.ChatMessage, error) {
	raw, found, err := h.kv.Get(ctx, HistoryKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if !found || raw == "" {
		return nil, nil
	}

	var messages []entities.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages, nil
}

// Save writes the most recent messages, at most limit of them.
func (h *HistoryStore) Save(ctx context.Context, userID string, messages []entities.ChatMessage) error {
	if len(messages) > h.limit {
		messages = messages[len(messages)-h.limit:]
	}
	if messages == nil {
		messages = []entities.ChatMessage{}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := h.kv.Set(ctx, HistoryKey(userID), string(data)); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Remove deletes the user's persisted conversation.
func (h *HistoryStore) Remove(ctx context.Context, userID string) error {
	if err := h.kv.Remove(ctx, HistoryKey(userID)); err != nil {
		return fmt.Errorf("removing history: %w", err)
	}
	return nil
}
