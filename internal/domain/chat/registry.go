package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// Registry keeps one mounted Controller per user.
type Registry struct {
	assistant ports.Assistant
	history   *HistoryStore
	opts      Options
	schedule  Scheduler
	now       func() time.Time
	log       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	ctrl     *Controller
	lastUsed time.Time
}

// NewRegistry creates a Registry whose sessions share the given collaborators.
func NewRegistry(assistant ports.Assistant, history *HistoryStore, opts Options, schedule Scheduler, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		assistant: assistant,
		history:   history,
		opts:      opts,
		schedule:  schedule,
		now:       time.Now,
		log:       log,
		sessions:  make(map[string]*session),
	}
}

// Get returns the user's Controller, creating and mounting it on first use.
// Mounting reads stored history and runs without holding the registry lock.
func (r *Registry) Get(ctx context.Context, userID string) (*Controller, error) {
	if c, ok := r.lookup(userID); ok {
		return c, nil
	}

	c := NewController(userID, r.assistant, r.history, r.opts, r.schedule, r.log)
	if err := c.Mount(ctx); err != nil {
		c.Dispose()
		return nil, err
	}

	r.mu.Lock()
	if s, ok := r.sessions[userID]; ok {
		// Another caller mounted the same user first.
		s.lastUsed = r.now()
		r.mu.Unlock()
		c.Dispose()
		return s.ctrl, nil
	}
	r.sessions[userID] = &session{ctrl: c, lastUsed: r.now()}
	r.mu.Unlock()

	r.log.Debug("session mounted", zap.String("user_id", userID))
	return c, nil
}

func (r *Registry) lookup(userID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	s.lastUsed = r.now()
	return s.ctrl, true
}

// Prune disposes sessions unused for longer than maxIdle that have nothing in flight.
// Their history stays in the store and is hydrated again on the next Get.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	var stale []*Controller
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.lastUsed.After(cutoff) || !s.ctrl.Idle() {
			continue
		}
		delete(r.sessions, id)
		stale = append(stale, s.ctrl)
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Dispose()
	}
	if len(stale) > 0 {
		r.log.Debug("idle sessions pruned", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunPruner calls Prune every interval until ctx is cancelled.
func (r *Registry) RunPruner(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Prune(maxIdle)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close disposes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Dispose()
	}
	r.log.Debug("sessions disposed", zap.Int("count", len(sessions)))
}
