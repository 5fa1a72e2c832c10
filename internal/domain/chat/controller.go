package chat

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

const (
	DefaultDebounce            = 300 * time.Millisecond
	DefaultFileRefreshInterval = 30 * time.Second
	DefaultMaxRetries          = 2
	DefaultTypingMin           = 1500 * time.Millisecond
	DefaultTypingMax           = 2500 * time.Millisecond

	// ProvisionalMessage is shown while a file is being read for a content request.
	ProvisionalMessage = "Reading the file… this may take a moment."
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. time.AfterFunc satisfies it through DefaultScheduler.
type Scheduler func(d time.Duration, f func()) Timer

// DefaultScheduler schedules with time.AfterFunc.
func DefaultScheduler(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options tunes a Controller. Zero values use the defaults above.
type Options struct {
	Debounce            time.Duration
	FileRefreshInterval time.Duration
	MaxRetries          int
	TypingMin           time.Duration
	TypingMax           time.Duration
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.FileRefreshInterval <= 0 {
		o.FileRefreshInterval = DefaultFileRefreshInterval
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.TypingMin <= 0 {
		o.TypingMin = DefaultTypingMin
	}
	if o.TypingMax < o.TypingMin {
		o.TypingMax = o.TypingMin + (DefaultTypingMax - DefaultTypingMin)
	}
	return o
}

// Phase is the send state machine position.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseSending      Phase = "sending"
	PhaseWaitingRetry Phase = "waitingRetry"
)

// State is a point-in-time copy of a session.
type State struct {
	UserID     string                 `json:"userId"`
	Messages   []entities.ChatMessage `json:"messages"`
	Input      string                 `json:"input"`
	Open       bool                   `json:"open"`
	IsSending  bool                   `json:"isSending"`
	IsTyping   bool                   `json:"isTyping"`
	RetryCount int                    `json:"retryCount"`
	Phase      Phase                  `json:"phase"`
}

// KeyEvent is a keyboard event delivered to the chat panel.
type KeyEvent struct {
	Key   string
	Shift bool
}

// turn is one outbound request, reused by scheduled retries.
// placeholder is the index of the assistant message the turn owns (the provisional
// message or a retry notice), or -1. The turn's outcome replaces it.
type turn struct {
	generation  uint64
	text        string
	history     []entities.ChatMessage
	force       bool
	placeholder int
}

// write is a history snapshot taken under the lock and saved after it is released.
// A nil messages slice removes the stored entry.
type write struct {
	seq      uint64
	messages []entities.ChatMessage
}

// Controller owns one user's conversation. All methods are safe for concurrent use.
type Controller struct {
	userID    string
	assistant ports.Assistant
	history   *HistoryStore
	opts      Options
	schedule  Scheduler
	now       func() time.Time
	jitter    func() float64
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events Emitter[State]

	mu            sync.Mutex
	messages      []entities.ChatMessage
	input         string
	open          bool
	sending       bool
	typing        bool
	retryCount    int
	debounceTimer Timer
	retryTimer    Timer
	typingTimer   Timer
	lastForcedAt  time.Time
	generation    uint64
	disposed      bool
	writeSeq      uint64

	// persistMu orders history writes; savedSeq is the newest write applied.
	persistMu sync.Mutex
	savedSeq  uint64
}

// NewController creates a Controller for userID. A nil scheduler uses DefaultScheduler.
func NewController(userID string, assistant ports.Assistant, history *HistoryStore, opts Options, schedule Scheduler, log *zap.Logger) *Controller {
	if schedule == nil {
		schedule = DefaultScheduler
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		userID:    userID,
		assistant: assistant,
		history:   history,
		opts:      opts.withDefaults(),
		schedule:  schedule,
		now:       time.Now,
		jitter:    rand.Float64,
		log:       log.With(zap.String("user_id", userID)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Mount hydrates messages from persisted history when any are stored.
func (c *Controller) Mount(ctx context.Context) error {
	stored, err := c.history.Load(ctx, c.userID)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.messages = stored
	c.mu.Unlock()

	c.log.Debug("session hydrated", zap.Int("messages", len(stored)))
	c.notify()
	return nil
}

// Subscribe registers a listener for state changes.
func (c *Controller) Subscribe(fn func(State)) (dispose func()) {
	return c.events.Subscribe(fn)
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Toggle opens or closes the chat panel.
func (c *Controller) Toggle() {
	c.mu.Lock()
	c.open = !c.open
	c.mu.Unlock()
	c.notify()
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.notify()
}

// Send schedules the debounced send. Only the last call inside the debounce window fires.
func (c *Controller) Send() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = c.schedule(c.opts.Debounce, c.fire)
}

// OnKeyDown handles Enter and Escape while the panel is open. It reports whether the key was consumed.
func (c *Controller) OnKeyDown(ev KeyEvent) bool {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return false
	}

	switch ev.Key {
	case "Enter":
		if ev.Shift {
			return false
		}
		c.Send()
		return true
	case "Escape":
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
		c.notify()
		return true
	}
	return false
}

// Clear empties the conversation, cancels timers and removes persisted history.
// Results of requests already in flight are discarded when they arrive.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.messages = nil
	c.retryCount = 0
	c.sending = false
	c.typing = false
	c.generation++
	c.stopTimersLocked()
	w := c.snapshotLocked()
	c.mu.Unlock()

	err := c.save(ctx, w)
	if err != nil {
		c.log.Warn("removing persisted history failed", zap.Error(err))
	}
	c.notify()
	return err
}

// Dispose cancels every timer, drops every listener and cancels in-flight requests.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.generation++
	c.stopTimersLocked()
	c.mu.Unlock()

	c.cancel()
	c.events.Close()
}

// fire runs when the debounce window elapses.
func (c *Controller) fire() {
	c.mu.Lock()
	c.debounceTimer = nil
	text := strings.TrimSpace(c.input)
	if c.disposed || c.sending || text == "" {
		c.mu.Unlock()
		return
	}

	// A new user turn supersedes a pending automatic retry.
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.retryCount = 0

	now := c.now()
	history := make([]entities.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role == entities.RoleAssistant && IsNotice(m.Content) {
			continue
		}
		history = append(history, entities.ChatMessage{Role: m.Role, Content: m.Content})
	}

	content := IsContentRequest(text)
	force := content || (IsFileRelated(text) && now.Sub(c.lastForcedAt) > c.opts.FileRefreshInterval)
	if force {
		c.lastForcedAt = now
	}

	c.input = ""
	c.messages = append(c.messages, entities.NewChatMessage(entities.RoleUser, text, now))
	placeholder := -1
	if content {
		placeholder = len(c.messages)
		c.messages = append(c.messages, entities.NewChatMessage(entities.RoleAssistant, ProvisionalMessage, now))
	}
	w := c.snapshotLocked()

	t := turn{
		generation:  c.generation,
		text:        text,
		history:     history,
		force:       force,
		placeholder: placeholder,
	}
	c.beginLocked()
	c.mu.Unlock()
	c.persist(w)
	c.notify()

	c.dispatch(t)
}

// retry re-runs a rate-limited turn without going through the debounce.
func (c *Controller) retry(t turn) {
	c.mu.Lock()
	c.retryTimer = nil
	if c.disposed || c.sending || t.generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.beginLocked()
	c.mu.Unlock()
	c.notify()

	c.dispatch(t)
}

func (c *Controller) beginLocked() {
	c.sending = true
	c.typing = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	window := c.opts.TypingMin + time.Duration(c.jitter()*float64(c.opts.TypingMax-c.opts.TypingMin))
	c.typingTimer = c.schedule(window, c.stopTyping)
}

func (c *Controller) stopTyping() {
	c.mu.Lock()
	c.typing = false
	c.typingTimer = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) dispatch(t turn) {
	reply, err := c.assistant.Invoke(c.ctx, entities.AssistantRequest{
		Message:             t.text,
		History:             t.history,
		UserID:              c.userID,
		ForceRefreshContext: t.force,
	})

	c.mu.Lock()
	if c.disposed || t.generation != c.generation {
		c.mu.Unlock()
		c.log.Debug("discarding result of a cleared session")
		return
	}
	c.sending = false
	now := c.now()

	if err == nil {
		c.retryCount = 0
		c.settleLocked(t.placeholder, entities.NewChatMessage(entities.RoleAssistant, reply.Message, now))
		w := c.snapshotLocked()
		c.mu.Unlock()
		c.persist(w)
		c.notify()
		return
	}

	classified := ClassifyError(err)
	if classified.Kind == entities.ErrorRateLimit && classified.RetryAfterSeconds > 0 && c.retryCount < c.opts.MaxRetries {
		c.retryCount++
		c.log.Info("rate limited, retry scheduled",
			zap.Int("retry_after_seconds", classified.RetryAfterSeconds),
			zap.Int("attempt", c.retryCount))
		notice := retryNotice(classified.RetryAfterSeconds, c.retryCount, c.opts.MaxRetries)
		next := t
		next.placeholder = c.settleLocked(t.placeholder, entities.NewChatMessage(entities.RoleAssistant, notice, now))
		w := c.snapshotLocked()

		c.retryTimer = c.schedule(time.Duration(classified.RetryAfterSeconds)*time.Second, func() { c.retry(next) })
		c.mu.Unlock()
		c.persist(w)
		c.notify()
		return
	}

	c.log.Warn("assistant request failed",
		zap.String("kind", string(classified.Kind)),
		zap.Int("retries", c.retryCount),
		zap.Error(err))
	c.retryCount = 0
	c.settleLocked(t.placeholder, entities.NewChatMessage(entities.RoleAssistant, UserMessage(classified), now))
	w := c.snapshotLocked()
	c.mu.Unlock()
	c.persist(w)
	c.notify()
}

// settleLocked replaces the turn's placeholder message, or appends when it has none.
// It returns the index msg now occupies.
func (c *Controller) settleLocked(placeholder int, msg entities.ChatMessage) int {
	if placeholder >= 0 && placeholder < len(c.messages) && c.messages[placeholder].Role == entities.RoleAssistant {
		c.messages[placeholder] = msg
		return placeholder
	}
	c.messages = append(c.messages, msg)
	return len(c.messages) - 1
}

// snapshotLocked copies the messages for a write that happens after the lock is released.
func (c *Controller) snapshotLocked() write {
	c.writeSeq++
	w := write{seq: c.writeSeq}
	if len(c.messages) > 0 {
		w.messages = append([]entities.ChatMessage(nil), c.messages...)
	}
	return w
}

// persist saves w and logs failures.
func (c *Controller) persist(w write) {
	if err := c.save(c.ctx, w); err != nil {
		c.log.Warn("persisting history failed", zap.Error(err))
	}
}

// save applies w unless a newer write already landed.
func (c *Controller) save(ctx context.Context, w write) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if w.seq <= c.savedSeq {
		return nil
	}
	var err error
	if w.messages == nil {
		err = c.history.Remove(ctx, c.userID)
	} else {
		err = c.history.Save(ctx, c.userID, w.messages)
	}
	if err == nil {
		c.savedSeq = w.seq
	}
	return err
}

func (c *Controller) stopTimersLocked() {
	for _, t := range []*Timer{&c.debounceTimer, &c.retryTimer, &c.typingTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

// Idle reports whether no send, retry, or debounced input is in flight and nobody is subscribed.
func (c *Controller) Idle() bool {
	c.mu.Lock()
	busy := c.sending || c.retryTimer != nil || c.debounceTimer != nil
	c.mu.Unlock()
	return !busy && c.events.Len() == 0
}

func (c *Controller) stateLocked() State {
	phase := PhaseIdle
	switch {
	case c.sending:
		phase = PhaseSending
	case c.retryTimer != nil:
		phase = PhaseWaitingRetry
	}
	return State{
		UserID:     c.userID,
		Messages:   append([]entities.ChatMessage{}, c.messages...),
		Input:      c.input,
		Open:       c.open,
		IsSending:  c.sending,
		IsTyping:   c.typing,
		RetryCount: c.retryCount,
		Phase:      phase,
	}
}

func (c *Controller) notify() {
	if c.events.Len() == 0 {
		return
	}
	c.events.Emit(c.State())
}
