// Package filewatcher provides file system monitoring adapters.
// Clean Architecture: Adapter implementing ports.FileWatcher.
package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// DefaultSettle is how long a path must stay quiet before its event is emitted.
// Editors often write a file several times per save.
const DefaultSettle = 150 * time.Millisecond

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
// Watching a file watches its directory so that editors which replace the file on save are still seen.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	settle  time.Duration
	log     *zap.Logger
}

// Option configures an FSNotifyWatcher.
type Option func(*FSNotifyWatcher)

// WithSettle overrides DefaultSettle. Zero emits every event as it arrives.
func WithSettle(d time.Duration) Option {
	return func(w *FSNotifyWatcher) { w.settle = d }
}

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher(log *zap.Logger, opts ...Option) (*FSNotifyWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &FSNotifyWatcher{watcher: fw, settle: DefaultSettle, log: log}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

type pendingEvent struct {
	op ports.FileOperation
	at time.Time
}

// Watch emits one event per path once it has been quiet for the settle window.
// When path is a file only events for that file are emitted.
func (w *FSNotifyWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	dir, target := abs, ""
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir, target = filepath.Dir(abs), filepath.Base(abs)
	}
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	out := make(chan ports.FileEvent, 100)
	go w.run(ctx, abs, target, out)
	return out, nil
}

func (w *FSNotifyWatcher) run(ctx context.Context, root, target string, out chan<- ports.FileEvent) {
	defer close(out)

	pending := make(map[string]pendingEvent)
	tick := time.Second
	if w.settle > 0 {
		tick = w.settle / 3
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	emit := func(ev ports.FileEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if target != "" && filepath.Base(event.Name) != target {
				continue
			}
			op, ok := operation(event.Op)
			if !ok {
				continue
			}
			if w.settle <= 0 {
				if !emit(ports.FileEvent{Path: event.Name, Operation: op}) {
					return
				}
				continue
			}
			pending[event.Name] = pendingEvent{op: merge(pending[event.Name], op), at: time.Now()}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.String("path", root), zap.Error(err))

		case now := <-ticker.C:
			for name, p := range pending {
				if now.Sub(p.at) < w.settle {
					continue
				}
				delete(pending, name)
				if !emit(ports.FileEvent{Path: name, Operation: p.op}) {
					return
				}
			}
		}
	}
}

func operation(op fsnotify.Op) (ports.FileOperation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ports.FileCreated, true
	case op.Has(fsnotify.Write):
		return ports.FileModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ports.FileDeleted, true
	}
	return 0, false
}

// merge folds a new operation into a pending one. A file created and then written
// is still reported as created; a delete always wins; anything after a delete is a modification.
func merge(prev pendingEvent, next ports.FileOperation) ports.FileOperation {
	if prev.at.IsZero() {
		return next
	}
	switch {
	case next == ports.FileDeleted:
		return ports.FileDeleted
	case prev.op == ports.FileCreated:
		return ports.FileCreated
	case prev.op == ports.FileDeleted:
		return ports.FileModified
	}
	return next
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
