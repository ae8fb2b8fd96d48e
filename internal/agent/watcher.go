package agent

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"agcodex/internal/logging"
)

// Watcher reloads the registry when descriptor files change in either
// tier. Rapid saves are debounced so one editor write burst triggers one
// reload.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher

	mu          sync.Mutex
	pending     map[string]time.Time
	debounceDur time.Duration
	running     bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher builds a watcher over the registry's descriptor directories.
func NewWatcher(registry *Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry:    registry,
		watcher:     fw,
		pending:     make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range []string{w.registry.GlobalDir(), w.registry.ProjectDir()} {
		if dir == "" {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			// Tier directories are optional; they may appear later.
			logging.AgentsWarn("watch %s: %v", dir, err)
			continue
		}
		logging.AgentsDebug("watching descriptor dir %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.AgentsWarn("closing descriptor watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.AgentsWarn("descriptor watcher: %v", err)
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".yaml" && ext != ".yml" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled reloads once if any pending event has aged past the
// debounce window, clearing the whole pending set.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	settled := false
	now := time.Now()
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = true
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if !settled {
		return
	}
	if err := w.registry.Reload(); err != nil {
		logging.AgentsWarn("descriptor reload failed: %v", err)
		return
	}
	logging.AgentsDebug("descriptor change detected, registry reloaded")
}
