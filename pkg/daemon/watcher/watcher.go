// Package watcher turns filesystem events near achievement files into
// nudges for the reconciler. Polling stays authoritative: a nudge only
// brings the next watch tick forward.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Watcher watches the directories holding candidate achievement files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	mu       sync.RWMutex
	closed   bool
	debounce time.Duration
	nudges   chan struct{}
}

// New creates a Watcher. Bursts of events within debounce produce a
// single nudge.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool),
		debounce: debounce,
		nudges:   make(chan struct{}, 1),
	}, nil
}

// Nudges delivers one value per debounced burst of events. Nudges are
// coalesced while nobody is receiving.
func (w *Watcher) Nudges() <-chan struct{} {
	return w.nudges
}

// dirFor returns the directory whose events signal a change to f.
func dirFor(f achievement.File) string {
	if f.Type.IsDirectory() {
		return f.Path
	}
	return filepath.Dir(f.Path)
}

// Sync replaces the watch list with the directories of files. Directories
// that no longer hold a candidate are dropped.
func (w *Watcher) Sync(files []achievement.File) {
	want := make(map[string]bool, len(files))
	for _, f := range files {
		want[dirFor(f)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	for path := range w.paths {
		if !want[path] {
			_ = w.watcher.Remove(path)
			delete(w.paths, path)
		}
	}

	for path := range want {
		if w.paths[path] {
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
			continue
		}
		w.paths[path] = true
	}
}

// Paths returns the watched directories, sorted.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.paths))
	for path := range w.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Run starts the event loop. It blocks until the context is cancelled or
// the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	log := logging.Get("watcher")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			log.Debug("achievement files changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.nudges <- struct{}{}:
			default:
				// A nudge is already pending.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}
