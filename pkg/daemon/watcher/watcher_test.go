package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestSync(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()

	ini := filepath.Join(root, "CODEX", "1245620", "achievements.ini")
	writeFile(t, ini, "[A]\n")
	flt := filepath.Join(root, "FLT", "1245620", "stats")
	if err := os.MkdirAll(flt, 0o755); err != nil {
		t.Fatal(err)
	}

	w.Sync([]achievement.File{
		{Type: achievement.CrackerCodex, Path: ini},
		{Type: achievement.CrackerFLT, Path: flt},
		{Type: achievement.CrackerGoldberg, Path: filepath.Join(root, "missing", "achievements.json")},
	})

	got := w.Paths()
	want := []string{filepath.Dir(ini), flt}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Paths() = %v, want %v", got, want)
	}

	// Dropping a candidate drops its watch.
	w.Sync([]achievement.File{{Type: achievement.CrackerFLT, Path: flt}})
	if got := w.Paths(); len(got) != 1 || got[0] != flt {
		t.Errorf("Paths() after resync = %v, want [%s]", got, flt)
	}
}

func TestSyncAfterClose(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	w.Sync([]achievement.File{{Type: achievement.CrackerFLT, Path: dir}})

	if got := w.Paths(); len(got) != 0 {
		t.Errorf("Paths() = %v, want none after close", got)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestRunNudgesOnWrite(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	ini := filepath.Join(root, "achievements.ini")
	writeFile(t, ini, "[A]\n")
	w.Sync([]achievement.File{{Type: achievement.CrackerCodex, Path: ini}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 3; i++ {
		writeFile(t, ini, "[A]\nAchieved=1\n")
	}

	select {
	case <-w.Nudges():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a nudge after writing a watched file")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want bool
	}{
		{fsnotify.Create, true},
		{fsnotify.Write, true},
		{fsnotify.Remove, true},
		{fsnotify.Rename, true},
		{fsnotify.Chmod, false},
	}
	for _, tt := range tests {
		if got := relevant(fsnotify.Event{Name: "x", Op: tt.op}); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}
