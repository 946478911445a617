package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size in bytes that triggers rotation. Zero uses 10MB.
	MaxSize int64

	// MaxAge is the retention in days for rotated files. Zero keeps them.
	MaxAge int

	// MaxBackups caps the number of rotated files. Zero keeps all.
	MaxBackups int

	// Daily rotates when the calendar day changes.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when none is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// ParseMaxSize converts a human size such as "10MB" into bytes.
// An empty string yields the default.
func ParseMaxSize(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRotationConfig().MaxSize, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parsing max size %q: %w", s, err)
	}
	return int64(n), nil
}

// RotatingWriter is an io.WriteCloser that rotates by size and by day.
// The daemon and the CLI can append to the same file, so each write takes
// an advisory lock where the platform supports one.
type RotatingWriter struct {
	path     string
	cfg      RotationConfig
	mu       sync.Mutex
	file     *os.File
	size     int64
	openedAt time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()

	return w, nil
}

// Write appends p, rotating first when needed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.needsRotation(int64(len(p)), time.Now()) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := lockFile(w.file); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	defer unlockFile(w.file)

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the file. Closing twice is a no-op.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil

	if syncErr != nil {
		return fmt.Errorf("syncing log file: %w", syncErr)
	}
	return closeErr
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	w.openedAt = info.ModTime()
	return nil
}

func (w *RotatingWriter) needsRotation(incoming int64, now time.Time) bool {
	if w.size > 0 && w.size+incoming > w.cfg.MaxSize {
		return true
	}
	if !w.cfg.Daily {
		return false
	}
	y1, m1, d1 := w.openedAt.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, w.rotatedName(time.Now())); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.openedAt = time.Now()
	w.prune()
	return nil
}

// rotatedName returns e.g. trophy.2024-01-20-150405.log for trophy.log,
// adding a counter when several rotations happen within one second.
func (w *RotatingWriter) rotatedName(at time.Time) string {
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext) + "." + at.Format("2006-01-02-150405")
	name := stem + ext
	for i := 1; ; i++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

// prune deletes rotated files beyond MaxBackups or older than MaxAge.
// Failures are ignored; a leftover file is harmless.
func (w *RotatingWriter) prune() {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type rotated struct {
		path    string
		modTime time.Time
	}
	var files []rotated
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || !strings.HasPrefix(name, stem) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, rotated{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	cutoff := time.Now().Add(-time.Duration(w.cfg.MaxAge) * 24 * time.Hour)
	for i, f := range files {
		tooMany := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := w.cfg.MaxAge > 0 && f.modTime.Before(cutoff)
		if tooMany || tooOld {
			_ = os.Remove(f.path)
		}
	}
}
