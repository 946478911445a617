// Package detector tracks achievement file signatures between polls.
//
// Regular files are compared by modification time. Directory-backed formats
// are compared by their set of entry names.
package detector

import (
	"os"
	"sync"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// unknown marks a file whose last stat failed or whose parse failed.
const unknown int64 = -1

// Detector remembers the last observed signature of every file it is asked
// about. It is safe for concurrent use.
type Detector struct {
	mu      sync.Mutex
	mtimes  map[string]int64
	entries map[string]map[string]struct{}
}

// New returns an empty detector.
func New() *Detector {
	return &Detector{
		mtimes:  make(map[string]int64),
		entries: make(map[string]map[string]struct{}),
	}
}

// HasChanged reports whether file differs from the last observation and
// records the new signature.
func (d *Detector) HasChanged(file achievement.File) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if file.Type.IsDirectory() {
		return d.directoryChanged(file.Path)
	}
	return d.fileChanged(file.Path)
}

// A file seen for the first time counts as changed only when its mtime is
// non-zero.
func (d *Detector) fileChanged(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		d.mtimes[path] = unknown
		return false
	}

	current := info.ModTime().UnixMilli()
	previous, seen := d.mtimes[path]
	d.mtimes[path] = current

	if !seen || previous == unknown {
		return current != 0
	}
	return current != previous
}

func (d *Detector) directoryChanged(path string) bool {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		d.entries[path] = make(map[string]struct{})
		return false
	}

	current := make(map[string]struct{}, len(dirEntries))
	for _, e := range dirEntries {
		current[e.Name()] = struct{}{}
	}

	previous := d.entries[path]
	d.entries[path] = current

	if len(current) != len(previous) {
		return true
	}
	for name := range current {
		if _, ok := previous[name]; !ok {
			return true
		}
	}
	return false
}

// Forget resets path to the unknown signature, so the next call reports
// it again once it is readable.
func (d *Detector) Forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[path]; ok {
		d.entries[path] = make(map[string]struct{})
	} else {
		d.mtimes[path] = unknown
	}
	logging.Get("detector").Debug("forgot signature", "path", path)
}

// Reset drops every signature.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mtimes = make(map[string]int64)
	d.entries = make(map[string]map[string]struct{})
}

// Len returns the number of tracked paths.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mtimes) + len(d.entries)
}
