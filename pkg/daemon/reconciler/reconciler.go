// Package reconciler drives achievement reconciliation: a startup catch-up
// pass over the whole library followed by recurring watch ticks.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/detector"
	"github.com/jamesainslie/trophy/pkg/trophy/locator"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
	"github.com/jamesainslie/trophy/pkg/trophy/parser"
)

// Library lists the installed games.
type Library interface {
	ListInstalled(ctx context.Context) ([]achievement.Game, error)
}

// Store is the subset of the record store the scheduler touches directly.
type Store interface {
	Load(key achievement.GameKey) (*achievement.Record, error)
	SetDefinitions(key achievement.GameKey, defs []achievement.Definition) error
	ClearUnlocked(key achievement.GameKey) error
}

// Remote fetches definitions and clears remote progress.
type Remote interface {
	FetchDefinitions(ctx context.Context, key achievement.GameKey, language string) ([]achievement.Definition, error)
	DeleteAchievements(ctx context.Context, remoteID string) error
}

// Merger folds observations into a game's record.
type Merger interface {
	Merge(ctx context.Context, game achievement.Game, observed []achievement.Unlocked, shouldNotify bool) (int, error)
}

// Announcer emits the catch-up summary and forgets reset games.
type Announcer interface {
	CatchUpSummary(ctx context.Context, total, games int) bool
	Forget(game achievement.GameKey)
}

// Options configures a Reconciler.
type Options struct {
	Language string

	// Locator defaults to locator.New(nil).
	Locator *locator.Locator

	// FoldersFor defaults to locator.FoldersFor.
	FoldersFor func(achievement.Game) (locator.Folders, bool)

	// Observe receives every candidate file seen by a pass.
	Observe func(files []achievement.File)
}

// Reconciler owns the change-detection state and the initial-sync gate.
type Reconciler struct {
	library   Library
	store     Store
	remote    Remote
	merger    Merger
	announcer Announcer

	locator    *locator.Locator
	detector   *detector.Detector
	foldersFor func(achievement.Game) (locator.Folders, bool)
	language   string
	observe    func([]achievement.File)

	initialSynced atomic.Bool

	mu       sync.Mutex
	lastScan time.Time
	lastNew  int

	logger *logging.Logger
}

// New creates a Reconciler. remote and announcer may be nil.
func New(lib Library, st Store, r Remote, m Merger, a Announcer, opts Options) *Reconciler {
	loc := opts.Locator
	if loc == nil {
		loc = locator.New(nil)
	}
	foldersFor := opts.FoldersFor
	if foldersFor == nil {
		foldersFor = locator.FoldersFor
	}

	return &Reconciler{
		library:    lib,
		store:      st,
		remote:     r,
		merger:     m,
		announcer:  a,
		locator:    loc,
		detector:   detector.New(),
		foldersFor: foldersFor,
		language:   opts.Language,
		observe:    opts.Observe,
		logger:     logging.Get("reconciler"),
	}
}

// InitialSynced reports whether the catch-up pass has completed.
func (r *Reconciler) InitialSynced() bool {
	return r.initialSynced.Load()
}

// LastScan returns when the last pass finished and how many new unlocks
// it merged.
func (r *Reconciler) LastScan() (time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastScan, r.lastNew
}

func (r *Reconciler) recordScan(newUnlocks int) {
	r.mu.Lock()
	r.lastScan = time.Now()
	r.lastNew = newUnlocks
	r.mu.Unlock()
}

// PreSearchResult summarizes a catch-up pass.
type PreSearchResult struct {
	Games        int
	NewUnlocks   int
	GamesWithNew int
	Failed       int
}

// PreSearch runs the catch-up pass: every locatable game is merged without
// per-game notifications, then one summary is emitted. Per-game failures
// are logged and counted; only failing to list the library is an error.
func (r *Reconciler) PreSearch(ctx context.Context) (PreSearchResult, error) {
	var res PreSearchResult

	games, err := r.library.ListInstalled(ctx)
	if err != nil {
		return res, fmt.Errorf("listing games: %w", err)
	}

	bulk := make(map[locator.Folders]map[string][]achievement.File)
	var seen []achievement.File

	for _, game := range games {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		folders, ok := r.foldersFor(game)
		if !ok {
			continue
		}
		found, ok := bulk[folders]
		if !ok {
			found = r.locator.LocateAll(folders)
			bulk[folders] = found
		}

		r.warmDefinitions(ctx, game)

		files := append(append([]achievement.File(nil), found[game.ObjectID]...), locator.Beside(game)...)
		seen = append(seen, files...)
		res.Games++

		n, err := r.catchUp(ctx, game, files)
		if err != nil {
			res.Failed++
			r.logger.Warn("catch-up failed", "game", game.Key().String(), "error", err)
			continue
		}
		if n > 0 {
			res.NewUnlocks += n
			res.GamesWithNew++
		}
	}

	if r.announcer != nil {
		r.announcer.CatchUpSummary(ctx, res.NewUnlocks, res.GamesWithNew)
	}
	r.initialSynced.Store(true)
	r.recordScan(res.NewUnlocks)
	r.notifyObserver(seen)

	r.logger.Info("catch-up pass complete",
		"games", res.Games, "new", res.NewUnlocks, "games_with_new", res.GamesWithNew, "failed", res.Failed)
	return res, nil
}

// catchUp parses every file for a game into one batch and merges it. The
// detector is primed so the first watch tick does not re-read them.
func (r *Reconciler) catchUp(ctx context.Context, game achievement.Game, files []achievement.File) (int, error) {
	var batch []achievement.Unlocked
	for _, f := range files {
		r.detector.HasChanged(f)
		result := parser.Parse(f)
		if result.Status == parser.StatusFailed {
			r.detector.Forget(f.Path)
			continue
		}
		batch = append(batch, result.Unlocks...)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	return r.merger.Merge(ctx, game, batch, false)
}

// warmDefinitions fetches the catalogue for games that have none cached.
func (r *Reconciler) warmDefinitions(ctx context.Context, game achievement.Game) {
	if r.remote == nil {
		return
	}
	rec, err := r.store.Load(game.Key())
	if err != nil || len(rec.Achievements) > 0 {
		return
	}
	if err := r.fetchDefinitions(ctx, game.Key()); err != nil {
		r.logger.Debug("definition warm-up failed", "game", game.Key().String(), "error", err)
	}
}

// Watch runs one live tick. It does nothing until PreSearch has completed.
// Changed files are parsed and merged one at a time with notifications.
func (r *Reconciler) Watch(ctx context.Context) (int, error) {
	if !r.InitialSynced() {
		return 0, nil
	}

	games, err := r.library.ListInstalled(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing games: %w", err)
	}

	var seen []achievement.File
	total := 0
	for _, game := range games {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		folders, ok := r.foldersFor(game)
		if !ok {
			continue
		}

		files := r.locator.Locate(game, folders)
		seen = append(seen, files...)
		total += r.watchGame(ctx, game, files)
	}

	if total > 0 {
		r.recordScan(total)
	}
	r.notifyObserver(seen)
	return total, nil
}

func (r *Reconciler) watchGame(ctx context.Context, game achievement.Game, files []achievement.File) int {
	total := 0
	for _, f := range files {
		if !r.detector.HasChanged(f) {
			continue
		}

		result := parser.Parse(f)
		switch result.Status {
		case parser.StatusFailed:
			// Retry on the next tick.
			r.detector.Forget(f.Path)
			continue
		case parser.StatusEmpty:
			continue
		}

		n, err := r.merger.Merge(ctx, game, result.Unlocks, true)
		if err != nil {
			r.logger.Warn("merge failed", "game", game.Key().String(), "file", f.Path, "error", err)
			continue
		}
		total += n
	}
	return total
}

// ErrNoRemote is returned by operations that need the remote API when
// none is configured.
var ErrNoRemote = errors.New("remote API not configured")

// RefreshDefinitions refetches the catalogue for one game.
func (r *Reconciler) RefreshDefinitions(ctx context.Context, key achievement.GameKey) error {
	if r.remote == nil {
		return ErrNoRemote
	}
	return r.fetchDefinitions(ctx, key)
}

func (r *Reconciler) fetchDefinitions(ctx context.Context, key achievement.GameKey) error {
	defs, err := r.remote.FetchDefinitions(ctx, key, r.language)
	if err != nil {
		return fmt.Errorf("fetching definitions for %s: %w", key, err)
	}
	if err := r.store.SetDefinitions(key, defs); err != nil {
		return fmt.Errorf("saving definitions for %s: %w", key, err)
	}
	return nil
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	FilesRemoved  []string
	RemoteCleared bool
}

// Reset clears a game's progress: the local unlocked set, the remote
// profile when linked, and the crack state files on disk. A failed remote
// clear is logged and does not undo the local reset.
func (r *Reconciler) Reset(ctx context.Context, game achievement.Game) (ResetResult, error) {
	var res ResetResult
	key := game.Key()

	if folders, ok := r.foldersFor(game); ok {
		for _, f := range r.locator.Locate(game, folders) {
			if err := os.RemoveAll(f.Path); err != nil {
				r.logger.Warn("failed to remove achievement file", "path", f.Path, "error", err)
				continue
			}
			res.FilesRemoved = append(res.FilesRemoved, f.Path)
			r.detector.Forget(f.Path)
		}
	}
	sort.Strings(res.FilesRemoved)

	if err := r.store.ClearUnlocked(key); err != nil {
		return res, fmt.Errorf("clearing %s: %w", key, err)
	}
	if r.announcer != nil {
		r.announcer.Forget(key)
	}

	if game.RemoteID != "" && r.remote != nil {
		err := r.remote.DeleteAchievements(ctx, game.RemoteID)
		switch {
		case err == nil:
			res.RemoteCleared = true
		case errors.Is(err, remote.ErrNotLoggedIn):
			r.logger.Info("not logged in, remote progress kept", "game", key.String())
		default:
			r.logger.Warn("failed to clear remote progress", "game", key.String(), "error", err)
		}
	}

	r.logger.Info("achievements reset", "game", key.String(), "files", len(res.FilesRemoved), "remote", res.RemoteCleared)
	return res, nil
}

// Run performs the catch-up pass and then a watch tick every interval, or
// earlier when nudged. It returns when ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration, nudges <-chan struct{}) error {
	if _, err := r.PreSearch(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		// Keep going: the gate stays closed and the next nudge or a
		// manual catch-up retries.
		r.logger.Error("catch-up pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-nudges:
		}

		if !r.InitialSynced() {
			if _, err := r.PreSearch(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("catch-up pass failed", "error", err)
			}
			continue
		}

		if _, err := r.Watch(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("watch tick failed", "error", err)
		}
	}
}

func (r *Reconciler) notifyObserver(files []achievement.File) {
	if r.observe != nil {
		r.observe(files)
	}
}
