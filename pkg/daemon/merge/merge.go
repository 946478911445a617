// Package merge folds newly observed unlocks into a game's persisted record,
// syncs linked games with the remote profile and requests notifications.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/trophy/pkg/daemon/notify"
	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Store is the local record store.
type Store interface {
	Load(key achievement.GameKey) (*achievement.Record, error)
	UpdateRecord(key achievement.GameKey, fn func(rec *achievement.Record) error) (*achievement.Record, error)
}

// Remote syncs a linked game's unlocked set.
type Remote interface {
	PutAchievements(ctx context.Context, remoteID string, unlocked []achievement.Unlocked, needsSubscription bool) (*remote.SyncResult, error)
}

// Notifier announces new unlocks.
type Notifier interface {
	GameUnlocked(ctx context.Context, u notify.GameUnlock) bool
}

// Publisher pushes a game's recomputed view to live clients.
type Publisher interface {
	PublishRefresh(game achievement.GameKey, view []achievement.Entry)
}

// Engine merges observations for one game at a time. Merges for the same
// game are serialized; different games proceed in parallel.
type Engine struct {
	store     Store
	remote    Remote
	notifier  Notifier
	publisher Publisher

	locks keyedMutex

	logger *logging.Logger
}

// New creates an Engine. remote, notifier and publisher may be nil.
func New(store Store, r Remote, n Notifier, p Publisher) *Engine {
	return &Engine{
		store:     store,
		remote:    r,
		notifier:  n,
		publisher: p,
		logger:    logging.Get("merge"),
	}
}

// Merge folds observed into the game's record and returns how many of them
// were not already known. Remote failures never lose a local unlock.
func (e *Engine) Merge(ctx context.Context, game achievement.Game, observed []achievement.Unlocked, shouldNotify bool) (int, error) {
	key := game.Key()

	unlock := e.locks.lock(key.String())
	defer unlock()

	prev, err := e.store.Load(key)
	if err != nil {
		return 0, fmt.Errorf("loading record %s: %w", key, err)
	}

	trulyNew := newUnlocks(prev.UnlockedAchievements, normalize(observed))
	merged := achievement.Union(prev.UnlockedAchievements, trulyNew)

	resolved := merged
	if game.RemoteID != "" && e.remote != nil {
		resolved = e.sync(ctx, game, merged, len(trulyNew) > 0)
	}

	rec, err := e.store.UpdateRecord(key, func(cur *achievement.Record) error {
		// resolved goes first so remote timestamps win; the current record
		// fills in anything a concurrent write or a lagging remote lacks.
		cur.UnlockedAchievements = achievement.Union(resolved, cur.UnlockedAchievements)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving record %s: %w", key, err)
	}

	// Announce only what was stored, so a failed write is retried and
	// announced on a later tick.
	if len(trulyNew) > 0 {
		e.logger.Info("new achievements", "game", key.String(), "count", len(trulyNew))
		if shouldNotify && e.notifier != nil {
			e.notifier.GameUnlocked(ctx, notify.GameUnlock{
				Game:         game,
				Achievements: payload(rec.Achievements, trulyNew),
				Unlocked:     len(rec.UnlockedAchievements),
				Total:        len(rec.Achievements),
			})
		}
	}

	if shouldNotify && e.publisher != nil {
		e.publisher.PublishRefresh(key, achievement.BuildView(rec.Achievements, rec.UnlockedAchievements))
	}

	return len(trulyNew), nil
}

// sync pushes merged to the remote profile and returns the set to persist.
func (e *Engine) sync(ctx context.Context, game achievement.Game, merged []achievement.Unlocked, needsSubscription bool) []achievement.Unlocked {
	res, err := e.remote.PutAchievements(ctx, game.RemoteID, merged, needsSubscription)
	switch {
	case err == nil:
		return res.Achievements
	case errors.Is(err, remote.ErrSubscriptionRequired):
		e.logger.Info("remote sync needs a subscription, keeping local state", "game", game.Key().String())
	default:
		e.logger.Warn("remote sync failed, keeping local state", "game", game.Key().String(), "error", err)
	}
	return merged
}

// normalize keeps one entry per name. The last occurrence wins but keeps
// the position of the first.
func normalize(observed []achievement.Unlocked) []achievement.Unlocked {
	index := make(map[string]int, len(observed))
	out := make([]achievement.Unlocked, 0, len(observed))
	for _, u := range observed {
		key := achievement.NormalizeName(u.Name)
		if i, ok := index[key]; ok {
			out[i] = u
			continue
		}
		index[key] = len(out)
		out = append(out, u)
	}
	return out
}

func newUnlocks(known, observed []achievement.Unlocked) []achievement.Unlocked {
	seen := achievement.IndexUnlocked(known)
	var fresh []achievement.Unlocked
	for _, u := range observed {
		if _, ok := seen[achievement.NormalizeName(u.Name)]; !ok {
			fresh = append(fresh, u)
		}
	}
	return fresh
}

// payload returns the definitions of fresh, oldest unlock first. Unlocks
// without a definition are left out.
func payload(defs []achievement.Definition, fresh []achievement.Unlocked) []achievement.Entry {
	byName := achievement.IndexDefinitions(defs)

	entries := make([]achievement.Entry, 0, len(fresh))
	for _, u := range fresh {
		d, ok := byName[achievement.NormalizeName(u.Name)]
		if !ok {
			continue
		}
		entries = append(entries, achievement.Entry{Definition: d, Unlocked: true, UnlockTime: u.UnlockTime})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UnlockTime < entries[j].UnlockTime
	})
	return entries
}

// keyedMutex hands out one mutex per key and drops it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
