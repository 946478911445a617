package reconciler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/trophy/pkg/daemon/reconciler"
	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/locator"
)

type fakeLibrary struct{ games []achievement.Game }

func (l *fakeLibrary) ListInstalled(context.Context) ([]achievement.Game, error) {
	return l.games, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records map[achievement.GameKey]*achievement.Record
	cleared []achievement.GameKey
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[achievement.GameKey]*achievement.Record)}
}

func (s *fakeStore) Load(key achievement.GameKey) (*achievement.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		cp := *rec
		return &cp, nil
	}
	return &achievement.Record{}, nil
}

func (s *fakeStore) SetDefinitions(key achievement.GameKey, defs []achievement.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = &achievement.Record{}
		s.records[key] = rec
	}
	rec.Achievements = defs
	return nil
}

func (s *fakeStore) ClearUnlocked(key achievement.GameKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, key)
	return nil
}

type fakeRemote struct {
	fetched []achievement.GameKey
	deleted []string
	delErr  error
}

func (r *fakeRemote) FetchDefinitions(_ context.Context, key achievement.GameKey, _ string) ([]achievement.Definition, error) {
	r.fetched = append(r.fetched, key)
	return []achievement.Definition{{Name: "ACH_A"}}, nil
}

func (r *fakeRemote) DeleteAchievements(_ context.Context, remoteID string) error {
	r.deleted = append(r.deleted, remoteID)
	return r.delErr
}

type mergeCall struct {
	game     achievement.GameKey
	observed []achievement.Unlocked
	notify   bool
}

type fakeMerger struct {
	mu    sync.Mutex
	calls []mergeCall
	fail  map[achievement.GameKey]error
}

func (m *fakeMerger) Merge(_ context.Context, game achievement.Game, observed []achievement.Unlocked, notify bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mergeCall{game.Key(), observed, notify})
	if err := m.fail[game.Key()]; err != nil {
		return 0, err
	}
	return len(observed), nil
}

func (m *fakeMerger) snapshot() []mergeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mergeCall(nil), m.calls...)
}

type fakeAnnouncer struct {
	total, games int
	summaries    int
	forgotten    []achievement.GameKey
}

func (a *fakeAnnouncer) CatchUpSummary(_ context.Context, total, games int) bool {
	a.summaries++
	a.total, a.games = total, games
	return total > 0
}

func (a *fakeAnnouncer) Forget(key achievement.GameKey) {
	a.forgotten = append(a.forgotten, key)
}

type fixture struct {
	folders   locator.Folders
	library   *fakeLibrary
	store     *fakeStore
	remote    *fakeRemote
	merger    *fakeMerger
	announcer *fakeAnnouncer
	r         *reconciler.Reconciler
}

func newFixture(t *testing.T, games ...achievement.Game) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		folders: locator.Folders{
			AppData:         filepath.Join(root, "Roaming"),
			LocalAppData:    filepath.Join(root, "Local"),
			Documents:       filepath.Join(root, "Documents"),
			ProgramData:     filepath.Join(root, "ProgramData"),
			PublicDocuments: filepath.Join(root, "Public", "Documents"),
		},
		library:   &fakeLibrary{games: games},
		store:     newFakeStore(),
		remote:    &fakeRemote{},
		merger:    &fakeMerger{},
		announcer: &fakeAnnouncer{},
	}
	f.r = reconciler.New(f.library, f.store, f.remote, f.merger, f.announcer, reconciler.Options{
		Language: "en",
		FoldersFor: func(g achievement.Game) (locator.Folders, bool) {
			return f.folders, g.WinePrefixPath != ""
		},
	})
	return f
}

func (f *fixture) goldberg(t *testing.T, objectID, body string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.folders.AppData, "Goldberg SteamEmu Saves", objectID, "achievements.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

var (
	base   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	elden  = achievement.Game{Shop: "steam", ObjectID: "1245620", Title: "Elden Ring", WinePrefixPath: "/pfx"}
	hades  = achievement.Game{Shop: "steam", ObjectID: "1145360", Title: "Hades", WinePrefixPath: "/pfx", RemoteID: "remote-hades"}
	native = achievement.Game{Shop: "steam", ObjectID: "367520", Title: "No prefix"}
)

const twoUnlocked = `{"ACH_A":{"earned":true,"earned_time":100},"ACH_B":{"earned":true,"earned_time":200}}`

func TestWatch_NoOpBeforeInitialSync(t *testing.T) {
	f := newFixture(t, elden)
	f.goldberg(t, elden.ObjectID, twoUnlocked, base)

	n, err := f.r.Watch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.merger.snapshot())
	assert.False(t, f.r.InitialSynced())
}

func TestPreSearch_MergesSilentlyAndSummarizes(t *testing.T) {
	f := newFixture(t, elden, hades, native)
	f.goldberg(t, elden.ObjectID, twoUnlocked, base)
	f.goldberg(t, hades.ObjectID, `{"ACH_X":{"earned":true,"earned_time":5}}`, base)
	f.goldberg(t, native.ObjectID, twoUnlocked, base)

	res, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconciler.PreSearchResult{Games: 2, NewUnlocks: 3, GamesWithNew: 2}, res)
	assert.True(t, f.r.InitialSynced())

	calls := f.merger.snapshot()
	require.Len(t, calls, 2, "the game without a prefix is skipped")
	for _, c := range calls {
		assert.False(t, c.notify)
	}
	assert.Equal(t, []achievement.Unlocked{{Name: "ACH_A", UnlockTime: 100}, {Name: "ACH_B", UnlockTime: 200}}, calls[0].observed)

	assert.Equal(t, 1, f.announcer.summaries)
	assert.Equal(t, 3, f.announcer.total)
	assert.Equal(t, 2, f.announcer.games)

	_, last := f.r.LastScan()
	assert.Equal(t, 3, last)
}

func TestPreSearch_PerGameIsolation(t *testing.T) {
	f := newFixture(t, elden, hades)
	f.goldberg(t, elden.ObjectID, twoUnlocked, base)
	f.goldberg(t, hades.ObjectID, twoUnlocked, base)
	f.merger.fail = map[achievement.GameKey]error{elden.Key(): errors.New("store unavailable")}

	res, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.NewUnlocks)
	assert.Equal(t, 1, res.GamesWithNew)
	assert.True(t, f.r.InitialSynced())
}

func TestPreSearch_SkipsCorruptFiles(t *testing.T) {
	f := newFixture(t, elden)
	f.goldberg(t, elden.ObjectID, `{"ACH_A":{"earned":tr`, base)

	res, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.NewUnlocks)
	assert.Empty(t, f.merger.snapshot())
}

func TestPreSearch_WarmsDefinitions(t *testing.T) {
	f := newFixture(t, elden, hades)
	require.NoError(t, f.store.SetDefinitions(hades.Key(), []achievement.Definition{{Name: "CACHED"}}))

	_, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []achievement.GameKey{elden.Key()}, f.remote.fetched)
	rec, _ := f.store.Load(elden.Key())
	assert.Len(t, rec.Achievements, 1)
}

func TestWatch_MergesOnlyChangedFiles(t *testing.T) {
	f := newFixture(t, elden)
	path := f.goldberg(t, elden.ObjectID, twoUnlocked, base)

	_, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)
	require.Len(t, f.merger.snapshot(), 1)

	n, err := f.r.Watch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.merger.snapshot(), 1, "unchanged file is not re-read")

	later := base.Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte(`{"ACH_C":{"earned":true,"earned_time":300}}`), 0o644))
	require.NoError(t, os.Chtimes(path, later, later))

	n, err = f.r.Watch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.merger.snapshot()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].notify)
	assert.Equal(t, []achievement.Unlocked{{Name: "ACH_C", UnlockTime: 300}}, calls[1].observed)
}

func TestWatch_NewFileAfterSync(t *testing.T) {
	f := newFixture(t, elden)

	_, err := f.r.PreSearch(context.Background())
	require.NoError(t, err)

	f.goldberg(t, elden.ObjectID, twoUnlocked, base)
	n, err := f.r.Watch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReset(t *testing.T) {
	f := newFixture(t, hades)
	path := f.goldberg(t, hades.ObjectID, twoUnlocked, base)

	res, err := f.r.Reset(context.Background(), hades)
	require.NoError(t, err)

	assert.Equal(t, []string{path}, res.FilesRemoved)
	assert.True(t, res.RemoteCleared)
	assert.NoFileExists(t, path)
	assert.Equal(t, []achievement.GameKey{hades.Key()}, f.store.cleared)
	assert.Equal(t, []string{"remote-hades"}, f.remote.deleted)
	assert.Equal(t, []achievement.GameKey{hades.Key()}, f.announcer.forgotten)
}

func TestReset_RemoteFailureKeepsLocalReset(t *testing.T) {
	f := newFixture(t, hades)
	f.remote.delErr = remote.ErrNotLoggedIn

	res, err := f.r.Reset(context.Background(), hades)
	require.NoError(t, err)
	assert.False(t, res.RemoteCleared)
	assert.Equal(t, []achievement.GameKey{hades.Key()}, f.store.cleared)
}

func TestRefreshDefinitions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.RefreshDefinitions(context.Background(), elden.Key()))
	assert.Equal(t, []achievement.GameKey{elden.Key()}, f.remote.fetched)

	noRemote := reconciler.New(&fakeLibrary{}, newFakeStore(), nil, &fakeMerger{}, nil, reconciler.Options{})
	assert.ErrorIs(t, noRemote.RefreshDefinitions(context.Background(), elden.Key()), reconciler.ErrNoRemote)
}

func TestObserveReceivesCandidates(t *testing.T) {
	var got []achievement.File
	f := newFixture(t, elden)
	path := f.goldberg(t, elden.ObjectID, twoUnlocked, base)

	r := reconciler.New(f.library, f.store, nil, f.merger, nil, reconciler.Options{
		FoldersFor: func(achievement.Game) (locator.Folders, bool) { return f.folders, true },
		Observe:    func(files []achievement.File) { got = files },
	})
	_, err := r.PreSearch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []achievement.File{{Type: achievement.CrackerGoldberg, Path: path}}, got)
}

func TestRun_NudgeTriggersWatch(t *testing.T) {
	f := newFixture(t, elden)

	ctx, cancel := context.WithCancel(context.Background())
	nudges := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- f.r.Run(ctx, time.Hour, nudges) }()

	require.Eventually(t, f.r.InitialSynced, time.Second, 10*time.Millisecond)

	f.goldberg(t, elden.ObjectID, twoUnlocked, base)
	nudges <- struct{}{}

	require.Eventually(t, func() bool {
		calls := f.merger.snapshot()
		return len(calls) == 1 && calls[0].notify
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
