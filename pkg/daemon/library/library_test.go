package library_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

func openLibrary(t *testing.T) *library.Library {
	t.Helper()
	lib, err := library.Open(filepath.Join(t.TempDir(), "data", "library.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestLibrary_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	game := achievement.Game{
		Shop:           "steam",
		ObjectID:       "1245620",
		Title:          "Elden Ring",
		WinePrefixPath: "/games/prefix",
	}
	require.NoError(t, lib.Upsert(ctx, game))

	got, err := lib.Get(ctx, game.Key())
	require.NoError(t, err)
	assert.Equal(t, game, got)

	game.Title = "ELDEN RING"
	game.ExecutablePath = "/games/eldenring.exe"
	require.NoError(t, lib.Upsert(ctx, game))

	got, err = lib.Get(ctx, game.Key())
	require.NoError(t, err)
	assert.Equal(t, game, got)

	all, err := lib.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert must not duplicate rows")
}

func TestLibrary_GetMissing(t *testing.T) {
	_, err := openLibrary(t).Get(context.Background(), achievement.GameKey{Shop: "steam", ObjectID: "0"})
	assert.ErrorIs(t, err, library.ErrGameNotFound)
}

func TestLibrary_RemoveHidesFromInstalled(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	require.NoError(t, lib.Upsert(ctx, achievement.Game{Shop: "steam", ObjectID: "1", Title: "B"}))
	require.NoError(t, lib.Upsert(ctx, achievement.Game{Shop: "steam", ObjectID: "2", Title: "A"}))

	require.NoError(t, lib.Remove(ctx, achievement.GameKey{Shop: "steam", ObjectID: "1"}))

	installed, err := lib.ListInstalled(ctx)
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "2", installed[0].ObjectID)

	all, err := lib.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Title, "ordered by title")
	assert.True(t, all[1].IsDeleted)

	err = lib.Remove(ctx, achievement.GameKey{Shop: "steam", ObjectID: "404"})
	assert.ErrorIs(t, err, library.ErrGameNotFound)
}

func TestLibrary_SetRemoteID(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)
	key := achievement.GameKey{Shop: "steam", ObjectID: "1"}

	require.NoError(t, lib.Upsert(ctx, achievement.Game{Shop: key.Shop, ObjectID: key.ObjectID}))
	require.NoError(t, lib.SetRemoteID(ctx, key, "remote-123"))

	got, err := lib.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "remote-123", got.RemoteID)

	require.NoError(t, lib.SetRemoteID(ctx, key, ""))
	got, err = lib.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got.RemoteID)
}
