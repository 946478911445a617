package detector_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/detector"
)

func iniFile(path string) achievement.File {
	return achievement.File{Type: achievement.CrackerCodex, Path: path}
}

func touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("[A]\nAchieved=1\n"), 0o644))
	require.NoError(t, os.Chtimes(path, when, when))
}

func TestHasChanged_RegularFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "achievements.ini")
	touch(t, path, time.Unix(1700000000, 0))

	d := detector.New()
	assert.True(t, d.HasChanged(iniFile(path)), "first observation with non-zero mtime")
	assert.False(t, d.HasChanged(iniFile(path)), "unchanged")

	touch(t, path, time.Unix(1700000100, 0))
	assert.True(t, d.HasChanged(iniFile(path)), "mtime moved")
	assert.False(t, d.HasChanged(iniFile(path)))
}

func TestHasChanged_MissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "achievements.ini")
	d := detector.New()

	assert.False(t, d.HasChanged(iniFile(path)), "stat failure reports no change")

	touch(t, path, time.Unix(1700000000, 0))
	assert.True(t, d.HasChanged(iniFile(path)), "appearing after unknown counts as changed")
}

func TestHasChanged_DeletedThenRestored(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "achievements.ini")
	stamp := time.Unix(1700000000, 0)
	touch(t, path, stamp)

	d := detector.New()
	require.True(t, d.HasChanged(iniFile(path)))

	require.NoError(t, os.Remove(path))
	assert.False(t, d.HasChanged(iniFile(path)))

	touch(t, path, stamp)
	assert.True(t, d.HasChanged(iniFile(path)), "same mtime after unknown is re-reported")
}

func TestForget_RegularFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "achievements.ini")
	touch(t, path, time.Unix(1700000000, 0))

	d := detector.New()
	require.True(t, d.HasChanged(iniFile(path)))
	require.False(t, d.HasChanged(iniFile(path)))

	d.Forget(path)
	assert.True(t, d.HasChanged(iniFile(path)), "forgotten file is retried")
}

func TestHasChanged_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	flt := achievement.File{Type: achievement.CrackerFLT, Path: dir}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACH_ONE"), nil, 0o644))

	d := detector.New()
	require.True(t, d.HasChanged(flt), "first listing")
	require.False(t, d.HasChanged(flt))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACH_TWO"), nil, 0o644))
	assert.True(t, d.HasChanged(flt), "one new entry")
	assert.False(t, d.HasChanged(flt), "no further change")
}

func TestHasChanged_DirectoryRemovalAndSwap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	flt := achievement.File{Type: achievement.CrackerFLT, Path: dir}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACH_ONE"), nil, 0o644))

	d := detector.New()
	require.True(t, d.HasChanged(flt))

	// Same count, different members.
	require.NoError(t, os.Rename(filepath.Join(dir, "ACH_ONE"), filepath.Join(dir, "ACH_TWO")))
	assert.True(t, d.HasChanged(flt))

	require.NoError(t, os.Remove(filepath.Join(dir, "ACH_TWO")))
	assert.True(t, d.HasChanged(flt))
}

func TestHasChanged_DirectoryReadFailureResets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "stats")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACH_ONE"), nil, 0o644))
	flt := achievement.File{Type: achievement.CrackerFLT, Path: dir}

	d := detector.New()
	require.True(t, d.HasChanged(flt))

	require.NoError(t, os.Rename(dir, filepath.Join(root, "moved")))
	assert.False(t, d.HasChanged(flt), "read failure")

	require.NoError(t, os.Rename(filepath.Join(root, "moved"), dir))
	assert.True(t, d.HasChanged(flt), "full re-report after reset")
}

func TestDetector_InstancesAreIndependent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "achievements.ini")
	touch(t, path, time.Unix(1700000000, 0))

	a, b := detector.New(), detector.New()
	require.True(t, a.HasChanged(iniFile(path)))
	assert.True(t, b.HasChanged(iniFile(path)))
	assert.Equal(t, 1, a.Len())

	a.Reset()
	assert.Equal(t, 0, a.Len())
}
