package locator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

func TestFoldersFor_PlatformBranch(t *testing.T) {
	prefix := t.TempDir()

	_, ok := foldersFor("linux", achievement.Game{ObjectID: "1"})
	assert.False(t, ok, "no prefix off windows")

	f, ok := foldersFor("linux", achievement.Game{ObjectID: "1", WinePrefixPath: prefix})
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(prefix, "drive_c", "ProgramData"), f.ProgramData)

	f, ok = foldersFor("windows", achievement.Game{ObjectID: "1", WinePrefixPath: prefix})
	assert.True(t, ok)
	assert.Equal(t, NativeFolders(), f, "windows ignores prefixes")
}
