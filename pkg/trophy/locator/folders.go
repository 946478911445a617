package locator

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// Folders are the Windows base folders crack layouts are relative to.
// An empty field means the folder is unavailable.
type Folders struct {
	AppData         string // AppData/Roaming
	LocalAppData    string // AppData/Local
	Documents       string
	ProgramData     string
	PublicDocuments string
}

type baseFolder int

const (
	appData baseFolder = iota
	localAppData
	documents
	programData
	publicDocuments
)

func (f Folders) get(b baseFolder) string {
	switch b {
	case appData:
		return f.AppData
	case localAppData:
		return f.LocalAppData
	case documents:
		return f.Documents
	case programData:
		return f.ProgramData
	case publicDocuments:
		return f.PublicDocuments
	}
	return ""
}

// steamUser is the account name proton creates inside its prefixes.
const steamUser = "steamuser"

// PrefixFolders resolves base folders inside a wine or proton prefix. The
// prefix's own users/<name> directory stands in for the home directory:
// the current user's name when the prefix has one, steamuser otherwise.
func PrefixFolders(prefix string) Folders {
	driveC := filepath.Join(prefix, "drive_c")
	home := filepath.Join(driveC, "users", prefixUser(driveC))

	return Folders{
		AppData:         filepath.Join(home, "AppData", "Roaming"),
		LocalAppData:    filepath.Join(home, "AppData", "Local"),
		Documents:       filepath.Join(home, "Documents"),
		ProgramData:     filepath.Join(driveC, "ProgramData"),
		PublicDocuments: filepath.Join(driveC, "users", "Public", "Documents"),
	}
}

func prefixUser(driveC string) string {
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = filepath.Base(u.Username)
	}
	if name != "" {
		if info, err := os.Stat(filepath.Join(driveC, "users", name)); err == nil && info.IsDir() {
			return name
		}
	}
	return steamUser
}

// FoldersFor picks the folder set for game on this platform. On windows the
// native folders are always used. Elsewhere only games with a wine prefix
// can be located, and ok is false for the rest.
func FoldersFor(game achievement.Game) (folders Folders, ok bool) {
	return foldersFor(runtime.GOOS, game)
}

func foldersFor(goos string, game achievement.Game) (Folders, bool) {
	if goos == "windows" {
		return NativeFolders(), true
	}
	if game.WinePrefixPath == "" {
		return Folders{}, false
	}
	return PrefixFolders(game.WinePrefixPath), true
}
