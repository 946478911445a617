//go:build windows

package locator

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// NativeFolders resolves the current user's Windows folders.
func NativeFolders() Folders {
	f := Folders{
		AppData:      os.Getenv("APPDATA"),
		LocalAppData: os.Getenv("LOCALAPPDATA"),
		Documents:    xdg.UserDirs.Documents,
		ProgramData:  os.Getenv("PROGRAMDATA"),
	}
	if public := os.Getenv("PUBLIC"); public != "" {
		f.PublicDocuments = filepath.Join(public, "Documents")
	}
	if f.LocalAppData == "" {
		f.LocalAppData = xdg.DataHome
	}
	return f
}
