// Package locator finds the files crack emulation layers write achievement
// state to.
//
// Every crack keeps one folder per game, named after the game's Steam app
// id, beneath a fixed base folder:
//
//	<base>/<objectId>/<segments...>
//
// Locate probes those paths for one game. LocateAll walks each base folder
// once and returns every game it finds, which is cheaper when the whole
// library is scanned at startup.
package locator

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// layout places a crack's game folders under base/dir, and its state at
// segments below each game folder.
type layout struct {
	base     baseFolder
	dir      []string
	segments []string
}

var layouts = map[achievement.Cracker][]layout{
	achievement.CrackerCodex: {
		{publicDocuments, []string{"Steam", "CODEX"}, []string{"achievements.ini"}},
		{appData, []string{"Steam", "CODEX"}, []string{"achievements.ini"}},
	},
	achievement.CrackerGoldberg: {
		{appData, []string{"Goldberg SteamEmu Saves"}, []string{"achievements.json"}},
	},
	achievement.CrackerGSE: {
		{appData, []string{"GSE Saves"}, []string{"achievements.json"}},
	},
	achievement.CrackerRune: {
		{publicDocuments, []string{"Steam", "RUNE"}, []string{"achievements.ini"}},
	},
	achievement.CrackerOnlineFix: {
		{publicDocuments, []string{"OnlineFix"}, []string{"Stats", "Achievements.ini"}},
	},
	achievement.CrackerRLD: {
		{programData, []string{"RLD!"}, []string{"achievements.ini"}},
		{programData, []string{"Steam", "Player"}, []string{"stats", "achievements.ini"}},
		{programData, []string{"Steam", "RLD!"}, []string{"stats", "achievements.ini"}},
		{programData, []string{"Steam", "dodi"}, []string{"stats", "achievements.ini"}},
	},
	achievement.CrackerEmpress: {
		{appData, []string{"EMPRESS"}, []string{"remote", "achievements.json"}},
	},
	achievement.CrackerCreamAPI: {
		{appData, []string{"CreamAPI"}, []string{"stats", "CreamAPI.Achievements.cfg"}},
	},
	achievement.Cracker3DM: {
		{appData, []string{"3DMGAME"}, []string{"Player", "stats", "achievements.ini"}},
	},
	achievement.CrackerRLE: {
		{appData, []string{"RLE"}, []string{"achievements.ini"}},
	},
	achievement.CrackerSkidrow: {
		{documents, []string{"SKIDROW"}, []string{"SteamEmu", "UserStats", "achiev.ini"}},
		{documents, []string{"Player"}, []string{"SteamEmu", "UserStats", "achiev.ini"}},
		{localAppData, []string{"SKIDROW"}, []string{"SteamEmu", "UserStats", "achiev.ini"}},
	},
	achievement.CrackerFLT: {
		{appData, []string{"FLT"}, []string{"stats"}},
	},
}

// beside lists state files written next to the game executable.
var beside = []struct {
	typ      achievement.Cracker
	segments []string
}{
	{achievement.CrackerUserStats, []string{"SteamData", "user_stats.ini"}},
	{achievement.Cracker3DM, []string{"3DMGAME", "Player", "stats", "achievements.ini"}},
}

// DefaultAliases lists titles that ship under several catalogue ids.
var DefaultAliases = map[string][]string{
	"205100": {"205100", "217980", "31292"},
}

// Locator resolves candidate achievement files.
type Locator struct {
	aliases map[string][]string
	owners  map[string][]string
}

// New returns a locator using the given alias table. A nil table uses
// DefaultAliases.
func New(aliases map[string][]string) *Locator {
	if aliases == nil {
		aliases = DefaultAliases
	}
	owners := make(map[string][]string)
	for id, alts := range aliases {
		for _, alt := range alts {
			owners[alt] = append(owners[alt], id)
		}
	}
	return &Locator{aliases: aliases, owners: owners}
}

func (l *Locator) ids(objectID string) []string {
	if alts, ok := l.aliases[objectID]; ok {
		return alts
	}
	return []string{objectID}
}

// Locate returns the existing achievement files for one game.
func (l *Locator) Locate(game achievement.Game, folders Folders) []achievement.File {
	var files []achievement.File

	for _, typ := range achievement.AllCrackers {
		for _, lay := range layouts[typ] {
			root := folders.get(lay.base)
			if root == "" {
				continue
			}
			for _, id := range l.ids(game.ObjectID) {
				path := joinAll(root, lay.dir, []string{id}, lay.segments)
				if exists(path, typ) {
					files = append(files, achievement.File{Type: typ, Path: path})
				}
			}
		}
	}

	files = append(files, Beside(game)...)
	return dedupe(files)
}

// Beside returns the existing state files next to the game executable.
func Beside(game achievement.Game) []achievement.File {
	if game.ExecutablePath == "" {
		return nil
	}

	var files []achievement.File
	dir := filepath.Dir(game.ExecutablePath)
	for _, b := range beside {
		path := joinAll(dir, b.segments)
		if exists(path, b.typ) {
			files = append(files, achievement.File{Type: b.typ, Path: path})
		}
	}
	return files
}

// LocateAll walks every base folder once and returns the existing
// achievement files keyed by object id. Folders named after an alias are
// reported under the owning id as well.
func (l *Locator) LocateAll(folders Folders) map[string][]achievement.File {
	log := logging.Get("locator")

	var mu sync.Mutex
	found := make(map[string][]achievement.File)
	add := func(objectID string, f achievement.File) {
		mu.Lock()
		defer mu.Unlock()
		found[objectID] = append(found[objectID], f)
	}

	for _, typ := range achievement.AllCrackers {
		for _, lay := range layouts[typ] {
			base := folders.get(lay.base)
			if base == "" {
				continue
			}
			root := joinAll(base, lay.dir)
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				continue
			}

			if err := l.walkGames(root, typ, lay.segments, add); err != nil {
				log.Debug("failed to walk crack folder", "root", root, "error", err)
			}
		}
	}

	for id, files := range found {
		sortFiles(files)
		found[id] = dedupe(files)
	}
	return found
}

// walkGames visits the immediate subdirectories of root.
func (l *Locator) walkGames(root string, typ achievement.Cracker, segments []string, add func(string, achievement.File)) error {
	conf := fastwalk.Config{Follow: false}

	return fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries contribute nothing
		}
		if path == root {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		candidate := joinAll(path, segments)
		if exists(candidate, typ) {
			objectID := d.Name()
			f := achievement.File{Type: typ, Path: candidate}
			add(objectID, f)
			for _, owner := range l.owners[objectID] {
				if owner != objectID {
					add(owner, f)
				}
			}
		}
		return fastwalk.SkipDir
	})
}

func joinAll(root string, parts ...[]string) string {
	elems := []string{root}
	for _, p := range parts {
		elems = append(elems, p...)
	}
	return filepath.Join(elems...)
}

func exists(path string, typ achievement.Cracker) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir() == typ.IsDirectory()
}

func dedupe(files []achievement.File) []achievement.File {
	seen := make(map[achievement.File]struct{}, len(files))
	out := files[:0]
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// sortFiles orders files by probe order, then path, since the walk
// delivers them concurrently.
func sortFiles(files []achievement.File) {
	rank := make(map[achievement.Cracker]int, len(achievement.AllCrackers))
	for i, c := range achievement.AllCrackers {
		rank[c] = i
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Type != files[j].Type {
			return rank[files[i].Type] < rank[files[j].Type]
		}
		return files[i].Path < files[j].Path
	})
}
