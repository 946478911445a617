package achievement

import "fmt"

// Cracker identifies the emulation layer that wrote an achievement file.
type Cracker string

// Supported crack formats.
const (
	CrackerCodex     Cracker = "codex"
	CrackerRune      Cracker = "rune"
	CrackerOnlineFix Cracker = "onlinefix"
	CrackerGoldberg  Cracker = "goldberg"
	CrackerGSE       Cracker = "gse"
	CrackerRLD       Cracker = "rld"
	CrackerEmpress   Cracker = "empress"
	CrackerCreamAPI  Cracker = "creamapi"
	Cracker3DM       Cracker = "3dm"
	CrackerRLE       Cracker = "rle"
	CrackerSkidrow   Cracker = "skidrow"
	CrackerFLT       Cracker = "flt"
	CrackerUserStats Cracker = "userstats"
)

// AllCrackers lists every supported format in locator probe order.
var AllCrackers = []Cracker{
	CrackerCodex,
	CrackerGoldberg,
	CrackerGSE,
	CrackerRune,
	CrackerOnlineFix,
	CrackerRLD,
	CrackerEmpress,
	CrackerCreamAPI,
	Cracker3DM,
	CrackerRLE,
	CrackerSkidrow,
	CrackerFLT,
	CrackerUserStats,
}

// IsDirectory reports whether the format stores state as a directory
// listing rather than a single file.
func (c Cracker) IsDirectory() bool {
	return c == CrackerFLT
}

// File is a candidate achievement file produced by the locator.
type File struct {
	Type Cracker `json:"type"`
	Path string  `json:"filePath"`
}

// String implements fmt.Stringer.
func (f File) String() string {
	return fmt.Sprintf("%s:%s", f.Type, f.Path)
}
