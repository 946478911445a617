// Package parser reads crack achievement files into unlock records.
//
// Parsing never fails loudly: every I/O or syntax problem is reported through
// Result.Status so the reconciler can treat it as "no data this cycle".
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Status describes the outcome of a parse.
type Status int

const (
	// StatusOK means at least one unlocked achievement was found.
	StatusOK Status = iota
	// StatusEmpty means the file was readable but nothing is unlocked.
	StatusEmpty
	// StatusFailed means the file could not be read or decoded.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of parsing one achievement file. Unlocks is empty
// unless Status is StatusOK; Err is set only for StatusFailed.
type Result struct {
	Unlocks []achievement.Unlocked
	Status  Status
	Err     error
}

// ErrUnsupportedFormat is reported for crack types with no known layout.
var ErrUnsupportedFormat = errors.New("unsupported achievement format")

type syntax int

const (
	syntaxINI syntax = iota
	syntaxJSON
	syntaxDirectory
)

type format struct {
	syntax syntax
	family family
}

var formats = map[achievement.Cracker]format{
	achievement.CrackerCodex:     {syntaxINI, achievedUnlockTime{}},
	achievement.CrackerRune:      {syntaxINI, achievedUnlockTime{}},
	achievement.CrackerRLD:       {syntaxINI, achievedUnlockTime{}},
	achievement.Cracker3DM:       {syntaxINI, achievedUnlockTime{}},
	achievement.CrackerRLE:       {syntaxINI, achievedUnlockTime{}},
	achievement.CrackerOnlineFix: {syntaxINI, achievedTimestamp{}},
	achievement.CrackerCreamAPI:  {syntaxINI, creamAPI{}},
	achievement.CrackerUserStats: {syntaxINI, userStats{}},
	achievement.CrackerSkidrow:   {syntaxINI, skidrow{}},
	achievement.CrackerGoldberg:  {syntaxJSON, earnedTime{}},
	achievement.CrackerGSE:       {syntaxJSON, earnedTime{}},
	achievement.CrackerEmpress:   {syntaxJSON, earnedTime{}},
	achievement.CrackerFLT:       {syntaxDirectory, directoryEntries{}},
}

// Parse reads file according to its crack format.
func Parse(file achievement.File) Result {
	log := logging.Get("parser")

	f, ok := formats[file.Type]
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrUnsupportedFormat, file.Type))
	}

	doc, err := read(f.syntax, file.Path)
	if err != nil {
		log.Debug("failed to parse achievement file", "file", file.Path, "type", file.Type, "error", err)
		return failed(err)
	}

	unlocks := f.family.extract(doc)
	if len(unlocks) == 0 {
		return Result{Status: StatusEmpty}
	}
	log.Debug("parsed achievement file", "file", file.Path, "type", file.Type, "unlocked", len(unlocks))
	return Result{Unlocks: unlocks, Status: StatusOK}
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

func read(s syntax, path string) (*document, error) {
	switch s {
	case syntaxDirectory:
		return readDirectory(path)
	case syntaxJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return decodeJSON(data)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return decodeINI(data), nil
	}
}

// decodeJSON accepts an object keyed by achievement name. Values that are
// not objects are ignored.
func decodeJSON(data []byte) (*document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := newDocument()
	for _, name := range names {
		var fields map[string]any
		if err := json.Unmarshal(raw[name], &fields); err != nil {
			continue
		}
		for k, v := range fields {
			doc.set(name, k, v)
		}
	}
	return doc, nil
}

// readDirectory lists a directory whose entry names are unlocked
// achievements. The entry modification time is the unlock time.
func readDirectory(path string) (*document, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	doc := newDocument()
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		doc.set(e.Name(), "time", info.ModTime().Unix())
	}
	return doc, nil
}
