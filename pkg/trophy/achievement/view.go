package achievement

import "sort"

// Entry is a definition annotated with its unlock state, as shown to clients.
type Entry struct {
	Definition
	Unlocked   bool  `json:"unlocked"`
	UnlockTime int64 `json:"unlockTime,omitempty"`
}

// BuildView combines definitions with the unlocked set. Unlocked entries
// come first, most recent first; locked entries keep catalogue order.
// Unlocked names without a definition are omitted.
func BuildView(defs []Definition, unlocked []Unlocked) []Entry {
	times := make(map[string]int64, len(unlocked))
	for _, u := range unlocked {
		times[NormalizeName(u.Name)] = u.UnlockTime
	}

	view := make([]Entry, 0, len(defs))
	for _, d := range defs {
		t, ok := times[NormalizeName(d.Name)]
		view = append(view, Entry{Definition: d, Unlocked: ok, UnlockTime: t})
	}

	sort.SliceStable(view, func(i, j int) bool {
		if view[i].Unlocked != view[j].Unlocked {
			return view[i].Unlocked
		}
		if view[i].Unlocked {
			return view[i].UnlockTime > view[j].UnlockTime
		}
		return false
	})

	return view
}

// CountUnlocked returns how many entries in view are unlocked.
func CountUnlocked(view []Entry) int {
	n := 0
	for _, e := range view {
		if e.Unlocked {
			n++
		}
	}
	return n
}
