package output

import (
	"bytes"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// structured is the document written by the json and yaml formatters.
type structured struct {
	Game         structuredGame    `json:"game" yaml:"game"`
	Unlocked     int               `json:"unlocked" yaml:"unlocked"`
	Total        int               `json:"total" yaml:"total"`
	Achievements []structuredEntry `json:"achievements" yaml:"achievements"`
}

type structuredGame struct {
	Shop     string `json:"shop" yaml:"shop"`
	ObjectID string `json:"object_id" yaml:"object_id"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

type structuredEntry struct {
	Name        string     `json:"name" yaml:"name"`
	DisplayName string     `json:"display_name" yaml:"display_name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Hidden      bool       `json:"hidden" yaml:"hidden"`
	Unlocked    bool       `json:"unlocked" yaml:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty" yaml:"unlocked_at,omitempty"`
}

func buildStructured(r *Result) structured {
	doc := structured{
		Game: structuredGame{
			Shop:     r.Game.Shop,
			ObjectID: r.Game.ObjectID,
			Title:    r.Game.Title,
			RemoteID: r.Game.RemoteID,
		},
		Unlocked:     r.Unlocked(),
		Total:        r.Total(),
		Achievements: make([]structuredEntry, 0, len(r.Entries)),
	}

	for _, e := range r.Entries {
		entry := structuredEntry{
			Name:        e.Name,
			DisplayName: e.DisplayName,
			Description: e.Description,
			Hidden:      e.Hidden,
			Unlocked:    e.Unlocked,
		}
		// Unlocks without a recorded time have no timestamp to show.
		if e.Unlocked && e.UnlockTime > 0 {
			at := time.Unix(e.UnlockTime, 0).UTC()
			entry.UnlockedAt = &at
		}
		doc.Achievements = append(doc.Achievements, entry)
	}
	return doc
}

// JSONFormatter writes the view as one indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildStructured(r))
}

// YAMLFormatter writes the JSON document's fields as YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildStructured(r)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func init() {
	Register("json", func() Formatter { return JSONFormatter{} })
	Register("yaml", func() Formatter { return YAMLFormatter{} })
}
