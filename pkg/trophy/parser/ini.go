package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// document is a decoded achievement file: named sections of fields, in the
// order they first appeared.
type document struct {
	order    []string
	sections map[string]map[string]any
}

func newDocument() *document {
	return &document{sections: make(map[string]map[string]any)}
}

func (d *document) set(section, key string, value any) {
	fields, ok := d.sections[section]
	if !ok {
		fields = make(map[string]any)
		d.sections[section] = fields
		d.order = append(d.order, section)
	}
	fields[key] = value
}

// decodeINI parses "[section]" headers and "key=value" lines. Values may
// contain further '=' characters. Lines outside a section, comments and
// anything unrecognised are skipped, so a half-written file yields whatever
// complete sections precede the damage.
func decodeINI(data []byte) *document {
	doc := newDocument()
	section := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\ufeff")
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}

		if line[0] == '[' {
			if end := strings.IndexByte(line, ']'); end > 1 {
				section = strings.TrimSpace(line[1:end])
			}
			continue
		}

		if section == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = unquote(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		doc.set(section, key, coerce(unquote(strings.TrimSpace(value))))
	}

	return doc
}

// coerce turns numeric strings into int64 or float64.
func coerce(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseInlineTable decodes "{unlocked = true, time = 1700000000}".
func parseInlineTable(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}

	fields := make(map[string]any)
	for _, pair := range strings.Split(s[1:len(s)-1], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = unquote(strings.TrimSpace(key))
		fields[key] = coerce(unquote(strings.TrimSpace(value)))
	}
	return fields, true
}
