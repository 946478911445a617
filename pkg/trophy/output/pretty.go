package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// hiddenPlaceholder replaces the name of a locked hidden achievement.
const hiddenPlaceholder = "Hidden achievement"

// PrettyFormatter renders a styled terminal view using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatEntries(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	title := r.Game.Title
	if title == "" {
		title = r.Game.Key().String()
	}

	lines := []string{TitleStyle.Render(title)}

	progress := fmt.Sprintf("%d/%d", r.Unlocked(), r.Total())
	info := LabelStyle.Render("Unlocked:") + " " + ValueStyle.Render(progress)
	if r.Total() > 0 {
		pct := float64(r.Unlocked()) * 100 / float64(r.Total())
		info += " " + MutedStyle.Render(fmt.Sprintf("(%.0f%%)", pct))
	}
	if r.Game.RemoteID != "" {
		info += "  " + SuccessStyle.Render("synced")
	}
	lines = append(lines, info)

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatEntries(r *Result) string {
	if len(r.Entries) == 0 {
		return MutedStyle.Render("  No achievement definitions cached for this game") + "\n"
	}

	now := r.now()
	var sb strings.Builder
	for _, e := range r.Entries {
		if e.Unlocked {
			mark := UnlockedStyle.Render("★")
			when := MutedStyle.Render(humanize.RelTime(time.Unix(e.UnlockTime, 0), now, "ago", "from now"))
			fmt.Fprintf(&sb, "  %s %s  %s\n", mark, ValueStyle.Render(displayName(e.DisplayName, e.Name)), when)
			continue
		}

		name := displayName(e.DisplayName, e.Name)
		if e.Hidden {
			name = hiddenPlaceholder
		}
		fmt.Fprintf(&sb, "  %s %s\n", MutedStyle.Render("☆"), MutedStyle.Render(name))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		LabelStyle.Render("Game:") + " " + ValueStyle.Render(r.Game.Key().String()),
	}
	if r.DaemonUp {
		parts = append(parts, SuccessStyle.Render("daemon: up"))
	} else {
		parts = append(parts, MutedStyle.Render("daemon: off"))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func displayName(display, name string) string {
	if display != "" {
		return display
	}
	return name
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
