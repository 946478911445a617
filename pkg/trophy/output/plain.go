package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes a tab-aligned table for scripting. Unlock times are
// unix seconds; locked rows show "-".
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "STATUS\tUNLOCKED_AT\tNAME\tDISPLAY_NAME"); err != nil {
		return err
	}

	for _, e := range r.Entries {
		status, at := "locked", "-"
		if e.Unlocked {
			status, at = "unlocked", fmt.Sprintf("%d", e.UnlockTime)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status, at, e.Name, e.DisplayName); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
