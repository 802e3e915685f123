package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/dynrouting/internal/history"
	"github.com/harrison/dynrouting/internal/models"
)

// HistoryTable writes a subject's training history, most recent session
// first. Each metric cell lists the per-block values in block order.
func HistoryTable(w io.Writer, subject string, entries []history.Entry, opts Options) {
	p := newPalette(opts.Color)

	fmt.Fprintln(w, p.header.Sprintf("Training history for %s", subject))
	if len(entries) == 0 {
		fmt.Fprintln(w, "  no sessions")
		return
	}

	fmt.Fprintln(w, p.header.Sprintf("%-8s  %-28s  %-16s  %-24s  %-24s", "Date", "Stage", "Hits", "d' same", "d' other go"))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		hits := make([]string, len(e.Blocks))
		same := make([]string, len(e.Blocks))
		other := make([]string, len(e.Blocks))
		for j, b := range e.Blocks {
			hits[j] = fmt.Sprintf("%d", b.HitCount)
			same[j] = models.FormatMetric(b.DprimeSameModal)
			other[j] = models.FormatMetric(b.DprimeOtherModalGo)
		}
		fmt.Fprintf(w, "%-8s  %-28s  %-16s  %-24s  %-24s\n",
			e.Date(), truncate(e.Stage, 28),
			strings.Join(hits, " "), strings.Join(same, " "), strings.Join(other, " "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
