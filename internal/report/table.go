// Package report renders summaries and convergence diagnostics for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"gohbm/internal/summary"
)

var tableFields = []string{"mean", "std", "2.5q", "25q", "50q", "75q", "97.5", "mc_err"}

const fieldWidth = 6

// StatsTable writes one fixed-width row per node, sorted by name.
func StatsTable(w io.Writer, stats map[string]summary.Stats) error {
	names := summary.Names(stats)
	if len(names) == 0 {
		return nil
	}

	nameWidth := 0
	for _, name := range names {
		nameWidth = max(nameWidth, len(name))
	}

	var b strings.Builder
	b.WriteString(center("name", nameWidth) + "  ")
	for _, f := range tableFields {
		b.WriteString(" " + center(f, fieldWidth))
	}
	b.WriteString("\n")

	for _, name := range names {
		s := stats[name]
		fmt.Fprintf(&b, "%-*s: %6.3f %6.3f %6.3f %6.3f %6.3f %6.3f %6.3f %6.3f\n",
			nameWidth, name, s.Mean, s.StdDev,
			s.Quantile(2.5), s.Quantile(25), s.Quantile(50), s.Quantile(75), s.Quantile(97.5),
			s.MCError)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// GroupStatsTable writes the table for group-level nodes only
func GroupStatsTable(w io.Writer, stats map[string]summary.Stats) error {
	return StatsTable(w, summary.GroupStats(stats))
}

func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
