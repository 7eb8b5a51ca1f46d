// Package report renders an import Report (internal/migrate.Report) as a
// padded console table: header/section printers plus a per-entry listing,
// colorized with gookit/color and column-aligned with mattn/go-runewidth.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/linkbridge/internal/migrate"
)

// Decode reads a migrate.Report from JSON, as produced by POST /import or
// saved to disk by a caller of it.
func Decode(data []byte) (*migrate.Report, error) {
	var r migrate.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Print renders report to w as a human-readable summary: a header, a
// counts table, the session id map, and any errors/warnings.
func Print(w io.Writer, r *migrate.Report) {
	printHeader(w, "Import Report")

	printSection(w, "Summary")
	rows := [][2]string{
		{"Total", fmt.Sprintf("%d", r.Total)},
		{"Successful", fmt.Sprintf("%d", r.Successful)},
		{"Failed", fmt.Sprintf("%d", r.Failed)},
		{"Auto-resolved", fmt.Sprintf("%d", r.AutoResolved)},
		{"Ambiguous", fmt.Sprintf("%d", r.Ambiguous)},
		{"Missing", fmt.Sprintf("%d", r.Missing)},
		{"Duration", r.Duration.String()},
	}
	printTable(w, rows)

	if len(r.SessionIDMap) > 0 {
		fmt.Fprintln(w)
		printSection(w, fmt.Sprintf("Session Id Map (%d entries)", len(r.SessionIDMap)))
		for original, mapped := range r.SessionIDMap {
			fmt.Fprintf(w, "  %s -> %s\n", original, mapped)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w)
		printSection(w, fmt.Sprintf("Errors (%d)", len(r.Errors)))
		for _, e := range r.Errors {
			fmt.Fprintln(w, color.Red.Sprintf("  [%d] %s: %s", e.Index, e.Kind, e.Message))
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		printSection(w, fmt.Sprintf("Warnings (%d)", len(r.Warnings)))
		for _, warn := range r.Warnings {
			fmt.Fprintln(w, color.Yellow.Sprintf("  %s", warn))
		}
	}

	fmt.Fprintln(w)
	if r.Failed == 0 {
		fmt.Fprintln(w, color.Green.Sprint("Result: all records imported successfully"))
	} else {
		fmt.Fprintln(w, color.Red.Sprintf("Result: %d of %d records failed", r.Failed, r.Total))
	}
}

func printHeader(w io.Writer, title string) {
	width := runewidth.StringWidth(title) + 4
	bar := strings.Repeat("=", width)
	fmt.Fprintln(w, bar)
	fmt.Fprintln(w, color.Bold.Sprintf("  %s", title))
	fmt.Fprintln(w, bar)
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "[%s]\n", title)
	fmt.Fprintln(w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printTable prints rows as a two-column, left-aligned table, padding the
// first column to the widest label's visual width so values line up even
// when labels contain wide runes.
func printTable(w io.Writer, rows [][2]string) {
	labelWidth := 0
	for _, row := range rows {
		if n := runewidth.StringWidth(row[0]); n > labelWidth {
			labelWidth = n
		}
	}
	for _, row := range rows {
		pad := labelWidth - runewidth.StringWidth(row[0])
		fmt.Fprintf(w, "  %s:%s %s\n", row[0], strings.Repeat(" ", pad), row[1])
	}
}
