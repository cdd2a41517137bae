// Package formatter renders plain-text tables for run reports and the
// digest's text fallback. Column widths use display width so accented and
// wide characters stay aligned in terminal logs.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"prensa/internal/digest"
)

const minColumnWidth = 3

// Stage is one counted step of a run.
type Stage struct {
	Name   string
	Detail string
	Count  int
}

// Table renders a header and rows as an aligned pipe-delimited table.
func Table(header []string, rows [][]string) string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	measure := func(row []string) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	measure(header)
	for _, row := range rows {
		measure(row)
	}

	var b strings.Builder

	writeRow := func(row []string) {
		b.WriteString("|")

		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}

			b.WriteString(" ")
			b.WriteString(cell)

			if pad := widths[i] - runewidth.StringWidth(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}

			b.WriteString(" |")
		}

		b.WriteString("\n")
	}

	writeRow(header)

	b.WriteString("|")
	for i := 0; i < colCount; i++ {
		b.WriteString(" ")
		b.WriteString(strings.Repeat("-", widths[i]))
		b.WriteString(" |")
	}
	b.WriteString("\n")

	for _, row := range rows {
		writeRow(row)
	}

	return b.String()
}

// RunReport renders the stage counters of one run as a table under a title.
func RunReport(title string, stages []Stage) string {
	rows := make([][]string, len(stages))
	for i, s := range stages {
		rows[i] = []string{s.Name, s.Detail, strconv.Itoa(s.Count)}
	}

	return title + "\n" + Table([]string{"stage", "detail", "count"}, rows)
}

// DigestText renders grouped digest entries as plain text, the format used
// when logging what the HTML body contains.
func DigestText(groups []digest.CountryGroup, label string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Noticias recolectadas (%s):\n\n", label)

	for _, g := range groups {
		fmt.Fprintf(&b, "=== %s ===\n", g.Country)

		for _, tg := range g.Tags {
			if tg.Tag != "" {
				fmt.Fprintf(&b, "[%s]\n", tg.Tag)
			}

			for _, a := range tg.Articles {
				fmt.Fprintf(&b, "- %s (%s)\n  %s\n", a.Title, a.Source, a.Link)
			}
		}

		b.WriteString("\n")
	}

	return b.String()
}
