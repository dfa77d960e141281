package report

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// renderTXT produces the monospaced report with fixed-width bordered tables.
func renderTXT(d *data) string {
	var b strings.Builder

	b.WriteString("╔═══════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                    CRIVUS QUIZIQ REPORT                     ║\n")
	b.WriteString("╚═══════════════════════════════════════════════════════════════╝\n\n")
	b.WriteString("Tracker: " + d.Tracker.Name + "\n")
	b.WriteString("Tracker ID: " + d.Tracker.TrackerID + "\n")
	b.WriteString("Period: " + d.Period + "\n")
	b.WriteString("Granularity: " + string(d.Granularity) + "\n\n")

	if d.Overview != nil {
		writeSectionHeader(&b, "OVERVIEW")
		b.WriteString("Visits:          " + formatInt(d.Overview.Visits) + "\n")
		b.WriteString("Starts:          " + formatInt(d.Overview.Starts) + "\n")
		b.WriteString("Completes:       " + formatInt(d.Overview.Completes) + "\n")
		b.WriteString("Completion Rate: " + formatFloat(d.Overview.CompletionRate) + "%\n")
		b.WriteString("Leads:           " + formatInt(d.Overview.Leads) + "\n")
		b.WriteString("Lead Rate:       " + formatFloat(d.Overview.LeadRate) + "%\n\n")

		if len(d.Overview.Timeseries) > 0 {
			b.WriteString("Time Series:\n")
			rows := make([][]string, 0, len(d.Overview.Timeseries))
			for _, ts := range d.Overview.Timeseries {
				rows = append(rows, []string{
					ts.Date,
					formatInt(ts.Visits),
					formatInt(ts.Starts),
					formatInt(ts.Completes),
					formatInt(ts.Leads),
				})
			}
			b.WriteString(formatTable([]string{"Date", "Visits", "Starts", "Completes", "Leads"}, rows))
			b.WriteString("\n")
		}
	}

	if d.HasTopPages {
		writeSectionHeader(&b, "TOP PAGES")
		rows := make([][]string, 0, len(d.TopPages))
		for _, page := range d.TopPages {
			rows = append(rows, []string{page.Path, formatInt(page.Visits)})
		}
		b.WriteString(formatTable([]string{"Path", "Visits"}, rows))
		b.WriteString("\n")
	}

	if d.HasDropoff {
		writeSectionHeader(&b, "DROP-OFF")
		rows := make([][]string, 0, len(d.Dropoff))
		for _, bucket := range d.Dropoff {
			rows = append(rows, []string{
				bucket.Date,
				formatInt(bucket.Starts),
				formatInt(bucket.Completes),
				formatInt(bucket.Dropoff),
			})
		}
		b.WriteString(formatTable([]string{"Date", "Starts", "Completes", "Dropoff"}, rows))
		b.WriteString("\n")
	}

	if d.HasUTM {
		writeSectionHeader(&b, "UTM STATS")
		rows := make([][]string, 0, len(d.UTM))
		for _, row := range d.UTM {
			rows = append(rows, []string{
				orDash(row.Source),
				orDash(row.Medium),
				orDash(row.Campaign),
				formatInt(row.Visits),
				formatInt(row.Starts),
				formatInt(row.Completes),
			})
		}
		b.WriteString(formatTable([]string{"Source", "Medium", "Campaign", "Visits", "Starts", "Completes"}, rows))
		b.WriteString("\n")
	}

	return b.String()
}

func writeSectionHeader(b *strings.Builder, title string) {
	b.WriteString("┌─────────────────────────────────────────────────────────────┐\n")
	b.WriteString("│ " + title + strings.Repeat(" ", 60-len(title)) + "│\n")
	b.WriteString("└─────────────────────────────────────────────────────────────┘\n\n")
}

// formatTable renders a bordered table. Column widths are the max of the
// header and every cell string length in that column.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	separator := tableSeparator(widths)

	b.WriteString(separator)
	writeTableRow(&b, headers, widths)
	b.WriteString(separator)
	for _, row := range rows {
		writeTableRow(&b, row, widths)
	}
	b.WriteString(separator)

	return b.String()
}

func tableSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("─", width+2)
	}
	return "+" + strings.Join(parts, "+") + "+\n"
}

func writeTableRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteString("|")
	for i, cell := range cells {
		b.WriteString(" " + cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)) + " |")
	}
	b.WriteString("\n")
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// formatFloat prints the shortest decimal form, matching how the rates are
// shown in the dashboard (33.33, 50, 0).
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
