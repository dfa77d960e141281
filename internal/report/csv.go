package report

import (
	"strings"
	"time"

	"github.com/crivus/quiziq/internal/store/schema"
)

const csvTimeLayout = "2006-01-02T15:04:05.000Z"

// LeadsCSV renders leads as CSV. The header row is plain; every data field is
// wrapped in quotes with internal quotes doubled, so free-text values cannot
// break the row structure.
func LeadsCSV(leads []*schema.Lead) string {
	var b strings.Builder
	b.WriteString("Email,Name,Phone,Timestamp,Created At")

	for _, lead := range leads {
		row := []string{
			orEmpty(lead.Email),
			orEmpty(lead.Name),
			orEmpty(lead.Phone),
			time.UnixMilli(lead.TS).UTC().Format(csvTimeLayout),
			lead.CreatedAt.UTC().Format(csvTimeLayout),
		}
		b.WriteString("\n")
		for i, cell := range row {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`"` + strings.ReplaceAll(cell, `"`, `""`) + `"`)
		}
	}

	return b.String()
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
