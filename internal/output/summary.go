package output

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"printwatch/internal/models"
	"printwatch/pkg/utils"
)

// maxErrorWidth caps the error column in the console summary.
const maxErrorWidth = 48

// RenderSummary formats the per-site outcomes of a run as an aligned text
// table for the console report.
func RenderSummary(result *models.RunResult) string {
	rows := [][]string{
		{"SITE", "STATUS", "FOUND", "DROPPED", "FILTERED", "ERROR"},
	}

	for _, s := range result.Sites {
		rows = append(rows, []string{
			s.SiteID,
			string(s.Status),
			fmt.Sprintf("%d", s.ListingsFound),
			fmt.Sprintf("%d", s.ListingsDropped),
			fmt.Sprintf("%d", s.ListingsFiltered),
			utils.Truncate(s.Error, maxErrorWidth),
		})
	}

	widths := make([]int, len(rows[0]))

	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder

	for _, row := range rows {
		for i, cell := range row {
			sb.WriteString(cell)

			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
			}
		}

		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf(
		"\nStatus: %s  New: %d  Updated: %d  Untouched: %d",
		result.Status, result.Stats.New, result.Stats.Updated, result.Stats.Untouched,
	))

	if result.Stats.Purged > 0 {
		sb.WriteString(fmt.Sprintf("  Purged: %d", result.Stats.Purged))
	}

	sb.WriteString("\n")

	return sb.String()
}
