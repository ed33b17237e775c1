package output

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"printwatch/internal/models"
)

//go:embed page.html
var pageTemplate string

// staleAfter is how long a record may go unobserved before the page marks
// it stale. Display hint only; retention is a separate policy.
const staleAfter = 7 * 24 * time.Hour

var pageTmpl = template.Must(template.New("page").Parse(pageTemplate))

// pageRow is one rendered table row.
type pageRow struct {
	ID         string
	Title      string
	Date       string
	Link       string
	Budget     string
	Address    string
	SourceSite string
	FirstSeen  string
	LastSeen   string
	Stale      bool
}

// pageData feeds the display template.
type pageData struct {
	GeneratedAt string
	RunStatus   string
	Rows        []pageRow
	Total       int
}

// RenderPage writes the self-contained display page: the full table with
// client-side sorting, filtering, and CSV export. No server-side logic is
// required to view it.
func RenderPage(w io.Writer, table *models.Table, result *models.RunResult) error {
	now := time.Now().UTC()

	data := pageData{
		GeneratedAt: now.Format("2006-01-02 15:04 UTC"),
		Total:       table.Len(),
	}

	if result != nil {
		data.RunStatus = string(result.Status)
		now = result.Timestamp
	}

	for _, rec := range table.Records() {
		row := pageRow{
			ID:         rec.ID,
			Title:      rec.Title,
			SourceSite: rec.SourceSite,
			FirstSeen:  rec.FirstSeenRun.Format("2006-01-02"),
			LastSeen:   rec.LastSeenRun.Format("2006-01-02"),
			Stale:      now.Sub(rec.LastSeenRun) > staleAfter,
		}

		if rec.Date != nil {
			row.Date = rec.Date.Format("02.01.2006")
		}

		if rec.Link != nil {
			row.Link = *rec.Link
		}

		if rec.Budget != nil {
			row.Budget = rec.Budget.String()
		}

		if rec.Address != nil {
			row.Address = *rec.Address
		}

		data.Rows = append(data.Rows, row)
	}

	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("output: render page: %w", err)
	}

	return nil
}
