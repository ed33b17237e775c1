package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printwatch/internal/config"
	"printwatch/internal/models"
)

func displayTable() *models.Table {
	table := models.NewTable()

	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	link := "https://example.com/t/1"
	recent := time.Now().UTC()

	table.Put(&models.TenderRecord{
		ID:           "abc123",
		Title:        "Broschürendruck <Sonderformat>",
		Date:         &date,
		Link:         &link,
		Budget:       &models.Money{Amount: decimal.RequireFromString("12500"), Currency: "EUR"},
		SourceSite:   "siteA",
		FirstSeenRun: recent,
		LastSeenRun:  recent,
	})

	old := recent.Add(-30 * 24 * time.Hour)

	table.Put(&models.TenderRecord{
		ID:           "def456",
		Title:        "Altes Plakat",
		SourceSite:   "siteB",
		FirstSeenRun: old,
		LastSeenRun:  old,
	})

	return table
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer

	if err := RenderPage(&buf, displayTable(), nil); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}

	html := buf.String()

	if !strings.Contains(html, "12500 EUR") {
		t.Error("budget missing from page")
	}

	if !strings.Contains(html, "01.04.2026") {
		t.Error("date not rendered in German format")
	}

	if !strings.Contains(html, "https://example.com/t/1") {
		t.Error("link missing from page")
	}

	// Template escaping must neutralize markup in titles.
	if strings.Contains(html, "<Sonderformat>") {
		t.Error("title not HTML-escaped")
	}

	if !strings.Contains(html, "&lt;Sonderformat&gt;") {
		t.Error("escaped title missing")
	}
}

func TestRenderPage_MarksStaleRows(t *testing.T) {
	var buf bytes.Buffer

	if err := RenderPage(&buf, displayTable(), nil); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}

	html := buf.String()

	if !strings.Contains(html, `<tr class="stale" data-id="def456"`) {
		t.Error("record unseen for 30 days must be marked stale")
	}

	if strings.Contains(html, `<tr class="stale" data-id="abc123"`) {
		t.Error("fresh record must not be marked stale")
	}
}

func TestRenderPage_SelfContained(t *testing.T) {
	var buf bytes.Buffer

	if err := RenderPage(&buf, displayTable(), nil); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}

	html := buf.String()

	// The page must work from file:// with no external resources.
	for _, forbidden := range []string{"src=\"http", "href=\"http://cdn", "@import"} {
		if strings.Contains(html, forbidden) {
			t.Errorf("page references external resource: %s", forbidden)
		}
	}

	if !strings.Contains(html, "<script>") {
		t.Error("expected inline script for sorting and filtering")
	}
}

func TestRenderPage_EmptyTable(t *testing.T) {
	var buf bytes.Buffer

	if err := RenderPage(&buf, models.NewTable(), nil); err != nil {
		t.Fatalf("RenderPage failed on empty table: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("empty table must still produce a page")
	}
}

func TestWriter_WritesBothArtifacts(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.OutputConfig{
		TablePath: filepath.Join(dir, "out", "tenders.csv"),
		PagePath:  filepath.Join(dir, "out", "tenders.html"),
	}

	w := NewWriter(cfg)

	result := &models.RunResult{
		RunID:     "run-1",
		Timestamp: time.Now().UTC(),
		Status:    models.RunCompleted,
	}

	if err := w.Write(displayTable(), result); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	csvData, err := os.ReadFile(cfg.TablePath)
	if err != nil {
		t.Fatalf("table not written: %v", err)
	}

	if !strings.HasPrefix(string(csvData), "id,title,date,link") {
		t.Errorf("unexpected table header: %q", strings.SplitN(string(csvData), "\n", 2)[0])
	}

	if _, err := os.Stat(cfg.PagePath); err != nil {
		t.Errorf("page not written: %v", err)
	}
}

func TestWriter_Backup(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.OutputConfig{
		TablePath:    filepath.Join(dir, "tenders.csv"),
		PagePath:     filepath.Join(dir, "tenders.html"),
		CreateBackup: true,
	}

	w := NewWriter(cfg)

	if err := w.Write(displayTable(), nil); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}

	if err := w.Write(displayTable(), nil); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	if _, err := os.Stat(cfg.TablePath + ".bak"); err != nil {
		t.Errorf("backup not created: %v", err)
	}
}

func TestRenderSummary(t *testing.T) {
	result := &models.RunResult{
		Status: models.RunPartialFailure,
		Sites: []models.SiteOutcome{
			{SiteID: "siteA", Status: models.SiteOK, ListingsFound: 12, ListingsDropped: 1},
			{SiteID: "siteB", Status: models.SiteFetchFailed, Error: "fetch https://b.example.com: http status 503"},
		},
		Stats: models.MergeStats{New: 3, Updated: 9, Untouched: 4},
	}

	summary := RenderSummary(result)

	for _, want := range []string{"SITE", "siteA", "siteB", "fetch_failed", "New: 3", "Updated: 9"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	lines := strings.Split(summary, "\n")
	if len(lines) < 4 {
		t.Fatalf("summary too short:\n%s", summary)
	}

	// Status column starts at the same offset in every data row.
	headerIdx := strings.Index(lines[0], "STATUS")
	if headerIdx < 0 {
		t.Fatal("header missing STATUS column")
	}

	if !strings.HasPrefix(lines[1][headerIdx:], "ok") {
		t.Errorf("columns not aligned:\n%s", summary)
	}
}
