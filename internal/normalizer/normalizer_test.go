package normalizer

import (
	"testing"

	"printwatch/internal/models"
)

func rawListing(fields map[string]string) *models.RawListing {
	return &models.RawListing{
		SourceSite: "siteA",
		PageURL:    "https://example.com/tenders",
		Fields:     fields,
	}
}

func TestNormalize_FullListing(t *testing.T) {
	n := New("EUR")

	record, unparseable := n.Normalize(rawListing(map[string]string{
		"title":   "  Druck  von\nBroschüren ",
		"link":    "/ausschreibung/123",
		"date":    "Frist: 15.03.2026",
		"budget":  "12.500,00 €",
		"address": " Musterstraße 1,  Berlin ",
	}))

	if unparseable != 0 {
		t.Errorf("expected 0 unparseable fields, got %d", unparseable)
	}

	if record.Title != "Druck von Broschüren" {
		t.Errorf("title not cleaned: %q", record.Title)
	}

	if record.Link == nil || *record.Link != "https://example.com/ausschreibung/123" {
		t.Errorf("unexpected link: %v", record.Link)
	}

	if record.Date == nil || record.Date.Format("2006-01-02") != "2026-03-15" {
		t.Errorf("unexpected date: %v", record.Date)
	}

	if record.Budget == nil || record.Budget.String() != "12500 EUR" {
		t.Errorf("unexpected budget: %v", record.Budget)
	}

	if record.Address == nil || *record.Address != "Musterstraße 1, Berlin" {
		t.Errorf("unexpected address: %v", record.Address)
	}

	if record.SourceSite != "siteA" {
		t.Errorf("unexpected source site: %q", record.SourceSite)
	}

	if record.ID == "" {
		t.Error("record must get an id")
	}
}

func TestNormalize_UnparseableFieldsAreNil(t *testing.T) {
	n := New("EUR")

	record, unparseable := n.Normalize(rawListing(map[string]string{
		"title":  "Plakatdruck",
		"link":   "/t/1",
		"date":   "demnächst",
		"budget": "auf Anfrage",
	}))

	if unparseable != 2 {
		t.Errorf("expected 2 unparseable fields, got %d", unparseable)
	}

	if record.Date != nil {
		t.Errorf("expected nil date, got %v", record.Date)
	}

	if record.Budget != nil {
		t.Errorf("expected nil budget, got %v", record.Budget)
	}

	// The record itself survives with the fields it has.
	if record.Title != "Plakatdruck" || record.Link == nil {
		t.Error("record must keep parseable fields")
	}
}

func TestNormalize_StableID(t *testing.T) {
	n := New("EUR")

	fields := map[string]string{
		"title": "Flyerdruck",
		"link":  "/t/42",
	}

	first, _ := n.Normalize(rawListing(fields))
	second, _ := n.Normalize(rawListing(fields))

	if first.ID != second.ID {
		t.Errorf("same listing must get same id: %s vs %s", first.ID, second.ID)
	}

	// A changed date must not change identity.
	withDate, _ := n.Normalize(rawListing(map[string]string{
		"title": "Flyerdruck",
		"link":  "/t/42",
		"date":  "01.05.2026",
	}))

	if withDate.ID != first.ID {
		t.Error("mutable fields must not affect identity")
	}
}

func TestNormalize_IDDiffersAcrossSites(t *testing.T) {
	n := New("EUR")

	fields := map[string]string{"title": "Flyerdruck", "link": "/t/42"}

	a, _ := n.Normalize(&models.RawListing{SourceSite: "siteA", PageURL: "https://a.example.com/", Fields: fields})
	b, _ := n.Normalize(&models.RawListing{SourceSite: "siteB", PageURL: "https://a.example.com/", Fields: fields})

	if a.ID == b.ID {
		t.Error("records from different sites must never collide")
	}
}

func TestRecordID_TitleFallback(t *testing.T) {
	withLink := models.RecordID("siteA", "https://example.com/t/1", "Titel")
	titleOnly := models.RecordID("siteA", "", "Titel")

	if withLink == titleOnly {
		t.Error("link-anchored and title-anchored ids must differ")
	}

	if titleOnly != models.RecordID("siteA", "", "Titel") {
		t.Error("title-anchored id must be deterministic")
	}

	if len(withLink) != 12 {
		t.Errorf("expected 12 hex chars, got %d", len(withLink))
	}
}
