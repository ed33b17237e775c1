package merger

import (
	"testing"
	"time"

	"printwatch/internal/models"
)

func record(site, link, title string) models.TenderRecord {
	l := link

	return models.TenderRecord{
		ID:         models.RecordID(site, link, title),
		Title:      title,
		Link:       &l,
		SourceSite: site,
	}
}

func stamp(day int) time.Time {
	return time.Date(2026, 3, day, 6, 0, 0, 0, time.UTC)
}

func TestMerge_InsertsNewRecords(t *testing.T) {
	table := models.NewTable()
	run1 := stamp(1)

	incoming := []models.TenderRecord{
		record("siteA", "https://a.example.com/t/1", "Broschüren"),
		record("siteA", "https://a.example.com/t/2", "Plakate"),
	}

	stats := Merge(table, incoming, run1)

	if stats.New != 2 || stats.Updated != 0 || stats.Untouched != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", table.Len())
	}

	for _, rec := range table.Records() {
		if !rec.FirstSeenRun.Equal(run1) || !rec.LastSeenRun.Equal(run1) {
			t.Errorf("record %s: expected both timestamps = run1, got first=%v last=%v",
				rec.ID, rec.FirstSeenRun, rec.LastSeenRun)
		}
	}
}

func TestMerge_UpdatesKeepFirstSeen(t *testing.T) {
	table := models.NewTable()
	run1, run2 := stamp(1), stamp(2)

	original := record("siteA", "https://a.example.com/t/1", "Broschüren")
	Merge(table, []models.TenderRecord{original}, run1)

	// Same identity, refreshed mutable fields.
	updated := original
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	updated.Date = &date

	stats := Merge(table, []models.TenderRecord{updated}, run2)

	if stats.New != 0 || stats.Updated != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	got := table.Get(original.ID)
	if got == nil {
		t.Fatal("record disappeared")
	}

	if !got.FirstSeenRun.Equal(run1) {
		t.Errorf("first_seen must never move, got %v", got.FirstSeenRun)
	}

	if !got.LastSeenRun.Equal(run2) {
		t.Errorf("last_seen must advance, got %v", got.LastSeenRun)
	}

	if got.Date == nil || !got.Date.Equal(date) {
		t.Errorf("mutable fields must refresh, got %v", got.Date)
	}
}

func TestMerge_AbsentRecordsUntouched(t *testing.T) {
	table := models.NewTable()
	run1, run2 := stamp(1), stamp(2)

	keep := record("siteA", "https://a.example.com/t/1", "Broschüren")
	gone := record("siteA", "https://a.example.com/t/2", "Plakate")

	Merge(table, []models.TenderRecord{keep, gone}, run1)

	stats := Merge(table, []models.TenderRecord{keep}, run2)

	if stats.Updated != 1 || stats.Untouched != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	stale := table.Get(gone.ID)
	if stale == nil {
		t.Fatal("absent record must not be removed")
	}

	if !stale.LastSeenRun.Equal(run1) {
		t.Errorf("absent record keeps its last_seen, got %v", stale.LastSeenRun)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	table := models.NewTable()
	run1, run2 := stamp(1), stamp(2)

	incoming := []models.TenderRecord{
		record("siteA", "https://a.example.com/t/1", "Broschüren"),
		record("siteB", "https://b.example.com/t/9", "Kataloge"),
	}

	Merge(table, incoming, run1)
	stats := Merge(table, incoming, run2)

	if stats.New != 0 {
		t.Errorf("re-merging identical records must not insert, stats %+v", stats)
	}

	if table.Len() != 2 {
		t.Errorf("expected 2 records, got %d", table.Len())
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	run1 := stamp(1)

	incoming := []models.TenderRecord{
		record("siteB", "https://b.example.com/t/9", "Kataloge"),
		record("siteA", "https://a.example.com/t/1", "Broschüren"),
		record("siteA", "https://a.example.com/t/2", "Plakate"),
	}

	reversed := []models.TenderRecord{incoming[2], incoming[1], incoming[0]}

	tableA := models.NewTable()
	tableB := models.NewTable()

	Merge(tableA, incoming, run1)
	Merge(tableB, reversed, run1)

	recsA := tableA.Records()
	recsB := tableB.Records()

	if len(recsA) != len(recsB) {
		t.Fatalf("tables differ in size: %d vs %d", len(recsA), len(recsB))
	}

	for i := range recsA {
		if recsA[i].ID != recsB[i].ID {
			t.Errorf("position %d: %s vs %s, table order depends on input order",
				i, recsA[i].ID, recsB[i].ID)
		}
	}
}

func TestMerge_DuplicateIDWithinRun(t *testing.T) {
	table := models.NewTable()
	run1 := stamp(1)

	rec := record("siteA", "https://a.example.com/t/1", "Broschüren")

	stats := Merge(table, []models.TenderRecord{rec, rec}, run1)

	if stats.New != 1 || stats.Updated != 0 {
		t.Errorf("duplicate within a run must count once, stats %+v", stats)
	}

	if table.Len() != 1 {
		t.Errorf("expected 1 record, got %d", table.Len())
	}
}

func TestMerge_NewListingInSecondRun(t *testing.T) {
	table := models.NewTable()
	run1, run2 := stamp(1), stamp(2)

	x := record("siteA", "https://a.example.com/t/1", "Druckauftrag X")
	y := record("siteA", "https://a.example.com/t/2", "Druckauftrag Y")

	Merge(table, []models.TenderRecord{x}, run1)
	stats := Merge(table, []models.TenderRecord{x, y}, run2)

	if stats.New != 1 || stats.Updated != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	gotX := table.Get(x.ID)
	if !gotX.FirstSeenRun.Equal(run1) || !gotX.LastSeenRun.Equal(run2) {
		t.Errorf("existing record stamps: first=%v last=%v", gotX.FirstSeenRun, gotX.LastSeenRun)
	}

	gotY := table.Get(y.ID)
	if !gotY.FirstSeenRun.Equal(run2) || !gotY.LastSeenRun.Equal(run2) {
		t.Errorf("new record stamps: first=%v last=%v", gotY.FirstSeenRun, gotY.LastSeenRun)
	}
}

func TestApplyRetention(t *testing.T) {
	table := models.NewTable()

	fresh := record("siteA", "https://a.example.com/t/1", "Broschüren")
	stale := record("siteA", "https://a.example.com/t/2", "Plakate")

	Merge(table, []models.TenderRecord{stale}, stamp(1))
	Merge(table, []models.TenderRecord{fresh}, stamp(20))

	purged := ApplyRetention(table, stamp(20), 7*24*time.Hour)

	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}

	if table.Get(stale.ID) != nil {
		t.Error("stale record must be purged")
	}

	if table.Get(fresh.ID) == nil {
		t.Error("fresh record must survive")
	}
}

func TestApplyRetention_Disabled(t *testing.T) {
	table := models.NewTable()

	old := record("siteA", "https://a.example.com/t/1", "Broschüren")
	Merge(table, []models.TenderRecord{old}, stamp(1))

	if purged := ApplyRetention(table, stamp(28), 0); purged != 0 {
		t.Errorf("zero maxAge must disable purging, purged %d", purged)
	}

	if table.Len() != 1 {
		t.Error("record must survive with retention disabled")
	}
}
