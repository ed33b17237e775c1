package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"printwatch/internal/models"
)

// TableColumns is the stable column order of the interchange table. The
// display client depends on this order; never reorder it.
var TableColumns = []string{
	"id", "title", "date", "link", "budget", "currency",
	"address", "source_site", "first_seen_run", "last_seen_run",
}

// Serialization formats for table cells.
const (
	dateLayout = "2006-01-02"
	seenLayout = time.RFC3339
)

// CSVStore persists the table as the CSV interchange file itself.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store backed by the CSV file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads the persisted table. A missing file is an empty table, not an
// error: the first run starts from nothing.
func (s *CSVStore) Load(_ context.Context) (*models.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewTable(), nil
		}

		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	return DecodeTable(f)
}

// Save writes the full table atomically (temp file + rename).
func (s *CSVStore) Save(_ context.Context, table *models.Table, _ *models.RunResult) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp := s.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create %q: %w", tmp, err)
	}

	if err := EncodeTable(f, table); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("csv: rename %q: %w", tmp, err)
	}

	return nil
}

// Close is a no-op for the CSV backend.
func (s *CSVStore) Close() error {
	return nil
}

// EncodeTable writes the table in the interchange format. Currency amounts
// and dates round-trip without precision loss.
func EncodeTable(w io.Writer, table *models.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(TableColumns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, rec := range table.Records() {
		if err := cw.Write(encodeRecord(rec)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// ErrBadHeader indicates the table file does not start with the expected
// column header, e.g. after a hand edit.
var ErrBadHeader = errors.New("table header does not match expected columns")

// DecodeTable reads a table from the interchange format.
func DecodeTable(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TableColumns)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}

	table := models.NewTable()

	for i, row := range rows {
		if i == 0 {
			for col := range TableColumns {
				if row[col] != TableColumns[col] {
					return nil, fmt.Errorf("%w: column %d is %q, want %q",
						ErrBadHeader, col, row[col], TableColumns[col])
				}
			}

			continue
		}

		rec, err := decodeRecord(row)
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", i, err)
		}

		table.Put(rec)
	}

	return table, nil
}

func encodeRecord(rec *models.TenderRecord) []string {
	date, link, amount, currency, address := "", "", "", "", ""

	if rec.Date != nil {
		date = rec.Date.Format(dateLayout)
	}

	if rec.Link != nil {
		link = *rec.Link
	}

	if rec.Budget != nil {
		amount = rec.Budget.Amount.String()
		currency = rec.Budget.Currency
	}

	if rec.Address != nil {
		address = *rec.Address
	}

	return []string{
		rec.ID,
		rec.Title,
		date,
		link,
		amount,
		currency,
		address,
		rec.SourceSite,
		rec.FirstSeenRun.Format(seenLayout),
		rec.LastSeenRun.Format(seenLayout),
	}
}

func decodeRecord(row []string) (*models.TenderRecord, error) {
	rec := &models.TenderRecord{
		ID:         row[0],
		Title:      row[1],
		SourceSite: row[7],
	}

	if row[2] != "" {
		date, err := time.Parse(dateLayout, row[2])
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}

		rec.Date = &date
	}

	if row[3] != "" {
		link := row[3]
		rec.Link = &link
	}

	if row[4] != "" {
		amount, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, fmt.Errorf("budget: %w", err)
		}

		rec.Budget = &models.Money{Amount: amount, Currency: row[5]}
	}

	if row[6] != "" {
		address := row[6]
		rec.Address = &address
	}

	firstSeen, err := time.Parse(seenLayout, row[8])
	if err != nil {
		return nil, fmt.Errorf("first_seen_run: %w", err)
	}

	lastSeen, err := time.Parse(seenLayout, row[9])
	if err != nil {
		return nil, fmt.Errorf("last_seen_run: %w", err)
	}

	rec.FirstSeenRun = firstSeen
	rec.LastSeenRun = lastSeen

	return rec, nil
}
