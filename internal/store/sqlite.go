package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"printwatch/internal/models"
)

// SQLiteStore persists the table and a run audit log in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tenders (
			position       INTEGER PRIMARY KEY AUTOINCREMENT,
			id             TEXT UNIQUE NOT NULL,
			title          TEXT NOT NULL,
			date           TEXT,
			link           TEXT,
			budget         TEXT,
			currency       TEXT,
			address        TEXT,
			source_site    TEXT NOT NULL,
			first_seen_run TEXT NOT NULL,
			last_seen_run  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			started_at      TEXT NOT NULL,
			status          TEXT NOT NULL,
			sites_attempted INTEGER NOT NULL,
			sites_failed    INTEGER NOT NULL,
			records_new     INTEGER NOT NULL,
			records_updated INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}

	return nil
}

// Load reads all records in first-seen order.
func (s *SQLiteStore) Load(ctx context.Context) (*models.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, date, link, budget, currency, address,
		       source_site, first_seen_run, last_seen_run
		FROM tenders ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select tenders: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	table := models.NewTable()

	for rows.Next() {
		var (
			rec                 models.TenderRecord
			date, link, bud     sql.NullString
			cur, addr           sql.NullString
			firstSeen, lastSeen string
		)

		if err := rows.Scan(&rec.ID, &rec.Title, &date, &link, &bud, &cur, &addr,
			&rec.SourceSite, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("sqlite: scan tender: %w", err)
		}

		if date.Valid && date.String != "" {
			d, err := time.Parse(dateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: tender %s date: %w", rec.ID, err)
			}

			rec.Date = &d
		}

		if link.Valid && link.String != "" {
			l := link.String
			rec.Link = &l
		}

		if bud.Valid && bud.String != "" {
			amount, err := decimal.NewFromString(bud.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: tender %s budget: %w", rec.ID, err)
			}

			rec.Budget = &models.Money{Amount: amount, Currency: cur.String}
		}

		if addr.Valid && addr.String != "" {
			a := addr.String
			rec.Address = &a
		}

		if rec.FirstSeenRun, err = time.Parse(seenLayout, firstSeen); err != nil {
			return nil, fmt.Errorf("sqlite: tender %s first_seen_run: %w", rec.ID, err)
		}

		if rec.LastSeenRun, err = time.Parse(seenLayout, lastSeen); err != nil {
			return nil, fmt.Errorf("sqlite: tender %s last_seen_run: %w", rec.ID, err)
		}

		table.Put(&rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate tenders: %w", err)
	}

	return table, nil
}

// Save upserts every record by id, removes records no longer in the table
// (retention purges), and appends the run to the audit log. Everything runs
// in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, table *models.Table, result *models.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO tenders (id, title, date, link, budget, currency, address,
		                     source_site, first_seen_run, last_seen_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			date = excluded.date,
			link = excluded.link,
			budget = excluded.budget,
			currency = excluded.currency,
			address = excluded.address,
			last_seen_run = excluded.last_seen_run
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}

	defer func() {
		_ = upsert.Close()
	}()

	keep := make([]any, 0, table.Len())

	for _, rec := range table.Records() {
		row := encodeRecord(rec)
		keep = append(keep, rec.ID)

		if _, err := upsert.ExecContext(ctx,
			row[0], row[1], row[2], row[3], row[4],
			row[5], row[6], row[7], row[8], row[9],
		); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", rec.ID, err)
		}
	}

	if err := deleteAbsent(ctx, tx, keep); err != nil {
		return err
	}

	if result != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, started_at, status, sites_attempted, sites_failed,
			                  records_new, records_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, result.RunID, result.Timestamp.Format(seenLayout), string(result.Status),
			len(result.Sites), result.FailedSites(), result.Stats.New, result.Stats.Updated,
		); err != nil {
			return fmt.Errorf("sqlite: insert run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	return nil
}

// deleteAbsent removes rows whose id is no longer in the in-memory table.
func deleteAbsent(ctx context.Context, tx *sql.Tx, keep []any) error {
	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tenders`); err != nil {
			return fmt.Errorf("sqlite: clear tenders: %w", err)
		}

		return nil
	}

	placeholders := "?"
	for i := 1; i < len(keep); i++ {
		placeholders += ",?"
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tenders WHERE id NOT IN (`+placeholders+`)`, keep...,
	); err != nil {
		return fmt.Errorf("sqlite: delete absent: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
