// Package output serializes the merged table into the artifacts the
// display client consumes: the CSV interchange file and a self-contained
// HTML page.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"printwatch/internal/config"
	"printwatch/internal/models"
	"printwatch/internal/store"
)

// Writer produces the interchange table and display page for a run.
// It always writes the full table, never just the delta, so the display
// client reflects the complete current state.
type Writer struct {
	tablePath    string
	pagePath     string
	createBackup bool
}

// NewWriter creates a writer from the output configuration.
func NewWriter(cfg *config.OutputConfig) *Writer {
	return &Writer{
		tablePath:    cfg.TablePath,
		pagePath:     cfg.PagePath,
		createBackup: cfg.CreateBackup,
	}
}

// Write serializes the table to both output formats.
func (w *Writer) Write(table *models.Table, result *models.RunResult) error {
	if err := w.writeTable(table); err != nil {
		return err
	}

	return w.writePage(table, result)
}

func (w *Writer) writeTable(table *models.Table) error {
	if err := w.prepare(w.tablePath); err != nil {
		return err
	}

	f, err := os.Create(w.tablePath)
	if err != nil {
		return fmt.Errorf("output: create %q: %w", w.tablePath, err)
	}

	if err := store.EncodeTable(f, table); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

func (w *Writer) writePage(table *models.Table, result *models.RunResult) error {
	if err := w.prepare(w.pagePath); err != nil {
		return err
	}

	f, err := os.Create(w.pagePath)
	if err != nil {
		return fmt.Errorf("output: create %q: %w", w.pagePath, err)
	}

	if err := RenderPage(f, table, result); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// prepare ensures the target directory exists and backs up an existing
// file when configured.
func (w *Writer) prepare(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output: create dir for %q: %w", path, err)
	}

	if w.createBackup {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+".bak"); err != nil {
				return fmt.Errorf("output: backup %q: %w", path, err)
			}
		}
	}

	return nil
}
