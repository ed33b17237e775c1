package store

import (
	"context"
	"sync"

	"printwatch/internal/models"
)

// MemoryStore keeps the table in memory. Tests inject it to run the full
// pipeline without touching disk.
type MemoryStore struct {
	mu      sync.Mutex
	table   *models.Table
	results []models.RunResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{table: models.NewTable()}
}

// Load returns a deep copy of the stored table.
func (s *MemoryStore) Load(_ context.Context) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.table.Clone(), nil
}

// Save replaces the stored table and records the run result.
func (s *MemoryStore) Save(_ context.Context, table *models.Table, result *models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = table.Clone()
	if result != nil {
		s.results = append(s.results, *result)
	}

	return nil
}

// Results returns all saved run results, oldest first.
func (s *MemoryStore) Results() []models.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RunResult, len(s.results))
	copy(out, s.results)

	return out
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
