package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunLock_AcquireRelease(t *testing.T) {
	lock := NewRunLock(filepath.Join(t.TempDir(), "tenders.csv"))

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Reacquirable after release.
	if err := lock.Acquire(); err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}

	_ = lock.Release()
}

func TestRunLock_ConcurrentRunRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")

	first := NewRunLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	defer func() {
		_ = first.Release()
	}()

	second := NewRunLock(path)

	err := second.Acquire()
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunLock_StaleLockTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")
	lockFile := path + ".lock"

	if err := os.WriteFile(lockFile, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	// Age the lock past the stale threshold.
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(lockFile, old, old); err != nil {
		t.Fatalf("age lock file: %v", err)
	}

	lock := NewRunLock(path)
	if err := lock.Acquire(); err != nil {
		t.Errorf("stale lock must be taken over, got %v", err)
	}

	_ = lock.Release()
}
