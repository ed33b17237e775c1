package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// staleLockAge is the age after which a leftover lock file from a crashed
// run is taken over.
const staleLockAge = 2 * time.Hour

// ErrRunInProgress indicates another run currently holds the table lock.
var ErrRunInProgress = errors.New("another run is in progress")

// RunLock serializes the merge+write step across overlapping invocations
// (scheduled run racing a manual trigger) with an exclusive lock file.
type RunLock struct {
	path string
}

// NewRunLock creates a lock guarding the store at the given path.
func NewRunLock(storePath string) *RunLock {
	return &RunLock{path: storePath + ".lock"}
}

// Acquire takes the lock. It fails with ErrRunInProgress when a live lock
// exists; stale locks are removed and retaken.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lock: create dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))

			return f.Close()
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("lock: create %q: %w", l.path, err)
		}

		info, statErr := os.Stat(l.path)
		if statErr != nil || time.Since(info.ModTime()) < staleLockAge {
			return fmt.Errorf("%w: %s", ErrRunInProgress, l.path)
		}

		// Stale lock from a crashed run; remove and retry once.
		_ = os.Remove(l.path)
	}

	return fmt.Errorf("%w: %s", ErrRunInProgress, l.path)
}

// Release removes the lock file.
func (l *RunLock) Release() error {
	return os.Remove(l.path)
}
