package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"
)

// RunLock is a file-based guard so two pipeline invocations don't write the
// same database at once. The store's uniqueness constraints would turn a race
// into discarded duplicates rather than corruption, but a second run burning
// API quota on rows the first is about to mark is still wasted work.
type RunLock struct {
	logger *slog.Logger
}

func NewRunLock(logger *slog.Logger) *RunLock {
	return &RunLock{logger: logger}
}

// TryLock attempts to acquire the lock for key, waiting up to timeout.
func (rl *RunLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile := rl.lockFilePath(key)

	if err := os.MkdirAll(filepath.Dir(lockFile), 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			if os.IsExist(err) {
				if rl.isLockStale(lockFile, timeout*2) {
					rl.logger.Warn("Removing stale lock file", slog.String("file", lockFile))
					if err := os.Remove(lockFile); err != nil {
						rl.logger.Error("Failed to remove stale lock file", slog.String("file", lockFile), slog.Any("error", err))
					}
					continue
				}

				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		if _, err := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid()); err != nil {
			_ = file.Close()
			return false, fmt.Errorf("failed to write to lock file: %w", err)
		}
		if err := file.Close(); err != nil {
			return false, fmt.Errorf("failed to close lock file: %w", err)
		}

		rl.logger.Debug("Acquired lock", slog.String("key", key), slog.String("file", lockFile))
		return true, nil
	}

	return false, nil // Timeout exceeded
}

// Unlock releases the lock for the given key.
func (rl *RunLock) Unlock(key string) error {
	lockFile := rl.lockFilePath(key)

	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	rl.logger.Debug("Released lock", slog.String("key", key))
	return nil
}

func (rl *RunLock) lockFilePath(key string) string {
	lockDir := filepath.Join(os.TempDir(), "truestory-locks")
	return filepath.Clean(filepath.Join(lockDir, key+".lock"))
}

// isLockStale checks if a lock file is older than the given duration.
func (rl *RunLock) isLockStale(lockFile string, staleDuration time.Duration) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return true // If we can't stat it, consider it stale
	}

	return time.Since(info.ModTime()) > staleDuration
}
