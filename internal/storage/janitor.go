package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/devmike09/Converter-Bot/internal/logger"
)

// Sweep removes every regular file in the area whose modification time is
// older than ttl. Files abandoned by interrupted flows or forgotten sessions
// eventually disappear this way; per-file removal errors are logged and do
// not stop the sweep.
func (a *Area) Sweep(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(a.root, entry.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Janitor failed to remove stale file", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// RunJanitor sweeps the area on a fixed interval until ctx is cancelled.
// Run it in its own goroutine.
func (a *Area) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Storage janitor started", map[string]interface{}{
		"dir":      a.root,
		"interval": interval.String(),
		"ttl":      ttl.String(),
	})

	for {
		select {
		case <-ctx.Done():
			logger.Info("Storage janitor stopped", nil)
			return
		case <-ticker.C:
			removed, err := a.Sweep(ttl)
			if err != nil {
				logger.Error("Storage sweep failed", map[string]interface{}{
					"dir":   a.root,
					"error": err.Error(),
				})
				continue
			}
			if removed > 0 {
				logger.Info("Storage sweep removed stale files", map[string]interface{}{
					"dir":     a.root,
					"removed": removed,
				})
			}
		}
	}
}
