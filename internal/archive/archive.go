// Package archive packs a user's session files into a single zip for
// delivery, consuming the sources as it goes.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/session"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

// ErrNoFiles means the user's session holds nothing worth archiving.
var ErrNoFiles = errors.New("no files in session")

// Builder turns a session's file list into one flat zip inside the storage
// area. The zip exists only to be streamed out once; the caller removes it
// after the send attempt.
type Builder struct {
	store *session.Store
	area  *storage.Area
	guard limits.Guard
}

func NewBuilder(store *session.Store, area *storage.Area, guard limits.Guard) *Builder {
	return &Builder{
		store: store,
		area:  area,
		guard: guard,
	}
}

// Build archives every file still on disk from the user's session and
// returns the archive path.
//
// Entries are added and their sources deleted one file at a time, with the
// entry flushed into the archive stream before its source is removed. A
// mid-stream failure therefore costs nothing: files already added live on in
// the archive, files not yet reached keep both their bytes and their session
// handles for a later attempt, and the partial archive is still returned
// when it holds at least one entry.
//
// The build works off a snapshot of the session. Handles in the snapshot are
// consumed as their entries land; files appended concurrently while the build
// runs keep their handles and bytes. An oversized result is deleted rather
// than delivered, and the consumed sources are not restored.
func (b *Builder) Build(userID int64) (string, error) {
	handles := b.store.List(userID)
	if len(handles) == 0 {
		return "", ErrNoFiles
	}

	name := archiveName(userID)
	path := filepath.Join(b.area.Root(), name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive %s: %w", name, err)
	}

	zw := zip.NewWriter(file)
	added := 0
	skipped := 0
	var abortErr error

	for _, h := range handles {
		if !storage.Exists(h.Path) {
			b.store.Remove(userID, h.Path)
			skipped++
			continue
		}
		if err := b.addFile(zw, h); err != nil {
			abortErr = err
			logger.Warn("Archive aborted mid-stream", map[string]interface{}{
				"user_id": userID,
				"archive": name,
				"file":    h.Name,
				"added":   added,
				"error":   err.Error(),
			})
			break
		}
		// The entry is flushed into the archive stream; only now may the
		// source disappear.
		if err := storage.Remove(h.Path); err != nil {
			logger.Warn("Failed to delete archived source", map[string]interface{}{
				"user_id": userID,
				"path":    h.Path,
				"error":   err.Error(),
			})
		}
		b.store.Remove(userID, h.Path)
		added++
	}

	closeErr := zw.Close()
	if err := file.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if closeErr != nil {
		removeQuietly(path)
		return "", fmt.Errorf("finalize archive %s: %w", name, closeErr)
	}

	if added == 0 {
		removeQuietly(path)
		if abortErr != nil {
			return "", fmt.Errorf("archive %s: %w", name, abortErr)
		}
		return "", fmt.Errorf("%w: every session file had already expired", ErrNoFiles)
	}

	if err := b.guard.Check(path); err != nil {
		removeQuietly(path)
		return "", fmt.Errorf("archive rejected: %w", err)
	}

	logger.Info("Archive built", map[string]interface{}{
		"user_id": userID,
		"archive": name,
		"added":   added,
		"skipped": skipped,
	})
	return path, nil
}

// addFile writes one session file into the archive under its base name and
// flushes the entry through to the underlying file.
func (b *Builder) addFile(zw *zip.Writer, handle storage.FileHandle) error {
	src, err := os.Open(handle.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", handle.Name, err)
	}
	defer src.Close()

	entry, err := zw.Create(handle.Name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", handle.Name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("write entry %s: %w", handle.Name, err)
	}
	return zw.Flush()
}

func removeQuietly(path string) {
	if err := storage.Remove(path); err != nil {
		logger.Warn("Failed to remove archive", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func archiveName(userID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("Archive_%d_%s.zip", userID, suffix)
}
