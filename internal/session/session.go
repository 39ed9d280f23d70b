// Package session tracks which stored files belong to which user. Sessions
// live in memory only and vanish on restart; the storage janitor reclaims
// whatever files they leave behind.
package session

import (
	"sync"

	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

// Store maps a Telegram user ID to the ordered list of files collected since
// the last /zip or /clear. All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[int64][]storage.FileHandle
}

func NewStore() *Store {
	return &Store{
		files: make(map[int64][]storage.FileHandle),
	}
}

// Append attaches a handle to the user's session and returns the new count.
func (s *Store) Append(userID int64, handle storage.FileHandle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[userID] = append(s.files[userID], handle)
	return len(s.files[userID])
}

// List returns a snapshot copy of the user's session. Mutating the returned
// slice never affects the store.
func (s *Store) List(userID int64) []storage.FileHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handles := s.files[userID]
	out := make([]storage.FileHandle, len(handles))
	copy(out, handles)
	return out
}

// Len returns how many files the user's session currently holds.
func (s *Store) Len(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files[userID])
}

// TotalFiles counts handles across every session.
func (s *Store) TotalFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, handles := range s.files {
		total += len(handles)
	}
	return total
}

// Remove detaches the handle with the given path from the user's session
// without touching the file on disk. It reports whether a handle was found.
func (s *Store) Remove(userID int64, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := s.files[userID]
	for i, h := range handles {
		if h.Path != path {
			continue
		}
		s.files[userID] = append(handles[:i], handles[i+1:]...)
		if len(s.files[userID]) == 0 {
			delete(s.files, userID)
		}
		return true
	}
	return false
}

// Detach empties the user's session and returns the handles it held, leaving
// the files on disk. Archive building consumes sessions this way.
func (s *Store) Detach(userID int64) []storage.FileHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := s.files[userID]
	delete(s.files, userID)
	return handles
}

// Clear empties the user's session and deletes its files from disk,
// best-effort. It returns how many handles were detached so callers can tell
// an already-empty session apart from a cleared one.
func (s *Store) Clear(userID int64) int {
	handles := s.Detach(userID)
	for _, h := range handles {
		if err := storage.Remove(h.Path); err != nil {
			logger.Warn("Failed to delete session file", map[string]interface{}{
				"user_id": userID,
				"path":    h.Path,
				"error":   err.Error(),
			})
		}
	}
	return len(handles)
}
