package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/devmike09/Converter-Bot/internal/storage"
)

func handleAt(path string) storage.FileHandle {
	return storage.FileHandle{
		Path: path,
		Name: filepath.Base(path),
		Kind: storage.KindImage,
	}
}

func TestAppendAndList(t *testing.T) {
	store := NewStore()

	if got := store.Append(7, handleAt("/tmp/a.png")); got != 1 {
		t.Errorf("Append() first count = %d, want 1", got)
	}
	if got := store.Append(7, handleAt("/tmp/b.png")); got != 2 {
		t.Errorf("Append() second count = %d, want 2", got)
	}
	if got := store.Len(7); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if got := store.Len(8); got != 0 {
		t.Errorf("Len() for unknown user = %d, want 0", got)
	}

	list := store.List(7)
	if len(list) != 2 || list[0].Path != "/tmp/a.png" || list[1].Path != "/tmp/b.png" {
		t.Errorf("List() = %v, want the two appended handles in order", list)
	}

	// The snapshot must be independent of the store.
	list[0].Path = "/tmp/mutated.png"
	if store.List(7)[0].Path != "/tmp/a.png" {
		t.Errorf("List() snapshot mutation leaked into the store")
	}
}

func TestRemove(t *testing.T) {
	store := NewStore()
	store.Append(7, handleAt("/tmp/a.png"))
	store.Append(7, handleAt("/tmp/b.png"))

	if !store.Remove(7, "/tmp/a.png") {
		t.Fatalf("Remove() = false for an attached handle")
	}
	if store.Remove(7, "/tmp/a.png") {
		t.Errorf("Remove() = true for an already-detached handle")
	}
	if store.Remove(9, "/tmp/b.png") {
		t.Errorf("Remove() = true for the wrong user")
	}

	list := store.List(7)
	if len(list) != 1 || list[0].Path != "/tmp/b.png" {
		t.Errorf("List() after Remove = %v, want only /tmp/b.png", list)
	}
}

func TestDetach(t *testing.T) {
	store := NewStore()
	store.Append(7, handleAt("/tmp/a.png"))
	store.Append(7, handleAt("/tmp/b.png"))

	handles := store.Detach(7)
	if len(handles) != 2 {
		t.Fatalf("Detach() returned %d handles, want 2", len(handles))
	}
	if store.Len(7) != 0 {
		t.Errorf("Len() after Detach = %d, want 0", store.Len(7))
	}
	if len(store.Detach(7)) != 0 {
		t.Errorf("Detach() on empty session returned handles")
	}
}

func TestClearDeletesFiles(t *testing.T) {
	store := NewStore()
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("file%d.png", i))
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		paths = append(paths, path)
		store.Append(7, handleAt(path))
	}
	// A handle whose file is already gone must not break the clear.
	store.Append(7, handleAt(filepath.Join(dir, "missing.png")))

	if got := store.Clear(7); got != 4 {
		t.Errorf("Clear() = %d, want 4", got)
	}
	if got := store.Clear(7); got != 0 {
		t.Errorf("Clear() on empty session = %d, want 0", got)
	}
	for _, path := range paths {
		if storage.Exists(path) {
			t.Errorf("Clear() left %s on disk", path)
		}
	}
}

func TestTotalFiles(t *testing.T) {
	store := NewStore()
	store.Append(1, handleAt("/tmp/a.png"))
	store.Append(1, handleAt("/tmp/b.png"))
	store.Append(2, handleAt("/tmp/c.png"))

	if got := store.TotalFiles(); got != 3 {
		t.Errorf("TotalFiles() = %d, want 3", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()

	const users = 10
	const perUser = 50

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				store.Append(userID, handleAt(fmt.Sprintf("/tmp/u%d-f%d.png", userID, i)))
				store.List(userID)
				store.Len(userID)
			}
		}(int64(u))
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		if got := store.Len(int64(u)); got != perUser {
			t.Errorf("Len(%d) = %d, want %d", u, got, perUser)
		}
	}
	if got := store.TotalFiles(); got != users*perUser {
		t.Errorf("TotalFiles() = %d, want %d", got, users*perUser)
	}
}
