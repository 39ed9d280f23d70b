package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestArea(t *testing.T) *Area {
	t.Helper()
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("NewArea() error = %v", err)
	}
	return area
}

func TestNewHandleNames(t *testing.T) {
	area := newTestArea(t)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		handle := area.NewHandle(KindImage, "photo.jpg")
		if seen[handle.Name] {
			t.Fatalf("NewHandle() produced duplicate name %q", handle.Name)
		}
		seen[handle.Name] = true

		base := strings.TrimSuffix(handle.Name, ".jpg")
		if len(base) != 32 {
			t.Errorf("NewHandle() base = %q, want 32 hex characters", base)
		}
		for _, r := range base {
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
			if !isHex {
				t.Errorf("NewHandle() name %q contains non-hex rune %q", handle.Name, r)
			}
		}
		if strings.ContainsAny(handle.Name, ":/\\") {
			t.Errorf("NewHandle() name %q contains a reserved delimiter", handle.Name)
		}
		if handle.Path != filepath.Join(area.Root(), handle.Name) {
			t.Errorf("NewHandle() path = %q, want it under %q", handle.Path, area.Root())
		}
	}
}

func TestNewHandleExtensions(t *testing.T) {
	area := newTestArea(t)

	tests := []struct {
		name         string
		kind         Kind
		originalName string
		wantExt      string
	}{
		{
			name:         "keeps lowercase extension",
			kind:         KindImage,
			originalName: "photo.png",
			wantExt:      ".png",
		},
		{
			name:         "normalizes uppercase extension",
			kind:         KindImage,
			originalName: "SCAN.JPG",
			wantExt:      ".jpg",
		},
		{
			name:         "strips unsafe runes from extension",
			kind:         KindDocument,
			originalName: "weird.t@r",
			wantExt:      ".tr",
		},
		{
			name:         "image without extension gets image default",
			kind:         KindImage,
			originalName: "",
			wantExt:      ".jpg",
		},
		{
			name:         "video without extension gets video default",
			kind:         KindVideo,
			originalName: "clip",
			wantExt:      ".mp4",
		},
		{
			name:         "document without extension gets generic default",
			kind:         KindDocument,
			originalName: "README",
			wantExt:      ".bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := area.NewHandle(tt.kind, tt.originalName)
			if got := filepath.Ext(handle.Name); got != tt.wantExt {
				t.Errorf("NewHandle(%q) ext = %q, want %q", tt.originalName, got, tt.wantExt)
			}
			if handle.Kind != tt.kind {
				t.Errorf("NewHandle(%q) kind = %q, want %q", tt.originalName, handle.Kind, tt.kind)
			}
		})
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     Kind
	}{
		{name: "jpeg image", fileName: "holiday.JPEG", want: KindImage},
		{name: "webp image", fileName: "sticker.webp", want: KindImage},
		{name: "mp4 video", fileName: "clip.mp4", want: KindVideo},
		{name: "mov video", fileName: "raw.MOV", want: KindVideo},
		{name: "pdf document", fileName: "paper.pdf", want: KindDocument},
		{name: "no extension", fileName: "Makefile", want: KindDocument},
		{name: "empty name", fileName: "", want: KindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.fileName); got != tt.want {
				t.Errorf("DetectKind(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	area := newTestArea(t)

	tests := []struct {
		name     string
		artifact string
		wantErr  bool
	}{
		{name: "plain name", artifact: "abc123.png", wantErr: false},
		{name: "empty name", artifact: "", wantErr: true},
		{name: "parent traversal", artifact: "../escape.png", wantErr: true},
		{name: "nested path", artifact: "sub/file.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := area.Join(tt.artifact)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Join(%q) error = %v, wantErr %v", tt.artifact, err, tt.wantErr)
			}
			if err == nil && got != filepath.Join(area.Root(), tt.artifact) {
				t.Errorf("Join(%q) = %q, want it directly under the root", tt.artifact, got)
			}
		})
	}
}

func TestContains(t *testing.T) {
	area := newTestArea(t)

	inside := filepath.Join(area.Root(), "a.png")
	if !area.Contains(inside) {
		t.Errorf("Contains(%q) = false, want true", inside)
	}

	outside := filepath.Join(os.TempDir(), "a.png")
	if area.Contains(outside) && filepath.Dir(outside) != area.Root() {
		t.Errorf("Contains(%q) = true, want false", outside)
	}

	nested := filepath.Join(area.Root(), "sub", "a.png")
	if area.Contains(nested) {
		t.Errorf("Contains(%q) = true, want false for nested paths", nested)
	}
}

func TestRemoveAndExists(t *testing.T) {
	area := newTestArea(t)

	handle := area.NewHandle(KindImage, "photo.jpg")
	if err := os.WriteFile(handle.Path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if !Exists(handle.Path) {
		t.Fatalf("Exists(%q) = false after write", handle.Path)
	}
	if err := Remove(handle.Path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if Exists(handle.Path) {
		t.Errorf("Exists(%q) = true after remove", handle.Path)
	}
	if err := Remove(handle.Path); err != nil {
		t.Errorf("Remove() on missing file error = %v, want nil", err)
	}
}

func TestSweep(t *testing.T) {
	area := newTestArea(t)

	stale := filepath.Join(area.Root(), "stale.png")
	fresh := filepath.Join(area.Root(), "fresh.png")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile(%q) error = %v", path, err)
		}
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	removed, err := area.Sweep(24 * time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep() removed = %d, want 1", removed)
	}
	if Exists(stale) {
		t.Errorf("stale file survived the sweep")
	}
	if !Exists(fresh) {
		t.Errorf("fresh file was swept")
	}
}
