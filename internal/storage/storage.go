// Package storage manages the scratch directory holding every transient
// artifact: inbound media, direct downloads, conversion outputs and archives.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/devmike09/Converter-Bot/internal/consts"
)

// Kind classifies a stored artifact by its content family.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// FileHandle references one artifact inside the storage area. A handle is
// owned by exactly one user session until it is consumed.
type FileHandle struct {
	Path string // absolute path inside the storage area
	Name string // generated unique base name
	Kind Kind
}

// Area is the scratch directory. It only manages paths and names; reading and
// writing the bytes is the caller's business.
type Area struct {
	root string
}

// NewArea creates the scratch directory if needed and returns the area.
func NewArea(dir string) (*Area, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", abs, err)
	}
	return &Area{root: abs}, nil
}

func (a *Area) Root() string {
	return a.root
}

// Join returns the absolute path for a base name inside the area. Names
// containing path separators are rejected so a caller can never escape the
// scratch directory.
func (a *Area) Join(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(a.root, name), nil
}

// Contains reports whether path points directly into the storage area.
func (a *Area) Contains(path string) bool {
	return filepath.Dir(path) == a.root
}

// NewHandle allocates a fresh handle for an inbound file. The generated name
// is collision-free across users and restarts, and is built only from hex
// digits, a dot and a sanitized extension.
func (a *Area) NewHandle(kind Kind, originalName string) FileHandle {
	ext := sanitizeExt(filepath.Ext(originalName))
	if ext == "" {
		ext = defaultExt(kind)
	}
	name := newUniqueName() + ext
	return FileHandle{
		Path: filepath.Join(a.root, name),
		Name: name,
		Kind: kind,
	}
}

// newUniqueName returns 32 hex characters, never reused.
func newUniqueName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// sanitizeExt lower-cases an extension and drops every rune that is not a
// letter or digit. The result is either empty or ".xyz" with xyz alphanumeric.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}

func defaultExt(kind Kind) string {
	switch kind {
	case KindImage:
		return consts.DefaultImageExt
	case KindVideo:
		return consts.DefaultVideoExt
	default:
		return consts.DefaultDocumentExt
	}
}

// DetectKind infers the content family from a file name's extension. Files
// sent as generic documents still get conversion prompts when they are
// recognizably images or videos.
func DetectKind(name string) Kind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg", "png", "webp", "gif", "bmp", "tif", "tiff", "heic":
		return KindImage
	case "mp4", "mov", "mkv", "avi", "webm", "m4v", "mpg", "mpeg":
		return KindVideo
	default:
		return KindDocument
	}
}

// Remove deletes an artifact, treating an already-missing file as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the artifact is still on disk.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
