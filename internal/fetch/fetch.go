// Package fetch retrieves HTTP(S) resources into the storage area.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

// ErrBadStatus means the remote server answered with something other than
// 200 OK.
var ErrBadStatus = errors.New("unexpected response status")

// Fetcher streams downloads to disk. The upload ceiling is enforced twice:
// declared lengths are rejected before any bytes move, and undeclared
// streams are cut off as soon as they run past the limit.
type Fetcher struct {
	client *http.Client
	guard  limits.Guard
}

func New(timeout time.Duration, guard limits.Guard) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		guard:  guard,
	}
}

// Download saves the resource behind rawURL into the storage area. The file
// lands under a generated disk name; the handle keeps the URL's final path
// segment as its display name when the URL carries one.
func (f *Fetcher) Download(ctx context.Context, rawURL string, area *storage.Area) (storage.FileHandle, error) {
	var none storage.FileHandle

	remoteName := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "/" && base != "." {
			remoteName = base
		}
	}
	handle := area.NewHandle(storage.DetectKind(remoteName), remoteName)
	if remoteName != "" {
		handle.Name = remoteName
	}

	if err := f.DownloadTo(ctx, rawURL, handle.Path); err != nil {
		return none, err
	}
	return handle, nil
}

// DownloadTo streams the resource behind rawURL into the file at dst.
// Nothing is left on disk when an error is returned.
func (f *Fetcher) DownloadTo(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: %w: %s", rawURL, ErrBadStatus, resp.Status)
	}
	if !f.guard.Allowed(resp.ContentLength) {
		return fmt.Errorf("declared length %d bytes: %w (limit %d)", resp.ContentLength, limits.ErrTooLarge, f.guard.Max)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, f.guard.Max+1))
	closeErr := out.Close()
	switch {
	case err != nil:
		f.discard(dst)
		return fmt.Errorf("stream %s: %w", rawURL, err)
	case closeErr != nil:
		f.discard(dst)
		return fmt.Errorf("flush %s: %w", dst, closeErr)
	case !f.guard.Allowed(written):
		f.discard(dst)
		return fmt.Errorf("stream ran past %d bytes: %w", f.guard.Max, limits.ErrTooLarge)
	}

	logger.Debug("Download saved", map[string]interface{}{
		"url":   rawURL,
		"bytes": written,
	})
	return nil
}

func (f *Fetcher) discard(path string) {
	if err := storage.Remove(path); err != nil {
		logger.Warn("Failed to remove partial download", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
