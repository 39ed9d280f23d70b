// Package convert runs the external transcoder to turn stored files into the
// requested target format.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

var (
	// ErrSourceExpired means the source file is no longer on disk, typically
	// because a previous action consumed it or the janitor reclaimed it.
	ErrSourceExpired = errors.New("source file expired")

	// ErrTranscodeFailed covers every way the external transcoder can let us
	// down: non-zero exit, timeout, or a clean exit that produced no output.
	ErrTranscodeFailed = errors.New("transcoding failed")
)

const outputSuffix = "_converted"

// Converter shells out to a transcoder binary and applies the upload size
// policy to whatever comes back.
type Converter struct {
	bin     string
	timeout time.Duration
	guard   limits.Guard
}

func New(bin string, timeout time.Duration, guard limits.Guard) *Converter {
	return &Converter{
		bin:     bin,
		timeout: timeout,
		guard:   guard,
	}
}

// Convert transforms the source file according to op and returns the output
// path. The source is left in place on success so the caller can delete it
// after the output has been delivered. Every failure past the existence
// check consumes the source and removes any partial output; ErrSourceExpired
// alone leaves the world untouched.
func (c *Converter) Convert(ctx context.Context, src string, op action.Operation) (string, error) {
	if !action.IsConversion(op) {
		return "", fmt.Errorf("operation %q is not a conversion", op)
	}
	if !storage.Exists(src) {
		return "", fmt.Errorf("%w: %s", ErrSourceExpired, filepath.Base(src))
	}

	out := outputPath(src, op)
	args := argsFor(op, src, out)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("Running transcoder", map[string]interface{}{
		"bin":       c.bin,
		"operation": string(op),
		"source":    filepath.Base(src),
	})

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		fields := map[string]interface{}{
			"operation": string(op),
			"source":    filepath.Base(src),
			"elapsed":   elapsed.String(),
			"error":     err.Error(),
			"stderr":    tail(stderr.String(), 1000),
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			fields["timeout"] = c.timeout.String()
		}
		logger.Error("Transcoder run failed", fields)
		c.consume(src, out)
		return "", fmt.Errorf("%s %s: %w", c.bin, op, ErrTranscodeFailed)
	}

	if !storage.Exists(out) {
		logger.Error("Transcoder exited cleanly but produced no output", map[string]interface{}{
			"operation": string(op),
			"source":    filepath.Base(src),
			"stderr":    tail(stderr.String(), 1000),
		})
		c.consume(src, out)
		return "", fmt.Errorf("%s %s produced no output: %w", c.bin, op, ErrTranscodeFailed)
	}

	if err := c.guard.Check(out); err != nil {
		c.consume(src, out)
		return "", fmt.Errorf("converted output rejected: %w", err)
	}

	logger.Info("Conversion finished", map[string]interface{}{
		"operation": string(op),
		"source":    filepath.Base(src),
		"output":    filepath.Base(out),
		"elapsed":   elapsed.String(),
	})
	return out, nil
}

// consume erases the source and any partial output after a failed attempt.
func (c *Converter) consume(src, out string) {
	for _, path := range []string{out, src} {
		if err := storage.Remove(path); err != nil {
			logger.Warn("Failed to remove file after conversion failure", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
}

// outputPath derives the output file name from the source base name and the
// operation's target extension.
func outputPath(src string, op action.Operation) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), base+outputSuffix+"."+targetExt(op))
}

func targetExt(op action.Operation) string {
	return string(op)
}

// argsFor returns the fixed transcoder argument template for the operation.
// Image-family targets are a single-pass re-encode; audio extraction demuxes
// the audio stream at best-effort quality and drops the video.
func argsFor(op action.Operation, src, out string) []string {
	if op == action.ToMP3 {
		return []string{"-y", "-i", src, "-q:a", "0", "-map", "a", out}
	}
	return []string{"-y", "-i", src, out}
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
