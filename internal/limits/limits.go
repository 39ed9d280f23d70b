// Package limits enforces the platform upload ceiling at every egress point.
package limits

import (
	"errors"
	"fmt"
	"os"
)

// ErrTooLarge marks an artifact that cannot be uploaded within the platform limit.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// Guard checks artifact sizes against a fixed ceiling. It is a pure policy
// object: no mutation, no side effects.
type Guard struct {
	Max int64
}

func NewGuard(max int64) Guard {
	return Guard{Max: max}
}

// Check compares the byte length of the file at path against the ceiling.
func (g Guard) Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > g.Max {
		return fmt.Errorf("%s is %d bytes, limit %d: %w", path, info.Size(), g.Max, ErrTooLarge)
	}
	return nil
}

// Allowed reports whether a byte count fits under the ceiling. Streaming
// callers use it to cut a transfer before anything hits disk.
func (g Guard) Allowed(n int64) bool {
	return n <= g.Max
}
