package limits

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.bin")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name     string
		max      int64
		size     int
		tooLarge bool
	}{
		{
			name: "under limit",
			max:  100,
			size: 50,
		},
		{
			name: "exactly at limit",
			max:  100,
			size: 100,
		},
		{
			name:     "over limit",
			max:      100,
			size:     101,
			tooLarge: true,
		},
		{
			name: "empty file",
			max:  100,
			size: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewGuard(tt.max)
			err := guard.Check(writeTestFile(t, tt.size))

			if tt.tooLarge {
				if !errors.Is(err, ErrTooLarge) {
					t.Errorf("Check() error = %v, want ErrTooLarge", err)
				}
			} else if err != nil {
				t.Errorf("Check() unexpected error = %v", err)
			}
		})
	}
}

func TestGuard_CheckMissingFile(t *testing.T) {
	guard := NewGuard(100)
	err := guard.Check(filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("Check() expected error for missing file, got nil")
	}
	if errors.Is(err, ErrTooLarge) {
		t.Errorf("Check() error = %v, want a stat failure, not ErrTooLarge", err)
	}
}

func TestGuard_Allowed(t *testing.T) {
	guard := NewGuard(100)

	if !guard.Allowed(100) {
		t.Error("Allowed(100) = false, want true")
	}
	if guard.Allowed(101) {
		t.Error("Allowed(101) = true, want false")
	}
}
