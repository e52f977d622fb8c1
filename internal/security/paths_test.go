package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestContainedIn(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}
	if err := os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"scene file in dir", filepath.Join(safeDir, "scene.json"), false},
		{"nested new file", filepath.Join(safeDir, "plots", "scene.png"), false},
		{"dir itself", safeDir, false},
		{"parent traversal", filepath.Join(safeDir, "..", "unsafe", "x.json"), true},
		{"sibling dir", filepath.Join(unsafeDir, "x.json"), true},
		{"symlink to outside", filepath.Join(safeDir, "evil-symlink", "x.json"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ContainedIn(tt.path, safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ContainedIn(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
			if err != nil && tt.wantError && !errors.Is(err, ErrOutsideDir) {
				t.Errorf("ContainedIn(%q) error = %v, want ErrOutsideDir", tt.path, err)
			}
		})
	}
}

func TestContainedIn_MissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if err := ContainedIn(filepath.Join(missing, "a"), missing); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gravity_scene_01", "gravity_scene_01"},
		{"a/b-c.d", "a_b-c.d"},
		{"../../etc/passwd", "etc_passwd"},
		{"scene  with   spaces", "scene_with_spaces"},
		{"", "fallback"},
		{"...", "fallback"},
		{"01JC5Y7ZQ3Q0W7S8V9T6X2B1NM", "01JC5Y7ZQ3Q0W7S8V9T6X2B1NM"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in, "fallback"); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
