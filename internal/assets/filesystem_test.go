package assets

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	t.Run("valid directory", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFilesystemLoader(t.TempDir()); err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
	})

	t.Run("empty path returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewFilesystemLoader("")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader(\"\") error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("nonexistent directory returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewFilesystemLoader("/nonexistent/path/abc123xyz")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader() error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("file instead of directory returns error", func(t *testing.T) {
		t.Parallel()

		filePath := filepath.Join(t.TempDir(), "file.txt")
		writeTestFile(t, filePath, "test")

		_, err := NewFilesystemLoader(filePath)
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader() error = %v, want ErrInvalidBasePath", err)
		}
	})
}

func TestFilesystemLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cssContent := "body { color: red; }"
	writeTestFile(t, filepath.Join(tmpDir, "styles", "custom.css"), cssContent)

	loader, err := NewFilesystemLoader(tmpDir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	got, err := loader.LoadStyle("custom")
	if err != nil {
		t.Fatalf("LoadStyle() error = %v", err)
	}
	if got != cssContent {
		t.Errorf("LoadStyle() = %q, want %q", got, cssContent)
	}

	if _, err := loader.LoadStyle("nonexistent"); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("LoadStyle(nonexistent) error = %v, want ErrStyleNotFound", err)
	}
	if _, err := loader.LoadStyle("../custom"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadStyle(../custom) error = %v, want ErrInvalidAssetName", err)
	}
}

func TestFilesystemLoader_ListStyles(t *testing.T) {
	t.Parallel()

	t.Run("lists css files", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeTestFile(t, filepath.Join(tmpDir, "styles", "brand.css"), "a{}")
		writeTestFile(t, filepath.Join(tmpDir, "styles", "alt.css"), "a{}")
		writeTestFile(t, filepath.Join(tmpDir, "styles", "README.md"), "#")

		loader, err := NewFilesystemLoader(tmpDir)
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		got, err := loader.ListStyles()
		if err != nil {
			t.Fatalf("ListStyles() error = %v", err)
		}
		if !slices.Equal(got, []string{"alt", "brand"}) {
			t.Errorf("ListStyles() = %v, want [alt brand]", got)
		}
	})

	t.Run("missing styles directory", func(t *testing.T) {
		t.Parallel()

		loader, err := NewFilesystemLoader(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		got, err := loader.ListStyles()
		if err != nil || len(got) != 0 {
			t.Errorf("ListStyles() = %v, %v; want empty", got, err)
		}
	})
}

func TestFilesystemLoader_PathContainment(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	stylesDir := filepath.Join(tmpDir, "styles")
	if err := os.MkdirAll(stylesDir, 0o755); err != nil {
		t.Fatalf("failed to create styles dir: %v", err)
	}

	secretFile := filepath.Join(t.TempDir(), "secret.css")
	writeTestFile(t, secretFile, "secret content")

	if err := os.Symlink(secretFile, filepath.Join(stylesDir, "evil.css")); err != nil {
		t.Skipf("symlink creation not supported: %v", err)
	}

	loader, err := NewFilesystemLoader(tmpDir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	_, err = loader.LoadStyle("evil")
	if !errors.Is(err, ErrPathTraversal) {
		t.Errorf("LoadStyle() with symlink escape error = %v, want ErrPathTraversal", err)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
