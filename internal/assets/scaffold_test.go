package assets

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestScaffold - Starter Project
// ---------------------------------------------------------------------------

func TestScaffoldFiles(t *testing.T) {
	t.Parallel()

	files, err := ScaffoldFiles()
	if err != nil {
		t.Fatalf("ScaffoldFiles() error = %v", err)
	}

	for _, want := range []string{
		".env.example",
		"data.yaml",
		"mailbuild.yaml",
		"src/css/main.css",
		"src/emails/welcome.mjml",
		"src/images/logo.svg",
		"src/partials/footer.hbs",
		"src/partials/header.hbs",
	} {
		if !slices.Contains(files, want) {
			t.Errorf("ScaffoldFiles() missing %q in %v", want, files)
		}
	}
	if !slices.IsSorted(files) {
		t.Errorf("ScaffoldFiles() not sorted: %v", files)
	}
}

func TestWriteScaffold(t *testing.T) {
	t.Parallel()

	t.Run("writes into empty directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		written, err := WriteScaffold(dir, false)
		if err != nil {
			t.Fatalf("WriteScaffold() error = %v", err)
		}
		files, _ := ScaffoldFiles()
		if len(written) != len(files) {
			t.Errorf("wrote %d files, want %d", len(written), len(files))
		}

		data, err := os.ReadFile(filepath.Join(dir, "src", "emails", "welcome.mjml"))
		if err != nil {
			t.Fatalf("reading welcome.mjml: %v", err)
		}
		if !strings.Contains(string(data), "{{> header}}") {
			t.Errorf("welcome.mjml = %q", data)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, "mailbuild.yaml"), "mine")

		_, err := WriteScaffold(dir, false)
		if !errors.Is(err, ErrScaffoldExists) {
			t.Fatalf("WriteScaffold() error = %v, want ErrScaffoldExists", err)
		}
		if !strings.Contains(err.Error(), "mailbuild.yaml") {
			t.Errorf("error = %q, want conflicting file listed", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "data.yaml")); !os.IsNotExist(err) {
			t.Error("files written despite conflict")
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, "mailbuild.yaml"), "mine")

		if _, err := WriteScaffold(dir, true); err != nil {
			t.Fatalf("WriteScaffold(force) error = %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(dir, "mailbuild.yaml"))
		if string(data) == "mine" {
			t.Error("mailbuild.yaml not overwritten")
		}
	})
}
