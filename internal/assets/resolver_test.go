package assets

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestNewAssetResolver(t *testing.T) {
	t.Parallel()

	r, err := NewAssetResolver("")
	if err != nil {
		t.Fatalf("NewAssetResolver(\"\") error = %v", err)
	}
	if r.HasCustomLoader() {
		t.Error("HasCustomLoader() = true, want false")
	}

	r, err = NewAssetResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetResolver(dir) error = %v", err)
	}
	if !r.HasCustomLoader() {
		t.Error("HasCustomLoader() = false, want true")
	}

	if _, err := NewAssetResolver("/nonexistent/path/abc123xyz"); !errors.Is(err, ErrInvalidBasePath) {
		t.Errorf("NewAssetResolver(missing) error = %v, want ErrInvalidBasePath", err)
	}
}

func TestAssetResolver_LoadStyle(t *testing.T) {
	t.Parallel()

	customDir := t.TempDir()
	writeTestFile(t, filepath.Join(customDir, "styles", "reset.css"), "/* custom reset */")
	writeTestFile(t, filepath.Join(customDir, "styles", "brand.css"), "/* brand */")

	resolver, err := NewAssetResolver(customDir)
	if err != nil {
		t.Fatalf("NewAssetResolver() error = %v", err)
	}

	tests := []struct {
		name     string
		style    string
		contains string
		wantErr  error
	}{
		{"custom overrides embedded", "reset", "custom reset", nil},
		{"custom only", "brand", "brand", nil},
		{"falls back to embedded", "dark", "prefers-color-scheme", nil},
		{"neither has style", "nope", "", ErrStyleNotFound},
		{"validation error not fallen back", "../reset", "", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.LoadStyle(tt.style)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyle(%q) error = %v, want %v", tt.style, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) error = %v", tt.style, err)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("LoadStyle(%q) = %q, want containing %q", tt.style, got, tt.contains)
			}
		})
	}
}

func TestAssetResolver_ListStyles(t *testing.T) {
	t.Parallel()

	customDir := t.TempDir()
	writeTestFile(t, filepath.Join(customDir, "styles", "reset.css"), "")
	writeTestFile(t, filepath.Join(customDir, "styles", "brand.css"), "")

	resolver, err := NewAssetResolver(customDir)
	if err != nil {
		t.Fatalf("NewAssetResolver() error = %v", err)
	}

	got, err := resolver.ListStyles()
	if err != nil {
		t.Fatalf("ListStyles() error = %v", err)
	}
	if !slices.Equal(got, []string{"brand", "dark", "reset"}) {
		t.Errorf("ListStyles() = %v, want [brand dark reset]", got)
	}
}
