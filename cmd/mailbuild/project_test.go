package main

// Notes:
// - resolveTimeout/resolveWorkers: we test parsing, validation, and flag > env priority.
// - resolveDataDates: we test "auto" forms are resolved and other values are untouched.
// - loadConfig: we test explicit paths, missing explicit files, and the default
//   fallback. The default lookup runs in the package directory, which has no
//   mailbuild.yaml.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/go-mailbuild/internal/config"
)

// ---------------------------------------------------------------------------
// TestResolveTimeout - Duration parsing and priority
// ---------------------------------------------------------------------------

func TestResolveTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		env     time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"flag wins", "45s", time.Minute, 45 * time.Second, false},
		{"env when flag empty", "", time.Minute, time.Minute, false},
		{"neither set", "", 0, 0, false},
		{"minutes", "2m", 0, 2 * time.Minute, false},
		{"invalid", "soon", 0, 0, true},
		{"zero", "0s", 0, 0, true},
		{"negative", "-5s", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveTimeout(tt.flag, tt.env)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeout) {
					t.Errorf("error = %v, want ErrInvalidTimeout", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveTimeout(%q, %v) = %v, want %v", tt.flag, tt.env, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolveWorkers - Worker count bounds and priority
// ---------------------------------------------------------------------------

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    int
		env     int
		want    int
		wantErr bool
	}{
		{"flag wins", 2, 6, 2, false},
		{"env when flag is auto", 0, 6, 6, false},
		{"both auto", 0, 0, 0, false},
		{"flag negative", -1, 0, 0, true},
		{"flag too large", 99, 0, 0, true},
		{"env too large", 0, 99, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveWorkers(tt.flag, tt.env)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWorkerCount) {
					t.Errorf("error = %v, want ErrInvalidWorkerCount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveWorkers(%d, %d) = %d, want %d", tt.flag, tt.env, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolveDataDates - Build date substitution
// ---------------------------------------------------------------------------

func TestResolveDataDates(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("resolves auto values", func(t *testing.T) {
		t.Parallel()

		data := map[string]any{
			"date":      "auto",
			"shortDate": "auto:DD/MM/YYYY",
			"longDate":  "AUTO:long",
			"company":   "Acme",
			"automatic": "automatic",
			"year":      2025,
			"nested":    map[string]any{"date": "auto"},
		}

		if err := resolveDataDates(data, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := map[string]any{
			"date":      "2025-03-14",
			"shortDate": "14/03/2025",
			"longDate":  "March 14, 2025",
			"company":   "Acme",
			"automatic": "automatic",
			"year":      2025,
		}
		for k, v := range want {
			if data[k] != v {
				t.Errorf("data[%q] = %v, want %v", k, data[k], v)
			}
		}
		nested, _ := data["nested"].(map[string]any)
		if nested["date"] != "auto" {
			t.Errorf("nested date = %v, want auto (only top-level keys resolve)", nested["date"])
		}
	})

	t.Run("empty format fails", func(t *testing.T) {
		t.Parallel()

		err := resolveDataDates(map[string]any{"date": "auto:"}, now)
		if !errors.Is(err, config.ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestLoadConfig - Config source selection
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "project.yaml")
		if err := os.WriteFile(path, []byte("paths:\n  dist: public\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := loadConfig(path, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Paths.Dist != "public" {
			t.Errorf("Paths.Dist = %q, want public", cfg.Paths.Dist)
		}
		if cfg.Paths.Source != "src" {
			t.Errorf("Paths.Source = %q, want src (default kept)", cfg.Paths.Source)
		}
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		flagPath := filepath.Join(dir, "flag.yaml")
		envPath := filepath.Join(dir, "env.yaml")
		if err := os.WriteFile(flagPath, []byte("paths:\n  dist: from-flag\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(envPath, []byte("paths:\n  dist: from-env\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := loadConfig(flagPath, envPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Paths.Dist != "from-flag" {
			t.Errorf("Paths.Dist = %q, want from-flag", cfg.Paths.Dist)
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		t.Parallel()

		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("no config uses defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := loadConfig("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Paths.Dist != config.DefaultConfig().Paths.Dist {
			t.Errorf("Paths.Dist = %q, want default", cfg.Paths.Dist)
		}
	})
}
