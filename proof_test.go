package mailbuild

import (
	"context"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestProofer_Proof - Viewports, Validation, Errors
// ---------------------------------------------------------------------------

func TestProofer_Proof(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{}
	p := &Proofer{timeout: defaultTimeout, renderer: fake}

	shots, err := p.Proof(context.Background(), `<html><body><img src="images/logo.png"></body></html>`, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Proof() error = %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("len(shots) = %d, want 2", len(shots))
	}
	if shots[0].Viewport.Name != "desktop" || string(shots[0].PNG) != "png:desktop" {
		t.Errorf("shots[0] = %+v", shots[0])
	}
	if shots[1].Viewport.Name != "mobile" {
		t.Errorf("shots[1] = %+v", shots[1])
	}
}

func TestProofer_Proof_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid viewport", func(t *testing.T) {
		t.Parallel()

		fake := &fakeRenderer{}
		p := &Proofer{renderer: fake}
		_, err := p.Proof(context.Background(), "<p>x</p>", "", []Viewport{{Name: "Bad", Width: 1, Height: 1}})
		if !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("Proof() error = %v, want ErrInvalidViewport", err)
		}
		if len(fake.captured) != 0 {
			t.Error("renderer called for invalid viewport")
		}
	})

	t.Run("renderer failure", func(t *testing.T) {
		t.Parallel()

		p := &Proofer{renderer: &fakeRenderer{err: ErrScreenshot}}
		_, err := p.Proof(context.Background(), "<p>x</p>", "", nil)
		if !errors.Is(err, ErrScreenshot) {
			t.Errorf("Proof() error = %v, want ErrScreenshot", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &Proofer{renderer: &fakeRenderer{}}
		_, err := p.Proof(ctx, "<p>x</p>", "", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Proof() error = %v, want context.Canceled", err)
		}
	})
}

func TestNoSandbox(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"explicit true", map[string]string{"ROD_NO_SANDBOX": "1", "CI": "", "ROD_BROWSER_BIN": ""}, true},
		{"explicit false wins over CI", map[string]string{"ROD_NO_SANDBOX": "false", "CI": "true", "ROD_BROWSER_BIN": ""}, false},
		{"CI", map[string]string{"ROD_NO_SANDBOX": "", "CI": "true", "ROD_BROWSER_BIN": ""}, true},
		{"custom browser", map[string]string{"ROD_NO_SANDBOX": "", "CI": "", "ROD_BROWSER_BIN": "/usr/bin/chromium"}, true},
		{"default", map[string]string{"ROD_NO_SANDBOX": "", "CI": "", "ROD_BROWSER_BIN": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := noSandbox(); got != tt.want {
				t.Errorf("noSandbox() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithProofTimeout_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithProofTimeout(0) did not panic")
		}
	}()
	WithProofTimeout(0)
}
