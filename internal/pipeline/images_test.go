package pipeline

// Notes:
// - Fixtures are generated in memory: a gradient stored without compression
//   is always larger than its optimized re-encoding

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"strings"
	"testing"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// TestImageOptimizer - Raster Formats
// ---------------------------------------------------------------------------

func TestImageOptimizer_OptimizePNG(t *testing.T) {
	t.Parallel()

	src := encodePNG(t, gradient(400, 200))
	out, err := NewImageOptimizer(ImageOptions{MaxWidth: 100}).OptimizePNG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) >= len(src) {
		t.Errorf("output %d bytes, input %d bytes", len(out), len(src))
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestImageOptimizer_OptimizePNGNarrowImageKeepsSize(t *testing.T) {
	t.Parallel()

	src := encodePNG(t, gradient(60, 30))
	out, err := NewImageOptimizer(ImageOptions{MaxWidth: 600}).OptimizePNG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 60 || cfg.Height != 30 {
		t.Errorf("size = %dx%d, want 60x30", cfg.Width, cfg.Height)
	}
}

func TestImageOptimizer_OptimizeJPEG(t *testing.T) {
	t.Parallel()

	src := encodeJPEG(t, gradient(400, 200))
	out, err := NewImageOptimizer(ImageOptions{MaxWidth: 100, JPEGQuality: 60}).OptimizeJPEG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestImageOptimizer_DecodeErrors(t *testing.T) {
	t.Parallel()

	o := NewImageOptimizer(ImageOptions{})
	if _, err := o.OptimizePNG([]byte("not a png")); !errors.Is(err, ErrImageDecode) {
		t.Errorf("png error = %v, want ErrImageDecode", err)
	}
	if _, err := o.OptimizeJPEG([]byte("not a jpeg")); !errors.Is(err, ErrImageDecode) {
		t.Errorf("jpeg error = %v, want ErrImageDecode", err)
	}
}

func TestSmaller(t *testing.T) {
	t.Parallel()

	orig := []byte("0123456789")
	if got := smaller(orig, []byte("012")); string(got) != "012" {
		t.Errorf("smaller() = %q, want candidate", got)
	}
	if got := smaller(orig, []byte("0123456789ab")); string(got) != string(orig) {
		t.Errorf("smaller() = %q, want original", got)
	}
}

// ---------------------------------------------------------------------------
// TestImageOptimizer_OptimizeSVG - Sizing and Minification
// ---------------------------------------------------------------------------

func TestImageOptimizer_OptimizeSVG(t *testing.T) {
	t.Parallel()

	src := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 12">
  <!-- logo -->
  <rect width="24" height="12" fill="#ff0000"/>
</svg>`)

	sized, err := NewImageOptimizer(ImageOptions{SVGSize: true}).OptimizeSVG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(sized, []byte(`viewBox="0 0 24 12" width="24" height="12"`)) {
		t.Errorf("dimensions not inferred: %s", sized)
	}

	minified, err := NewImageOptimizer(ImageOptions{SVGMinify: true}).OptimizeSVG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Contains(minified, []byte("<!--")) || len(minified) >= len(src) {
		t.Errorf("not minified: %s", minified)
	}

	plain, err := NewImageOptimizer(ImageOptions{}).OptimizeSVG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(plain, src) {
		t.Errorf("disabled options changed the document: %s", plain)
	}
}

func TestImageOptimizer_OptimizeSVGMissingViewBox(t *testing.T) {
	t.Parallel()

	_, err := NewImageOptimizer(ImageOptions{SVGSize: true}).OptimizeSVG([]byte(`<svg width="1" height="1"></svg>`))
	if !errors.Is(err, ErrMissingViewBox) {
		t.Errorf("error = %v, want ErrMissingViewBox", err)
	}
}

func TestImageOptimizer_OptimizeSVGAlreadySized(t *testing.T) {
	t.Parallel()

	src := []byte(`<svg viewBox="0 0 24 12" width="48" height="24"></svg>`)
	got, err := NewImageOptimizer(ImageOptions{SVGSize: true}).OptimizeSVG(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("sized document changed: %s", got)
	}
}

// ---------------------------------------------------------------------------
// TestImageStage - Dispatch and Error Policy
// ---------------------------------------------------------------------------

func TestImageStage(t *testing.T) {
	t.Parallel()

	stage := NewImageStage(NewImageOptimizer(ImageOptions{SVGSize: true}), OnErrorFail, nil)

	tests := []struct {
		name string
		rec  *Record
		same bool
	}{
		{"null record", &Record{Path: "images"}, true},
		{"gif passes through", &Record{Path: "a.gif", Contents: []byte("GIF89a")}, true},
		{"other passes through", &Record{Path: "a.txt", Contents: []byte("x")}, true},
		{"svg is sized", &Record{Path: "logo.SVG", Contents: []byte(`<svg viewBox="0 0 8 4"></svg>`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := stage.Process(context.Background(), tt.rec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == tt.rec) != tt.same {
				t.Errorf("passthrough = %v, want %v", got == tt.rec, tt.same)
			}
		})
	}
}

func TestImageStage_ErrorPolicy(t *testing.T) {
	t.Parallel()

	bad := &Record{Path: "icon.svg", Contents: []byte(`<svg></svg>`)}
	opt := NewImageOptimizer(ImageOptions{SVGSize: true})

	if _, err := NewImageStage(opt, OnErrorFail, nil).Process(context.Background(), bad); !errors.Is(err, ErrMissingViewBox) {
		t.Errorf("fail policy error = %v, want ErrMissingViewBox", err)
	}

	var logs strings.Builder
	got, err := NewImageStage(opt, OnErrorSkip, newTestLogger(&logs)).Process(context.Background(), bad)
	if err != nil {
		t.Fatalf("skip policy returned error: %v", err)
	}
	if got != bad {
		t.Error("skip policy did not keep the record")
	}
	if !strings.Contains(logs.String(), "icon.svg") {
		t.Errorf("warning does not name the file: %q", logs.String())
	}
}

func newTestLogger(w *strings.Builder) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
