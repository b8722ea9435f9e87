package pipeline

// Notes:
// - InferDimensions is tested through exact output comparison so that the
//   "byte-identical except the inserted attributes" contract is checked
// - The blind scan path (no <svg> start tag) is covered with a <symbol> fragment
// - Stream behavior is tested through Runner with SVGSize as the only stage

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestInferDimensions - Successful Transformations
// ---------------------------------------------------------------------------

func TestInferDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "integer viewBox",
			in:   `<svg viewBox="0 0 100 200"></svg>`,
			want: `<svg viewBox="0 0 100 200" width="100" height="200"></svg>`,
		},
		{
			name: "one fractional digit is kept, further digits dropped",
			in:   `<svg viewBox="0 0 100.5 200.25"></svg>`,
			want: `<svg viewBox="0 0 100.5 200.25" width="100.5" height="200.2"></svg>`,
		},
		{
			name: "other attributes preserved in place",
			in:   `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="none"><path d="M0 0h24v24H0z"/></svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24" fill="none"><path d="M0 0h24v24H0z"/></svg>`,
		},
		{
			name: "xml prolog and comment before root",
			in:   "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!-- logo -->\n<svg viewBox=\"0 0 48 16\">\n</svg>\n",
			want: "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!-- logo -->\n<svg viewBox=\"0 0 48 16\" width=\"48\" height=\"16\">\n</svg>\n",
		},
		{
			name: "nested svg left alone",
			in:   `<svg viewBox="0 0 10 20"><svg viewBox="0 0 1 2"></svg></svg>`,
			want: `<svg viewBox="0 0 10 20" width="10" height="20"><svg viewBox="0 0 1 2"></svg></svg>`,
		},
		{
			name: "stroke-width is not a size attribute",
			in:   `<svg stroke-width="2" viewBox="0 0 8 8"/>`,
			want: `<svg stroke-width="2" viewBox="0 0 8 8" width="8" height="8"/>`,
		},
		{
			name: "no svg tag falls back to first declaration",
			in:   `<symbol id="a" viewBox="0 0 8 9"></symbol><symbol viewBox="0 0 1 1"></symbol>`,
			want: `<symbol id="a" viewBox="0 0 8 9" width="8" height="9"></symbol><symbol viewBox="0 0 1 1"></symbol>`,
		},
		{
			name: "non-zero origin",
			in:   `<svg viewBox="10 20 300 150"></svg>`,
			want: `<svg viewBox="10 20 300 150" width="300" height="150"></svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := InferDimensions([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestInferDimensions_Errors - Failure Conditions
// ---------------------------------------------------------------------------

func TestInferDimensions_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"empty document", ``, ErrMissingViewBox},
		{"svg without viewBox", `<svg width="10"></svg>`, ErrMissingViewBox},
		{"viewBox only on nested svg", `<svg><svg viewBox="0 0 1 2"></svg></svg>`, ErrMissingViewBox},
		{"plain text", `hello world`, ErrMissingViewBox},
		{"three numbers", `<svg viewBox="0 0 100"></svg>`, ErrMalformedViewBox},
		{"single run of digits", `<svg viewBox="1000"></svg>`, ErrMalformedViewBox},
		{"comma separated", `<svg viewBox="0,0,10,10"></svg>`, ErrMalformedViewBox},
		{"negative origin", `<svg viewBox="-1 0 10 10"></svg>`, ErrMalformedViewBox},
		{"letters", `<svg viewBox="a b c d"></svg>`, ErrMalformedViewBox},
		{"single quotes", `<svg viewBox='0 0 10 10'></svg>`, ErrMalformedViewBox},
		{"width already set", `<svg width="5" viewBox="0 0 1 1"></svg>`, ErrAlreadySized},
		{"height already set", `<svg viewBox="0 0 1 1" height="5"></svg>`, ErrAlreadySized},
		{"height after viewBox without svg tag", `<symbol viewBox="0 0 1 1" height="3">`, ErrAlreadySized},
		{"width before viewBox without svg tag", `<symbol width="3" viewBox="0 0 1 1">`, ErrAlreadySized},
		{"spaced width without svg tag", `<symbol viewBox="0 0 1 1" width = "3"/>`, ErrAlreadySized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := InferDimensions([]byte(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("output = %q, want nil on error", got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestInferDimensions_Idempotence - Double Application
// ---------------------------------------------------------------------------

func TestInferDimensions_Idempotence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"svg root", `<svg viewBox="0 0 100 200"></svg>`},
		{"blind scan", `<symbol viewBox="0 0 100 200"></symbol>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			once, err := InferDimensions([]byte(tt.in))
			if err != nil {
				t.Fatalf("first pass: %v", err)
			}
			_, err = InferDimensions(once)
			if !errors.Is(err, ErrAlreadySized) {
				t.Errorf("second pass error = %v, want ErrAlreadySized", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestInferDimensions_DoesNotMutateInput - Input Ownership
// ---------------------------------------------------------------------------

func TestInferDimensions_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	// Extra capacity makes an in-place append observable.
	in := make([]byte, 0, 256)
	in = append(in, `<SVG VIEWBOX="x" viewBox="0 0 3 4"></SVG>`...)
	orig := append([]byte(nil), in...)

	out, err := InferDimensions(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(in, orig) {
		t.Errorf("input mutated: %q", in)
	}
	if bytes.Equal(out, in) {
		t.Error("output equals input")
	}
	if !bytes.Contains(out, []byte(`viewBox="0 0 3 4" width="3" height="4"`)) {
		t.Errorf("output = %q", out)
	}
	if !bytes.HasPrefix(out, []byte(`<SVG VIEWBOX="x" `)) {
		t.Errorf("tag casing not preserved: %q", out)
	}
}

// ---------------------------------------------------------------------------
// TestSVGSize_Process - Record Stage
// ---------------------------------------------------------------------------

func TestSVGSize_Process(t *testing.T) {
	t.Parallel()

	stage := NewSVGSizeStage()
	ctx := context.Background()

	t.Run("null record passes through", func(t *testing.T) {
		t.Parallel()

		rec := &Record{Path: "images/"}
		got, err := stage.Process(ctx, rec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != rec {
			t.Error("null record was replaced")
		}
	})

	t.Run("payload rewritten on a new record", func(t *testing.T) {
		t.Parallel()

		rec := &Record{Path: "logo.svg", Contents: []byte(`<svg viewBox="0 0 1 2"/>`)}
		got, err := stage.Process(ctx, rec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == rec {
			t.Fatal("input record returned")
		}
		if string(rec.Contents) != `<svg viewBox="0 0 1 2"/>` {
			t.Errorf("input contents changed: %q", rec.Contents)
		}
		if string(got.Contents) != `<svg viewBox="0 0 1 2" width="1" height="2"/>` {
			t.Errorf("contents = %q", got.Contents)
		}
		if got.Path != rec.Path {
			t.Errorf("path = %q, want %q", got.Path, rec.Path)
		}
	})

	t.Run("binary payload rejected", func(t *testing.T) {
		t.Parallel()

		rec := &Record{Path: "bad.svg", Contents: []byte{0xff, 0xfe, 0x00}}
		_, err := stage.Process(ctx, rec)
		if !errors.Is(err, ErrNotText) {
			t.Errorf("error = %v, want ErrNotText", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		rec := &Record{Path: "logo.svg", Contents: []byte(`<svg viewBox="0 0 1 2"/>`)}
		_, err := stage.Process(cctx, rec)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestSVGSize_Stream - Order And Null Records
// ---------------------------------------------------------------------------

func TestSVGSize_Stream(t *testing.T) {
	t.Parallel()

	records := []*Record{
		{Path: "a.svg", Contents: []byte(`<svg viewBox="0 0 1 1"/>`)},
		{Path: "icons"},
		{Path: "b.svg", Contents: []byte(`<svg viewBox="0 0 2 2"/>`)},
	}

	r := &Runner{Stages: []Stage{NewSVGSizeStage()}}
	got, err := r.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}

	wantPaths := []string{"a.svg", "icons", "b.svg"}
	for i, rec := range got {
		if rec.Path != wantPaths[i] {
			t.Errorf("record %d path = %q, want %q", i, rec.Path, wantPaths[i])
		}
	}
	if got[1] != records[1] {
		t.Error("null record was not passed through unchanged")
	}
	if string(got[0].Contents) != `<svg viewBox="0 0 1 1" width="1" height="1"/>` {
		t.Errorf("first record = %q", got[0].Contents)
	}
	if string(got[2].Contents) != `<svg viewBox="0 0 2 2" width="2" height="2"/>` {
		t.Errorf("third record = %q", got[2].Contents)
	}
}

func TestSVGSize_StreamMissingViewBoxNamesDocument(t *testing.T) {
	t.Parallel()

	records := []*Record{
		{Path: "ok.svg", Contents: []byte(`<svg viewBox="0 0 1 1"/>`)},
		{Path: "broken.svg", Contents: []byte(`<svg/>`)},
	}

	r := &Runner{Stages: []Stage{NewSVGSizeStage()}}
	_, err := r.Run(context.Background(), records)

	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("error = %v, want *RecordError", err)
	}
	if recErr.Path != "broken.svg" {
		t.Errorf("path = %q, want broken.svg", recErr.Path)
	}
	if recErr.Stage != "svg-size" {
		t.Errorf("stage = %q, want svg-size", recErr.Stage)
	}
	if !errors.Is(err, ErrMissingViewBox) {
		t.Errorf("error = %v, want ErrMissingViewBox", err)
	}
}
