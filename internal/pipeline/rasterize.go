package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// ErrRasterize indicates an SVG could not be rendered to PNG.
var ErrRasterize = errors.New("SVG rasterization failed")

// maxRasterSide bounds the rendered image so a huge viewBox cannot
// allocate unbounded memory.
const maxRasterSide = 8192

// Rasterize renders an SVG document to PNG at scale times its viewBox size.
func Rasterize(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}

	w := int(math.Ceil(icon.ViewBox.W * scale))
	h := int(math.Ceil(icon.ViewBox.H * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty viewBox", ErrRasterize)
	}
	if w > maxRasterSide || h > maxRasterSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrRasterize, w, h, maxRasterSide)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	return buf.Bytes(), nil
}

// RasterizeStage adds a .png sibling after every .svg record.
// It is a fan-out stage and runs through Expand rather than Runner.
type RasterizeStage struct {
	scale float64
}

// NewRasterizeStage creates a rasterize stage rendering at scale.
func NewRasterizeStage(scale float64) *RasterizeStage {
	return &RasterizeStage{scale: scale}
}

// Name returns the stage name.
func (s *RasterizeStage) Name() string { return "rasterize" }

// Expand returns the records with a rendered PNG inserted after each SVG.
// Input records are returned as they are, in order.
func (s *RasterizeStage) Expand(ctx context.Context, records []*Record) ([]*Record, error) {
	out := make([]*Record, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, rec)
		if rec.IsNull() || rec.Ext() != ".svg" {
			continue
		}
		data, err := Rasterize(rec.Contents, s.scale)
		if err != nil {
			return out, &RecordError{Path: rec.Path, Stage: s.Name(), Err: err}
		}
		out = append(out, rec.WithExt(".png").WithContents(data))
	}
	return out, nil
}
