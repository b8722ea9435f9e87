package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/tdewolff/minify/v2"
	minifycss "github.com/tdewolff/minify/v2/css"
	minifysvg "github.com/tdewolff/minify/v2/svg"
	"golang.org/x/image/draw"
)

// Sentinel errors for image optimization.
var (
	ErrImageDecode = errors.New("image decode failed")
	ErrImageEncode = errors.New("image encode failed")
)

// Error policies for images that cannot be processed.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

// DefaultJPEGQuality is used when ImageOptions.JPEGQuality is zero.
const DefaultJPEGQuality = 85

// ImageOptions configures the optimizer.
type ImageOptions struct {
	MaxWidth    int  // 0 disables downscaling
	JPEGQuality int  // 1-100; 0 means DefaultJPEGQuality
	SVGSize     bool // add width/height inferred from viewBox
	SVGMinify   bool
}

// ImageOptimizer re-encodes raster images and cleans up SVG files.
type ImageOptimizer struct {
	opts     ImageOptions
	minifier *minify.M
}

// NewImageOptimizer creates an optimizer.
func NewImageOptimizer(opts ImageOptions) *ImageOptimizer {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	m := minify.New()
	m.AddFunc("text/css", minifycss.Minify)
	m.AddFunc("image/svg+xml", minifysvg.Minify)
	return &ImageOptimizer{opts: opts, minifier: m}
}

// OptimizePNG downscales and recompresses a PNG. The original bytes are
// returned when the result would not be smaller.
func (o *ImageOptimizer) OptimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrImageDecode, err)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, o.downscale(img)); err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrImageEncode, err)
	}
	return smaller(data, buf.Bytes()), nil
}

// OptimizeJPEG downscales and re-encodes a JPEG at the configured quality.
// The original bytes are returned when the result would not be smaller.
func (o *ImageOptimizer) OptimizeJPEG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg: %v", ErrImageDecode, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, o.downscale(img), &jpeg.Options{Quality: o.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: jpeg: %v", ErrImageEncode, err)
	}
	return smaller(data, buf.Bytes()), nil
}

// OptimizeSVG infers dimensions and minifies, as configured.
// Documents that already declare width and height keep them.
func (o *ImageOptimizer) OptimizeSVG(data []byte) ([]byte, error) {
	out := data
	if o.opts.SVGSize {
		sized, err := InferDimensions(out)
		switch {
		case errors.Is(err, ErrAlreadySized):
		case err != nil:
			return nil, err
		default:
			out = sized
		}
	}
	if o.opts.SVGMinify {
		minified, err := o.minifier.Bytes("image/svg+xml", out)
		if err != nil {
			return nil, fmt.Errorf("%w: svg: %v", ErrImageEncode, err)
		}
		out = minified
	}
	return out, nil
}

// downscale returns img resized to MaxWidth, keeping the aspect ratio.
// Images already narrow enough are returned unchanged.
func (o *ImageOptimizer) downscale(img image.Image) image.Image {
	b := img.Bounds()
	if o.opts.MaxWidth <= 0 || b.Dx() <= o.opts.MaxWidth {
		return img
	}
	h := b.Dy() * o.opts.MaxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, o.opts.MaxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func smaller(orig, candidate []byte) []byte {
	if len(candidate) < len(orig) {
		return candidate
	}
	return orig
}

// ImageStage optimizes image records by extension. Other records pass
// through untouched.
type ImageStage struct {
	optimizer *ImageOptimizer
	onError   string
	logger    *slog.Logger
}

// NewImageStage creates an image stage. With onError set to OnErrorSkip,
// an image that fails to process is kept as it was and a warning is
// logged; otherwise the error is returned.
func NewImageStage(o *ImageOptimizer, onError string, logger *slog.Logger) *ImageStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ImageStage{optimizer: o, onError: onError, logger: logger}
}

// Name returns the stage name.
func (s *ImageStage) Name() string { return "images" }

// Process optimizes the record payload. Null records pass through.
func (s *ImageStage) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out []byte
		err error
	)
	switch rec.Ext() {
	case ".png":
		out, err = s.optimizer.OptimizePNG(rec.Contents)
	case ".jpg", ".jpeg":
		out, err = s.optimizer.OptimizeJPEG(rec.Contents)
	case ".svg":
		out, err = s.optimizer.OptimizeSVG(rec.Contents)
	default:
		return rec, nil
	}

	if err != nil {
		if s.onError == OnErrorSkip {
			s.logger.Warn("image left unoptimized", "path", rec.Path, "error", err)
			return rec, nil
		}
		return nil, err
	}
	return rec.WithContents(out), nil
}
