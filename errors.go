package mailbuild

import (
	"errors"

	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrEmptySource    = errors.New("email source cannot be empty")
	ErrInvalidName    = errors.New("invalid email name")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("screenshot failed")

	// Viewport validation errors.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// Pipeline errors, re-exported for errors.Is checks.
var (
	ErrMissingViewBox   = pipeline.ErrMissingViewBox
	ErrMalformedViewBox = pipeline.ErrMalformedViewBox
	ErrAlreadySized     = pipeline.ErrAlreadySized
	ErrTemplateRender   = pipeline.ErrTemplateRender
	ErrMJMLCompile      = pipeline.ErrMJMLCompile
	ErrInline           = pipeline.ErrInline
	ErrRasterize        = pipeline.ErrRasterize
)
