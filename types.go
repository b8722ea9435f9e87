package mailbuild

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"time"

	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Input contains the data for a single email build.
type Input struct {
	Name      string         // Template name, e.g. "welcome" or "promo/sale"
	Source    string         // Required: MJML with Handlebars expressions
	Data      map[string]any // Overlays the builder's shared data
	CSS       string         // Processed stylesheet, appended after the base style
	Preheader string         // Optional inbox preview text
	BaseURL   string         // Optional: rewrite relative image refs to this public URL
}

// Result contains the build outputs.
type Result struct {
	MJML string // Assembled source, before compilation
	HTML string // Final, inlined HTML
}

// Viewport describes a screenshot size.
type Viewport struct {
	Name   string
	Width  int
	Height int
	Scale  float64 // Device scale factor; 0 means 1
	Mobile bool
}

// Viewport bounds.
const (
	MinViewportSide  = 1
	MaxViewportSide  = 4096
	MaxViewportScale = 4
)

var viewportNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// DefaultViewports returns the desktop and mobile proof sizes.
func DefaultViewports() []Viewport {
	return []Viewport{
		{Name: "desktop", Width: 600, Height: 800, Scale: 1},
		{Name: "mobile", Width: 375, Height: 667, Scale: 2, Mobile: true},
	}
}

// Validate checks the viewport name and bounds.
func (v Viewport) Validate() error {
	if !viewportNamePattern.MatchString(v.Name) {
		return fmt.Errorf("%w: name %q (lowercase letters, digits, '-' and '_')", ErrInvalidViewport, v.Name)
	}
	if v.Width < MinViewportSide || v.Width > MaxViewportSide {
		return fmt.Errorf("%w: %s width %d (must be %d-%d)", ErrInvalidViewport, v.Name, v.Width, MinViewportSide, MaxViewportSide)
	}
	if v.Height < MinViewportSide || v.Height > MaxViewportSide {
		return fmt.Errorf("%w: %s height %d (must be %d-%d)", ErrInvalidViewport, v.Name, v.Height, MinViewportSide, MaxViewportSide)
	}
	if v.Scale < 0 || v.Scale > MaxViewportScale {
		return fmt.Errorf("%w: %s scale %g (must be 0-%d)", ErrInvalidViewport, v.Name, v.Scale, MaxViewportScale)
	}
	return nil
}

// InlineOptions configures CSS inlining.
type InlineOptions = pipeline.InlineOptions

// Option configures a Builder.
type Option func(*Builder)

// builderConfig holds internal configuration for Builder.
type builderConfig struct {
	timeout     time.Duration
	partials    map[string]string
	partialsDir string
	data        map[string]any
	mjml        pipeline.MJMLOptions
	inline      *InlineOptions // nil disables inlining
	baseStyle   string
	assetPath   string
	clock       func() time.Time
}

// defaultTimeout bounds a single Build when the context has no deadline.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the per-email build timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mailbuild: WithTimeout duration must be positive")
	}
	return func(b *Builder) {
		b.cfg.timeout = d
	}
}

// WithPartials adds partials available as {{> name}}.
// Entries override partials of the same name loaded with WithPartialsDir.
func WithPartials(partials map[string]string) Option {
	return func(b *Builder) {
		if b.cfg.partials == nil {
			b.cfg.partials = make(map[string]string, len(partials))
		}
		maps.Copy(b.cfg.partials, partials)
	}
}

// WithPartialsDir loads every .hbs, .handlebars and .mjml file under dir as
// a partial named by its path without extension, e.g. "layout/header".
func WithPartialsDir(dir string) Option {
	return func(b *Builder) {
		b.cfg.partialsDir = dir
	}
}

// WithData sets data shared by every email.
func WithData(data map[string]any) Option {
	return func(b *Builder) {
		b.cfg.data = data
	}
}

// WithMinify minifies the compiled HTML.
func WithMinify(enabled bool) Option {
	return func(b *Builder) {
		b.cfg.mjml.Minify = enabled
	}
}

// WithBeautify pretty-prints the compiled HTML.
func WithBeautify(enabled bool) Option {
	return func(b *Builder) {
		b.cfg.mjml.Beautify = enabled
	}
}

// WithKeepComments keeps HTML comments from the MJML source.
func WithKeepComments(enabled bool) Option {
	return func(b *Builder) {
		b.cfg.mjml.KeepComments = enabled
	}
}

// WithValidation sets the MJML validation level: strict, soft or skip.
func WithValidation(level string) Option {
	return func(b *Builder) {
		b.cfg.mjml.Validation = level
	}
}

// WithInline enables CSS inlining with opts.
func WithInline(opts InlineOptions) Option {
	return func(b *Builder) {
		b.cfg.inline = &opts
	}
}

// WithoutInline injects CSS as a <style> block without inlining.
func WithoutInline() Option {
	return func(b *Builder) {
		b.cfg.inline = nil
	}
}

// WithBaseStyle sets the built-in or custom style prepended to every
// email's CSS. Accepts a style name ("reset") or raw CSS content.
func WithBaseStyle(nameOrCSS string) Option {
	return func(b *Builder) {
		b.cfg.baseStyle = nameOrCSS
	}
}

// WithAssetPath sets a directory of custom styles ({name}.css) searched
// before the built-in ones when WithBaseStyle is given a name.
func WithAssetPath(dir string) Option {
	return func(b *Builder) {
		b.cfg.assetPath = dir
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the time source used by the date helpers.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.cfg.clock = now
		}
	}
}
