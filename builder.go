package mailbuild

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/alnah/go-mailbuild/internal/assets"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.CSSInjector       = (*pipeline.CSSInjection)(nil)
	_ pipeline.PreheaderInjector = (*pipeline.PreheaderInjection)(nil)
	_ pipeline.Compiler          = (*pipeline.MJMLCompiler)(nil)
)

// MaxNameLength bounds Input.Name.
const MaxNameLength = 255

// Builder turns MJML email sources into inlined HTML.
// A Builder is safe for concurrent use once created.
type Builder struct {
	cfg         builderConfig
	logger      *slog.Logger
	assetLoader assets.AssetLoader
	assembler   *pipeline.Assembler
	compiler    pipeline.Compiler
	cssInjector pipeline.CSSInjector
	preheader   pipeline.PreheaderInjector
	inliner     *pipeline.Inliner
	baseCSS     string
}

// NewBuilder creates a Builder. Inlining is enabled by default, keeping
// media queries and mirroring widths to attributes.
// Returns an error if partials, the base style, or the MJML options
// cannot be loaded.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		cfg: builderConfig{
			timeout: defaultTimeout,
			inline:  &InlineOptions{PreserveMediaQueries: true, ApplyWidthAttributes: true},
		},
		logger:      slog.New(slog.DiscardHandler),
		assetLoader: assets.NewEmbeddedLoader(),
		cssInjector: &pipeline.CSSInjection{},
		preheader:   &pipeline.PreheaderInjection{},
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(b.cfg.assetPath)
		if err != nil {
			return nil, err
		}
		b.assetLoader = resolver
		b.logger.Debug("project styles enabled", "dir", b.cfg.assetPath, "custom", resolver.HasCustomLoader())
	}

	if err := b.resolveStyle(); err != nil {
		return nil, err
	}

	partials, err := b.loadPartials()
	if err != nil {
		return nil, err
	}

	asmOpts := []pipeline.AssemblerOption{
		pipeline.WithAssemblerPartials(partials),
		pipeline.WithAssemblerData(b.cfg.data),
	}
	if b.cfg.clock != nil {
		asmOpts = append(asmOpts, pipeline.WithAssemblerClock(b.cfg.clock))
	}
	b.assembler = pipeline.NewAssembler(asmOpts...)

	if b.compiler == nil {
		compiler, err := pipeline.NewMJMLCompiler(b.cfg.mjml)
		if err != nil {
			return nil, err
		}
		b.compiler = compiler
	}

	if b.cfg.inline != nil {
		b.inliner = pipeline.NewInliner(*b.cfg.inline)
	}

	b.logger.Debug("builder ready",
		"partials", len(partials),
		"inline", b.inliner != nil,
		"validation", b.cfg.mjml.Validation,
	)
	return b, nil
}

// resolveStyle resolves the base style input (name, path, or CSS content)
// to CSS content.
func (b *Builder) resolveStyle() error {
	input := b.cfg.baseStyle
	if input == "" {
		return nil
	}

	// File path? (contains / or \)
	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("loading style file %q: %w", input, err)
		}
		b.baseCSS = string(content)
		return nil
	}

	// CSS content? (contains {)
	if strings.Contains(input, "{") {
		b.baseCSS = input
		return nil
	}

	css, err := b.assetLoader.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("loading style %q: %w", input, err)
	}
	b.baseCSS = css
	return nil
}

// loadPartials reads the partials directory, then overlays explicit partials.
func (b *Builder) loadPartials() (map[string]string, error) {
	partials := make(map[string]string)
	if b.cfg.partialsDir != "" {
		loaded, err := assets.LoadPartials(b.cfg.partialsDir)
		if err != nil {
			return nil, fmt.Errorf("loading partials: %w", err)
		}
		maps.Copy(partials, loaded)
	}
	maps.Copy(partials, b.cfg.partials)
	return partials, nil
}

// Build runs the full pipeline for one email.
// The context is used for cancellation; without a deadline, the builder
// timeout applies. Recovers from internal panics to prevent crashes from
// propagating to callers.
func (b *Builder) Build(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %s: %v", input.Name, r)
		}
	}()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.timeout)
		defer cancel()
	}

	// Assemble Handlebars
	mjmlSrc, err := b.assembler.Render(ctx, input.Name, input.Source, input.Data)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Compile MJML
	htmlContent, err := b.compiler.Compile(ctx, input.Name, mjmlSrc)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	htmlContent = b.preheader.InjectPreheader(ctx, htmlContent, input.Preheader)

	// Base style first, email CSS last so it can override
	cssContent := b.baseCSS
	if input.CSS != "" {
		if cssContent != "" {
			cssContent += "\n"
		}
		cssContent += input.CSS
	}

	if b.inliner != nil {
		htmlContent, err = b.inliner.Inline(ctx, htmlContent, cssContent)
		if err != nil {
			return nil, fmt.Errorf("inlining %s: %w", input.Name, err)
		}
	} else {
		htmlContent = b.cssInjector.InjectCSS(ctx, htmlContent, cssContent)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if input.BaseURL != "" {
		htmlContent, err = pipeline.RewriteAssetURLs(htmlContent, input.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("rewriting asset URLs: %w", err)
		}
	}

	b.logger.Debug("built", "email", input.Name, "bytes", len(htmlContent))
	return &Result{MJML: mjmlSrc, HTML: htmlContent}, nil
}

// validateInput checks that required fields are present and valid.
//
// Library users build Input by hand; CLI input has already passed
// Config.Validate. Both paths converge here.
func validateInput(input Input) error {
	if strings.TrimSpace(input.Source) == "" {
		return ErrEmptySource
	}
	return validateName(input.Name)
}

// validateName accepts slash-separated relative names without traversal.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	case strings.ContainsAny(name, "\\\x00"), strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
