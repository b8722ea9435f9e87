package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
	"time"

	"github.com/mailgun/raymond/v2"

	"github.com/alnah/go-mailbuild/internal/dateutil"
)

// ErrTemplateRender indicates a Handlebars template failed to parse or render.
var ErrTemplateRender = errors.New("template rendering failed")

// Assembler renders Handlebars email sources with shared partials and data.
type Assembler struct {
	partials map[string]string
	data     map[string]any
	markdown MarkdownRenderer
	now      func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerPartials sets the partials available as {{> name}}.
func WithAssemblerPartials(partials map[string]string) AssemblerOption {
	return func(a *Assembler) {
		a.partials = partials
	}
}

// WithAssemblerData sets the data shared by every template.
func WithAssemblerData(data map[string]any) AssemblerOption {
	return func(a *Assembler) {
		a.data = data
	}
}

// WithAssemblerClock sets the build time used by the date helpers.
func WithAssemblerClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithMarkdownRenderer replaces the renderer behind the markdown helper.
func WithMarkdownRenderer(md MarkdownRenderer) AssemblerOption {
	return func(a *Assembler) {
		a.markdown = md
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		markdown: NewGoldmarkRenderer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Render evaluates src as a Handlebars template named name.
// The context is the shared data, overlaid by data, plus "email" (the
// template name) and "build" (the build date in ISO format).
func (a *Assembler) Render(ctx context.Context, name, src string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tpl, err := raymond.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateRender, name, err)
	}

	built := a.now()
	if err := a.register(ctx, tpl, built); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateRender, name, err)
	}

	out, err := tpl.Exec(a.context(name, data, built))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTemplateRender, name, err)
	}
	return out, nil
}

func (a *Assembler) context(name string, data map[string]any, built time.Time) map[string]any {
	merged := make(map[string]any, len(a.data)+len(data)+2)
	maps.Copy(merged, a.data)
	maps.Copy(merged, data)
	merged["email"] = name
	merged["build"] = built.Format("2006-01-02")
	return merged
}

// register installs partials and helpers on tpl. raymond panics on
// duplicate or invalid registrations, so those are turned into errors.
func (a *Assembler) register(ctx context.Context, tpl *raymond.Template, built time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	tpl.RegisterPartials(a.partials)
	tpl.RegisterHelpers(map[string]any{
		"markdown": a.markdownHelper(ctx),
		"date": func(format string) string {
			s, err := dateutil.Format(built, format)
			if err != nil {
				panic(err)
			}
			return s
		},
		"year": func() string {
			return built.Format("2006")
		},
		"default": func(value, fallback any) any {
			if raymond.IsTrue(value) {
				return value
			}
			return fallback
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	})
	return nil
}

// markdownHelper renders {{#markdown}}...{{/markdown}} blocks or
// {{markdown text=value}}. Errors panic, which raymond reports from Exec.
func (a *Assembler) markdownHelper(ctx context.Context) func(*raymond.Options) raymond.SafeString {
	return func(options *raymond.Options) raymond.SafeString {
		text := options.HashStr("text")
		if text == "" {
			text = options.Fn()
		}
		out, err := a.markdown.Render(ctx, dedent(text))
		if err != nil {
			panic(err)
		}
		return raymond.SafeString(out)
	}
}

// dedent strips the indentation shared by all non-blank lines so block
// content nested in markup is not read as a code block.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix == -1 || n < prefix {
			prefix = n
		}
	}
	if prefix <= 0 {
		return s
	}
	for i, line := range lines {
		if len(line) >= prefix {
			lines[i] = line[prefix:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// AssembleStage renders .mjml records with an Assembler.
type AssembleStage struct {
	assembler *Assembler
	data      map[string]any
}

// NewAssembleStage creates a stage rendering each record with data.
func NewAssembleStage(a *Assembler, data map[string]any) *AssembleStage {
	return &AssembleStage{assembler: a, data: data}
}

// Name returns the stage name.
func (s *AssembleStage) Name() string { return "assemble" }

// Process renders the record payload. Null records pass through.
func (s *AssembleStage) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	name := strings.TrimSuffix(rec.Path, path.Ext(rec.Path))
	out, err := s.assembler.Render(ctx, name, string(rec.Contents), s.data)
	if err != nil {
		return nil, err
	}
	return rec.WithContents([]byte(out)), nil
}
