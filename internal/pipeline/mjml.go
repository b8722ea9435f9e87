package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Boostport/mjml-go"
)

// Sentinel errors for MJML compilation.
var (
	ErrMJMLCompile       = errors.New("MJML compilation failed")
	ErrInvalidValidation = errors.New("invalid MJML validation level")
)

// Validation levels accepted by the compiler.
const (
	ValidationStrict = "strict"
	ValidationSoft   = "soft"
	ValidationSkip   = "skip"
)

// CompileDetail is one validation message reported by the compiler.
type CompileDetail struct {
	Line    int
	Tag     string
	Message string
}

// CompileError reports an MJML compilation failure for a template.
type CompileError struct {
	Template string
	Message  string
	Details  []CompileDetail
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Template, e.Message)
	for _, d := range e.Details {
		fmt.Fprintf(&b, "\n  line %d <%s>: %s", d.Line, d.Tag, d.Message)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return ErrMJMLCompile }

// MJMLOptions configures the compiler output.
type MJMLOptions struct {
	Minify       bool
	Beautify     bool
	KeepComments bool
	Validation   string // strict, soft or skip; empty means soft
}

// Compiler compiles MJML documents to HTML.
type Compiler interface {
	Compile(ctx context.Context, name, src string) (string, error)
}

// MJMLCompiler compiles MJML using the embedded mjml runtime.
type MJMLCompiler struct {
	opts []mjml.ToHTMLOption
}

var _ Compiler = (*MJMLCompiler)(nil)

// NewMJMLCompiler creates a compiler. Returns ErrInvalidValidation for an
// unknown validation level.
func NewMJMLCompiler(o MJMLOptions) (*MJMLCompiler, error) {
	level, err := validationLevel(o.Validation)
	if err != nil {
		return nil, err
	}
	return &MJMLCompiler{opts: []mjml.ToHTMLOption{
		mjml.WithMinify(o.Minify),
		mjml.WithBeautify(o.Beautify),
		mjml.WithKeepComments(o.KeepComments),
		mjml.WithValidationLevel(level),
	}}, nil
}

func validationLevel(s string) (mjml.ValidationLevel, error) {
	switch strings.ToLower(s) {
	case "", ValidationSoft:
		return mjml.Soft, nil
	case ValidationStrict:
		return mjml.Strict, nil
	case ValidationSkip:
		return mjml.Skip, nil
	default:
		return mjml.Soft, fmt.Errorf("%w: %q (use strict, soft or skip)", ErrInvalidValidation, s)
	}
}

// Compile converts src to HTML. Compiler errors are returned as *CompileError.
func (c *MJMLCompiler) Compile(ctx context.Context, name, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := mjml.ToHTML(ctx, src, c.opts...)
	if err != nil {
		var mErr mjml.Error
		if errors.As(err, &mErr) {
			ce := &CompileError{Template: name, Message: mErr.Message}
			for _, d := range mErr.Details {
				ce.Details = append(ce.Details, CompileDetail{Line: d.Line, Tag: d.TagName, Message: d.Message})
			}
			return "", ce
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v", ErrMJMLCompile, name, err)
	}
	return out, nil
}

// CompileStage compiles .mjml records into .html records.
type CompileStage struct {
	compiler Compiler
}

// NewCompileStage creates a compile stage.
func NewCompileStage(c Compiler) *CompileStage {
	return &CompileStage{compiler: c}
}

// Name returns the stage name.
func (s *CompileStage) Name() string { return "mjml" }

// Process compiles the payload and renames the record to .html.
// Null records pass through.
func (s *CompileStage) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	out, err := s.compiler.Compile(ctx, rec.Path, string(rec.Contents))
	if err != nil {
		return nil, err
	}
	return rec.WithExt(".html").WithContents([]byte(out)), nil
}
