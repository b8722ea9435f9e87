package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/tdewolff/minify/v2"
	minifycss "github.com/tdewolff/minify/v2/css"
)

// Sentinel errors for stylesheet processing.
var (
	ErrStylesheetParse  = errors.New("stylesheet parse failed")
	ErrStylesheetMinify = errors.New("stylesheet minify failed")
)

// vendorPrefixes lists the email-relevant properties that still need
// prefixed variants in some clients, with the prefixes to add.
var vendorPrefixes = map[string][]string{
	"text-size-adjust": {"-webkit-", "-ms-"},
	"box-sizing":       {"-webkit-", "-moz-"},
	"appearance":       {"-webkit-", "-moz-"},
	"hyphens":          {"-webkit-", "-ms-"},
	"user-select":      {"-webkit-", "-moz-", "-ms-"},
	"transition":       {"-webkit-"},
	"transform":        {"-webkit-", "-ms-"},
}

// StylesheetOptions selects the stylesheet transforms to apply.
type StylesheetOptions struct {
	Autoprefix        bool
	GroupMediaQueries bool
	Minify            bool
}

// Stylesheet parses and rewrites CSS sources.
type Stylesheet struct {
	opts     StylesheetOptions
	minifier *minify.M
}

// NewStylesheet creates a stylesheet processor.
func NewStylesheet(opts StylesheetOptions) *Stylesheet {
	m := minify.New()
	m.AddFunc("text/css", minifycss.Minify)
	return &Stylesheet{opts: opts, minifier: m}
}

// Transform parses src and applies the configured transforms in order:
// prefixing, media query grouping, minification.
func (s *Stylesheet) Transform(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sheet, err := parser.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStylesheetParse, err)
	}

	if s.opts.Autoprefix {
		autoprefix(sheet.Rules)
	}
	if s.opts.GroupMediaQueries {
		sheet.Rules = groupMediaQueries(sheet.Rules)
	}

	out := sheet.String()
	if s.opts.Minify {
		out, err = s.minifier.String("text/css", out)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStylesheetMinify, err)
		}
	}
	return out, nil
}

// autoprefix inserts vendor-prefixed declarations before each unprefixed
// declaration listed in vendorPrefixes, unless the rule already has them.
func autoprefix(rules []*css.Rule) {
	for _, rule := range rules {
		if len(rule.Rules) > 0 {
			autoprefix(rule.Rules)
		}
		if len(rule.Declarations) == 0 {
			continue
		}

		present := make(map[string]bool, len(rule.Declarations))
		for _, decl := range rule.Declarations {
			present[decl.Property] = true
		}

		out := make([]*css.Declaration, 0, len(rule.Declarations))
		for _, decl := range rule.Declarations {
			for _, prefix := range vendorPrefixes[decl.Property] {
				if present[prefix+decl.Property] {
					continue
				}
				out = append(out, &css.Declaration{
					Property:  prefix + decl.Property,
					Value:     decl.Value,
					Important: decl.Important,
				})
				present[prefix+decl.Property] = true
			}
			out = append(out, decl)
		}
		rule.Declarations = out
	}
}

// groupMediaQueries merges top-level @media rules sharing a prelude and
// moves them after every other rule, keeping first-seen order.
func groupMediaQueries(rules []*css.Rule) []*css.Rule {
	var plain, media []*css.Rule
	byPrelude := make(map[string]*css.Rule)

	for _, rule := range rules {
		if rule.Kind != css.AtRule || rule.Name != "@media" {
			plain = append(plain, rule)
			continue
		}

		key := strings.Join(strings.Fields(rule.Prelude), " ")
		if group, ok := byPrelude[key]; ok {
			group.Rules = append(group.Rules, rule.Rules...)
			continue
		}

		group := &css.Rule{
			Kind:       css.AtRule,
			Name:       rule.Name,
			Prelude:    rule.Prelude,
			Rules:      append([]*css.Rule(nil), rule.Rules...),
			EmbedLevel: rule.EmbedLevel,
		}
		byPrelude[key] = group
		media = append(media, group)
	}

	return append(plain, media...)
}

// StylesheetStage applies a Stylesheet to .css records.
type StylesheetStage struct {
	sheet *Stylesheet
}

// NewStylesheetStage creates a stylesheet stage.
func NewStylesheetStage(sheet *Stylesheet) *StylesheetStage {
	return &StylesheetStage{sheet: sheet}
}

// Name returns the stage name.
func (s *StylesheetStage) Name() string { return "css" }

// Process transforms the record payload. Null records pass through.
func (s *StylesheetStage) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	out, err := s.sheet.Transform(ctx, string(rec.Contents))
	if err != nil {
		return nil, err
	}
	return rec.WithContents([]byte(out)), nil
}
