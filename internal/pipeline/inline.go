package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/inliner"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// ErrInline indicates CSS could not be inlined into a document.
var ErrInline = errors.New("CSS inlining failed")

const stylePlaceholder = "mailbuild:style:"

var (
	placeholderPattern = regexp.MustCompile(`<!--` + stylePlaceholder + `(\d+)-->`)
	pixelLength        = regexp.MustCompile(`^(\d+)px$`)
	percentLength      = regexp.MustCompile(`^\d+%$`)
)

// sizedElements maps elements to the style properties mirrored as
// HTML attributes for clients that ignore CSS sizing.
var sizedElements = map[string][]string{
	"table": {"width"},
	"td":    {"width"},
	"th":    {"width"},
	"img":   {"width", "height"},
}

// InlineOptions configures the inliner.
type InlineOptions struct {
	// PreserveMediaQueries keeps rules that cannot be inlined (@media,
	// pseudo-classes) in a <style> block in <head>. They are dropped otherwise.
	PreserveMediaQueries bool

	// ApplyWidthAttributes mirrors inline width/height styles to attributes.
	ApplyWidthAttributes bool
}

// Inliner moves stylesheet rules into style attributes.
type Inliner struct {
	opts     InlineOptions
	injector CSSInjector
}

// NewInliner creates an inliner.
func NewInliner(opts InlineOptions) *Inliner {
	return &Inliner{opts: opts, injector: &CSSInjection{}}
}

// Inline applies cssContent to the elements of htmlContent.
// Style blocks already present in the document are kept as they are.
func (i *Inliner) Inline(ctx context.Context, htmlContent, cssContent string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	protected, blocks := protectStyles(htmlContent)

	if !i.opts.PreserveMediaQueries && cssContent != "" {
		filtered, err := inlinableOnly(cssContent)
		if err != nil {
			return "", err
		}
		cssContent = filtered
	}

	out, err := inliner.Inline(i.injector.InjectCSS(ctx, protected, cssContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}

	if i.opts.ApplyWidthAttributes {
		out, err = applyWidthAttributes(out)
		if err != nil {
			return "", err
		}
	}

	return restoreStyles(out, blocks), nil
}

// protectStyles swaps every <style> element for a placeholder comment so
// the inliner leaves the document's own stylesheets alone.
func protectStyles(htmlContent string) (string, []string) {
	var (
		out    strings.Builder
		blocks []string
		offset int
		start  = -1
		last   int
	)

	z := html.NewTokenizer(strings.NewReader(htmlContent))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		end := offset + len(z.Raw())

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "style" && start == -1 {
				start = offset
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "style" && start != -1 {
				out.WriteString(htmlContent[last:start])
				fmt.Fprintf(&out, "<!--%s%d-->", stylePlaceholder, len(blocks))
				blocks = append(blocks, htmlContent[start:end])
				last = end
				start = -1
			}
		}
		offset = end
	}

	if len(blocks) == 0 {
		return htmlContent, nil
	}
	out.WriteString(htmlContent[last:])
	return out.String(), blocks
}

// restoreStyles puts back the blocks removed by protectStyles.
func restoreStyles(htmlContent string, blocks []string) string {
	if len(blocks) == 0 {
		return htmlContent
	}
	return placeholderPattern.ReplaceAllStringFunc(htmlContent, func(m string) string {
		n, err := strconv.Atoi(placeholderPattern.FindStringSubmatch(m)[1])
		if err != nil || n >= len(blocks) {
			return m
		}
		return blocks[n]
	})
}

// inlinableOnly drops at-rules and selectors the inliner cannot apply.
func inlinableOnly(cssContent string) (string, error) {
	sheet, err := parser.Parse(cssContent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}

	kept := sheet.Rules[:0]
	for _, rule := range sheet.Rules {
		if rule.Kind != css.QualifiedRule {
			continue
		}
		var selectors []string
		for _, sel := range rule.Selectors {
			if inliner.Inlinable(sel) {
				selectors = append(selectors, sel)
			}
		}
		if len(selectors) == 0 {
			continue
		}
		rule.Selectors = selectors
		kept = append(kept, rule)
	}
	sheet.Rules = kept
	return sheet.String(), nil
}

// applyWidthAttributes copies pixel and percentage sizes from inline
// styles to width/height attributes. Existing attributes are kept.
func applyWidthAttributes(htmlContent string) (string, error) {
	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}

	walkElements(doc, func(n *html.Node) {
		props, ok := sizedElements[n.Data]
		if !ok {
			return
		}
		style := attrValue(n, "style")
		if style == "" {
			return
		}
		decls, err := parser.ParseDeclarations(style)
		if err != nil {
			return
		}
		for _, decl := range decls {
			if !slices.Contains(props, decl.Property) || hasAttr(n, decl.Property) {
				continue
			}
			if val, ok := sizeAttribute(decl.Value); ok {
				n.Attr = append(n.Attr, html.Attribute{Key: decl.Property, Val: val})
			}
		}
	})

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	return out, nil
}

// sizeAttribute converts "600px" to "600" and keeps "100%".
func sizeAttribute(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if m := pixelLength.FindStringSubmatch(value); m != nil {
		return m[1], true
	}
	if percentLength.MatchString(value) {
		return value, true
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// InlineStage inlines a stylesheet into .html records.
type InlineStage struct {
	inliner *Inliner
	css     string
}

// NewInlineStage creates a stage inlining cssContent into every record.
func NewInlineStage(in *Inliner, cssContent string) *InlineStage {
	return &InlineStage{inliner: in, css: cssContent}
}

// Name returns the stage name.
func (s *InlineStage) Name() string { return "inline" }

// Process inlines the stylesheet. Null records pass through.
func (s *InlineStage) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	out, err := s.inliner.Inline(ctx, string(rec.Contents), s.css)
	if err != nil {
		return nil, err
	}
	return rec.WithContents([]byte(out)), nil
}
