package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Sentinel errors for SVG dimension inference.
var (
	ErrMissingViewBox   = errors.New("svg has no viewBox")
	ErrMalformedViewBox = errors.New("svg viewBox is not four numbers")
	ErrAlreadySized     = errors.New("svg already declares width or height")
	ErrNotText          = errors.New("payload is not UTF-8 text")
)

var (
	// viewBoxDecl matches a declaration of four non-negative numbers.
	// Each number keeps at most one fractional digit in the captured token;
	// further fractional digits are accepted here and dropped by viewBoxToken.
	viewBoxDecl = regexp.MustCompile(`viewBox="(?:\d+(?:\.\d\d*)? ?){4}"`)

	// viewBoxToken captures one number of a declaration.
	viewBoxToken = regexp.MustCompile(`(\d+(?:\.\d)?)\d*`)

	// viewBoxAttr finds any viewBox attribute, well-formed or not.
	viewBoxAttr = regexp.MustCompile(`viewBox\s*=\s*("[^"]*"|'[^']*'|\S*)`)

	// sizeAttr finds a width or height attribute; stroke-width and the
	// like are not preceded by whitespace.
	sizeAttr = regexp.MustCompile(`\s(?:width|height)\s*=`)
)

// InferDimensions returns a copy of doc where the viewBox declaration is
// followed by explicit width and height attributes taken from its third
// and fourth numbers:
//
//	<svg viewBox="0 0 100 200">  ->  <svg viewBox="0 0 100 200" width="100" height="200">
//
// When doc has an <svg> start tag the search is limited to that tag.
// Otherwise the first declaration anywhere in doc is used. doc is never
// modified and every byte outside the inserted attributes is preserved.
func InferDimensions(doc []byte) ([]byte, error) {
	start, end, attrs, rooted := rootSVGTag(doc)
	if !rooted {
		start, end = 0, len(doc)
	}
	scope := doc[start:end]

	loc := viewBoxDecl.FindIndex(scope)
	if loc == nil {
		if m := viewBoxAttr.Find(scope); m != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedViewBox, m)
		}
		return nil, ErrMissingViewBox
	}
	decl := scope[loc[0]:loc[1]]

	tokens := viewBoxToken.FindAllSubmatch(decl, -1)
	if len(tokens) != 4 {
		return nil, fmt.Errorf("%w: %s", ErrMalformedViewBox, decl)
	}
	width, height := tokens[2][1], tokens[3][1]

	insertAt := start + loc[1]
	if rooted {
		if attrs["width"] || attrs["height"] {
			return nil, ErrAlreadySized
		}
	} else if sizeAttr.Match(enclosingTag(doc, start+loc[0], insertAt)) {
		return nil, ErrAlreadySized
	}

	extra := fmt.Sprintf(` width="%s" height="%s"`, width, height)
	out := make([]byte, 0, len(doc)+len(extra))
	out = append(out, doc[:insertAt]...)
	out = append(out, extra...)
	out = append(out, doc[insertAt:]...)
	return out, nil
}

// enclosingTag returns the text of the tag holding doc[from:to], the
// declaration itself excluded, bounded by the nearest '<' before it and
// the first '>' after it.
func enclosingTag(doc []byte, from, to int) []byte {
	open := bytes.LastIndexByte(doc[:from], '<')
	if open < 0 {
		open = 0
	}
	closing := bytes.IndexByte(doc[to:], '>')
	if closing < 0 {
		closing = len(doc) - to
	}
	tag := make([]byte, 0, from-open+closing+1)
	tag = append(tag, doc[open:from]...)
	tag = append(tag, ' ')
	return append(tag, doc[to:to+closing]...)
}

// rootSVGTag locates the first <svg> start tag and returns its byte span
// and the set of (lowercased) attribute names it carries.
func rootSVGTag(doc []byte) (start, end int, attrs map[string]bool, ok bool) {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return 0, 0, nil, false
		}
		size := len(z.Raw())

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, more := z.TagName()
			if string(name) == "svg" {
				attrs = make(map[string]bool)
				for more {
					var key []byte
					key, _, more = z.TagAttr()
					attrs[string(key)] = true
				}
				return offset, offset + size, attrs, true
			}
		}
		offset += size
	}
}

// SVGSize is a record stage applying InferDimensions to SVG payloads.
type SVGSize struct{}

// NewSVGSizeStage returns the dimension inference stage.
func NewSVGSizeStage() *SVGSize {
	return &SVGSize{}
}

// Name returns the stage name.
func (s *SVGSize) Name() string { return "svg-size" }

// Process passes null records through and rewrites text payloads.
func (s *SVGSize) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() {
		return rec, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(rec.Contents) {
		return nil, ErrNotText
	}

	out, err := InferDimensions(rec.Contents)
	if err != nil {
		return nil, err
	}
	return rec.WithContents(out), nil
}
