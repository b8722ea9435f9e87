package pipeline

import (
	"context"
	"html"
	"strings"
)

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

var _ CSSInjector = (*CSSInjection)(nil)

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
// CSS content is sanitized so it cannot close the style block.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}
	if ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if pos := afterBodyTag(htmlContent, lowerHTML); pos != -1 {
		return htmlContent[:pos] + styleBlock + htmlContent[pos:]
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// afterBodyTag returns the offset just past the opening <body ...> tag,
// or -1 when there is none.
func afterBodyTag(htmlContent, lowerHTML string) int {
	idx := strings.Index(lowerHTML, "<body")
	if idx == -1 {
		return -1
	}
	closeIdx := strings.Index(htmlContent[idx:], ">")
	if closeIdx == -1 {
		return -1
	}
	return idx + closeIdx + 1
}

// preheaderStyle hides the preheader in the message body while inbox
// previews still pick it up.
const preheaderStyle = "display:none;font-size:1px;line-height:1px;max-height:0;max-width:0;opacity:0;overflow:hidden;mso-hide:all;"

// PreheaderInjector defines the contract for inbox preview text injection.
type PreheaderInjector interface {
	InjectPreheader(ctx context.Context, htmlContent, text string) string
}

// PreheaderInjection inserts a hidden preheader as the first element of <body>.
type PreheaderInjection struct{}

var _ PreheaderInjector = (*PreheaderInjection)(nil)

// InjectPreheader inserts text, escaped, in a hidden div right after <body>.
// Documents without a body tag get the div prepended.
func (p *PreheaderInjection) InjectPreheader(ctx context.Context, htmlContent, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || ctx.Err() != nil {
		return htmlContent
	}

	block := `<div style="` + preheaderStyle + `">` + html.EscapeString(text) + `</div>`
	if pos := afterBodyTag(htmlContent, strings.ToLower(htmlContent)); pos != -1 {
		return htmlContent[:pos] + block + htmlContent[pos:]
	}
	return block + htmlContent
}
