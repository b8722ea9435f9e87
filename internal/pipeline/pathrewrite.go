package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidBaseURL indicates the asset base URL cannot be used for rewriting.
var ErrInvalidBaseURL = errors.New("invalid asset base URL")

// RewriteRelativePaths converts relative image references to absolute
// file:// URLs under sourceDir so a local browser can load them.
// If sourceDir is empty, returns the HTML unchanged.
//
// Rewrites img[src] and the legacy background attribute that email
// layouts put on body, table and td. Links are left alone.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	return rewriteImageRefs(htmlContent, func(ref string) (string, bool) {
		absPath := filepath.Join(absSourceDir, filepath.FromSlash(ref))
		if !isPathUnderDir(absPath, absSourceDir) {
			return "", false
		}
		return pathToFileURL(absPath), true
	})
}

// RewriteAssetURLs converts relative image references to absolute URLs
// under baseURL, which is where deployed assets are served from.
// If baseURL is empty, returns the HTML unchanged.
func RewriteAssetURLs(htmlContent, baseURL string) (string, error) {
	if baseURL == "" {
		return htmlContent, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	return rewriteImageRefs(htmlContent, func(ref string) (string, bool) {
		clean := path.Clean(strings.TrimPrefix(ref, "./"))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return "", false
		}
		return base.JoinPath(clean).String(), true
	})
}

// rewriteImageRefs parses htmlContent, applies resolve to every relative
// image reference and renders the tree back.
func rewriteImageRefs(htmlContent string, resolve func(ref string) (string, bool)) (string, error) {
	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}
	walkElements(doc, func(n *html.Node) {
		switch n.DataAtom {
		case atom.Img:
			rewriteAttr(n, "src", resolve)
		case atom.Body, atom.Table, atom.Td, atom.Th:
			rewriteAttr(n, "background", resolve)
		}
	})
	return renderHTML(doc, isFragment)
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node, whether it was a fragment, and any error.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children.
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// walkElements calls fn for every element node in document order.
func walkElements(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, fn)
	}
}

// rewriteAttr rewrites a single attribute if it holds a relative path.
func rewriteAttr(n *html.Node, attrName string, resolve func(string) (string, bool)) {
	for i, attr := range n.Attr {
		if attr.Key != attrName || !isRelativePath(attr.Val) {
			continue
		}
		if val, ok := resolve(attr.Val); ok {
			n.Attr[i].Val = val
		}
	}
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "#") {
		return false
	}

	// URLs, data URIs, protocol-relative and template placeholders
	for _, prefix := range []string{"http://", "https://", "file://", "data:", "cid:", "//", "{{"} {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}

	return !filepath.IsAbs(p) && !strings.HasPrefix(p, "/")
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
