// Package mailbuild compiles Handlebars-templated MJML emails into
// inlined, client-ready HTML.
//
// # Quick Start
//
// Create a builder and build an email:
//
//	b, err := mailbuild.NewBuilder(
//	    mailbuild.WithPartialsDir("src/partials"),
//	    mailbuild.WithData(map[string]any{"product": "Acme"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := b.Build(ctx, mailbuild.Input{
//	    Name:   "welcome",
//	    Source: mjmlSource,
//	    CSS:    "h1 { color: #333; }",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("dist/welcome.html", []byte(result.HTML), 0644)
//
// The result contains both the assembled MJML (result.MJML) and the final
// HTML (result.HTML) for debugging.
//
// # Build Pipeline
//
// Every email goes through these stages:
//
//  1. Handlebars assembly with partials, shared data and helpers
//     ({{markdown}}, {{date}}, {{year}}, {{default}})
//  2. MJML compilation to table-based HTML
//  3. Preheader and CSS injection (base style + email CSS)
//  4. CSS inlining, keeping media queries when configured
//  5. Asset URL rewriting when a public base URL is set
//
// # Images
//
// SVG images rarely render in email clients without explicit sizes.
// InferDimensions copies the width and height from an SVG viewBox:
//
//	sized, err := mailbuild.InferDimensions([]byte(`<svg viewBox="0 0 120 40">`))
//	// <svg viewBox="0 0 120 40" width="120" height="40">
//
// Records read with LoadRecords can be run through any Stage with a Runner;
// records without payload (directory markers) pass through untouched.
//
// # Proofs
//
// Proofer renders compiled HTML to PNG screenshots at several viewports
// using headless Chrome. Use ProoferPool to render many emails in parallel:
//
//	pool := mailbuild.NewProoferPool(mailbuild.ResolvePoolSize(0))
//	defer pool.Close()
//
//	p := pool.Acquire()
//	shots, err := p.Proof(ctx, result.HTML, "dist", mailbuild.DefaultViewports())
//	pool.Release(p)
//
// # Error Handling
//
// Errors can be checked with errors.Is:
//
//	if errors.Is(err, mailbuild.ErrEmptySource) {
//	    // handle empty input
//	}
//	if errors.Is(err, mailbuild.ErrMissingViewBox) {
//	    // SVG cannot be sized
//	}
package mailbuild
