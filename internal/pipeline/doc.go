// Package pipeline implements the stages of the email build.
//
// Sources flow through the stages as Records, one record at a time:
//   - Handlebars assembly of MJML sources with partials and helpers
//   - Stylesheet processing (prefixing, media query grouping, minification)
//   - MJML compilation to HTML
//   - CSS inlining and width attribute mirroring
//   - Image optimization, SVG dimension inference and rasterization
//
// Every stage is synchronous and does no I/O: reading sources and writing
// outputs belong to the caller. Stages never mutate their input record and
// pass records without payload through untouched.
package pipeline
