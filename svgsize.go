package mailbuild

import "github.com/alnah/go-mailbuild/internal/pipeline"

// InferDimensions returns a copy of an SVG document with width and height
// attributes taken from its viewBox:
//
//	<svg viewBox="0 0 100 200">  ->  <svg viewBox="0 0 100 200" width="100" height="200">
//
// Returns ErrMissingViewBox when there is no viewBox, ErrMalformedViewBox
// when it is not four numbers, and ErrAlreadySized when the root element
// already declares a width or height.
func InferDimensions(doc []byte) ([]byte, error) {
	return pipeline.InferDimensions(doc)
}

// NewSVGSizeStage returns a stage applying InferDimensions to every record
// with a payload. Records without payload pass through.
func NewSVGSizeStage() Stage {
	return pipeline.NewSVGSizeStage()
}

// OnlyExt restricts st to records whose extension is one of exts.
func OnlyExt(st Stage, exts ...string) Stage {
	return pipeline.OnlyExt(st, exts...)
}
