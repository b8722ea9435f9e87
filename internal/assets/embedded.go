package assets

import (
	"embed"
	"io/fs"
)

//go:embed styles/*.css
var styles embed.FS

// EmbeddedLoader serves the styles compiled into the binary.
type EmbeddedLoader struct {
	styleDir
}

var _ AssetLoader = (*EmbeddedLoader)(nil)

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	sub, err := fs.Sub(styles, "styles")
	if err != nil {
		panic("assets: embedded styles: " + err.Error())
	}
	return &EmbeddedLoader{styleDir{fsys: sub}}
}
