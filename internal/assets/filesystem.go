package assets

import (
	"os"
	"path/filepath"
)

// FilesystemLoader serves {basePath}/styles/{name}.css from disk.
// Symlinks leading out of basePath are refused.
type FilesystemLoader struct {
	styleDir
}

var _ AssetLoader = (*FilesystemLoader)(nil)

// NewFilesystemLoader returns ErrInvalidBasePath unless basePath is a
// readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	root, err := resolveDir(basePath)
	if err != nil {
		return nil, err
	}

	guard := func(file string) error {
		return checkWithin(root, "styles/"+file)
	}
	return &FilesystemLoader{styleDir{fsys: os.DirFS(filepath.Join(root, "styles")), guard: guard}}, nil
}
