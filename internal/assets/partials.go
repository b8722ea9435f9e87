package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// partialPattern matches the file types registered as partials.
const partialPattern = "**/*.{hbs,handlebars,mjml}"

// LoadPartials reads every partial under dir, keyed by its slash-separated
// path without extension ("header.hbs" is "header", "layout/footer.hbs" is
// "layout/footer"). A missing directory yields no partials.
func LoadPartials(dir string) (map[string]string, error) {
	partials := make(map[string]string)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return partials, nil
	}

	root, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(root)
	files, err := doublestar.Glob(fsys, partialPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}

	sources := make(map[string]string, len(files))
	for _, rel := range files {
		name := strings.TrimSuffix(rel, path.Ext(rel))
		if prev, ok := sources[name]; ok {
			return nil, fmt.Errorf("%w: %q from %s and %s", ErrDuplicatePartial, name, prev, rel)
		}
		sources[name] = rel

		if err := checkWithin(root, rel); err != nil {
			return nil, err
		}
		content, err := fs.ReadFile(fsys, rel)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrAssetRead, rel, err)
		}
		partials[name] = string(content)
	}

	return partials, nil
}
