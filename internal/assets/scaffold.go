package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

//go:embed all:scaffold
var scaffold embed.FS

const scaffoldRoot = "scaffold"

// ScaffoldFiles returns the starter project's files, relative and sorted.
func ScaffoldFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(scaffold, scaffoldRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, strings.TrimPrefix(p, scaffoldRoot+"/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	slices.Sort(files)
	return files, nil
}

// WriteScaffold writes the starter project into dir and returns the paths
// written. Existing files are only replaced when force is set; otherwise
// nothing is written and ErrScaffoldExists lists the conflicts.
func WriteScaffold(dir string, force bool) ([]string, error) {
	files, err := ScaffoldFiles()
	if err != nil {
		return nil, err
	}

	if !force {
		var existing []string
		for _, rel := range files {
			if fileutil.FileExists(filepath.Join(dir, filepath.FromSlash(rel))) {
				existing = append(existing, rel)
			}
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrScaffoldExists, strings.Join(existing, ", "))
		}
	}

	written := make([]string, 0, len(files))
	for _, rel := range files {
		data, err := scaffold.ReadFile(scaffoldRoot + "/" + rel)
		if err != nil {
			return written, fmt.Errorf("%w: %v", ErrAssetRead, err)
		}
		path, err := fileutil.WriteFile(dir, rel, data)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
