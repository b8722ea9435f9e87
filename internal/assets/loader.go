package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

// AssetLoader loads base stylesheets by name.
type AssetLoader interface {
	// LoadStyle returns the CSS of the named style (no .css extension).
	// Unknown names give ErrStyleNotFound, unsafe ones ErrInvalidAssetName.
	LoadStyle(name string) (string, error)

	// ListStyles returns the available style names, sorted.
	ListStyles() ([]string, error)
}

// ValidateAssetName rejects empty names and names holding a separator,
// a dot or a NUL byte, so a name always maps to a single file.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// styleNames keeps the {name}.css entries and strips their extension.
func styleNames(files []string) []string {
	var names []string
	for _, f := range files {
		if name, ok := strings.CutSuffix(f, ".css"); ok && ValidateAssetName(name) == nil {
			names = append(names, name)
		}
	}
	return names
}

// styleDir serves {name}.css files from the root of fsys. guard, when
// set, vets the file name before it is opened.
type styleDir struct {
	fsys  fs.FS
	guard func(file string) error
}

func (d styleDir) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	file := name + ".css"
	if d.guard != nil {
		if err := d.guard(file); err != nil {
			return "", err
		}
	}

	content, err := fs.ReadFile(d.fsys, file)
	switch {
	case err == nil:
		return string(content), nil
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
}

// ListStyles treats a missing directory as empty.
func (d styleDir) ListStyles() ([]string, error) {
	entries, err := fs.ReadDir(d.fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	names := styleNames(files)
	slices.Sort(names)
	return names, nil
}
