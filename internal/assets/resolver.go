package assets

import (
	"errors"
	"slices"
)

// AssetResolver asks its loaders in order and moves to the next one only
// when a style is not found. The project directory, when configured,
// comes before the embedded styles, so it can override them by name.
type AssetResolver struct {
	loaders []AssetLoader
}

var _ AssetLoader = (*AssetResolver)(nil)

// NewAssetResolver serves the embedded styles, behind customBasePath
// when it is set. An unusable customBasePath gives ErrInvalidBasePath.
func NewAssetResolver(customBasePath string) (*AssetResolver, error) {
	r := &AssetResolver{}
	if customBasePath != "" {
		custom, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		r.loaders = append(r.loaders, custom)
	}
	r.loaders = append(r.loaders, NewEmbeddedLoader())
	return r, nil
}

// LoadStyle returns validation and read errors as they are.
func (r *AssetResolver) LoadStyle(name string) (string, error) {
	var err error
	for _, l := range r.loaders {
		var css string
		if css, err = l.LoadStyle(name); !errors.Is(err, ErrStyleNotFound) {
			return css, err
		}
	}
	return "", err
}

// ListStyles returns the sorted union of every loader's styles.
func (r *AssetResolver) ListStyles() ([]string, error) {
	var names []string
	for _, l := range r.loaders {
		found, err := l.ListStyles()
		if err != nil {
			return nil, err
		}
		names = append(names, found...)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// HasCustomLoader reports whether a project style directory is in use.
func (r *AssetResolver) HasCustomLoader() bool {
	return len(r.loaders) > 1
}
