package assets

import "errors"

var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid base path")
	ErrAssetRead        = errors.New("failed to read asset")

	// ErrPathTraversal is returned when a file resolves outside its
	// directory, usually through a symlink.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrDuplicatePartial is returned when two files, such as header.hbs
	// and header.mjml, map to the same partial name.
	ErrDuplicatePartial = errors.New("duplicate partial name")

	ErrScaffoldExists = errors.New("project files already exist")
)
