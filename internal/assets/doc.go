// Package assets provides built-in stylesheets, user partials and the
// starter project written by "mailbuild init".
//
// # Loader Architecture
//
// Base styles are loaded through a layered system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in styles)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver is the loader used by the builder. It tries the custom
// FilesystemLoader first, falling back to EmbeddedLoader if the style is
// not found. This enables overriding a built-in style by name.
//
// # Directory Structure
//
//	{basePath}/
//	└── styles/
//	    └── {name}.css           # Base style (e.g., reset.css)
//
// Partials are read separately with LoadPartials from the project's
// partials directory; nested directories become part of the partial name.
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
