package assets

var builtin = NewEmbeddedLoader()

// LoadStyle returns a built-in style by name.
func LoadStyle(name string) (string, error) {
	return builtin.LoadStyle(name)
}

// ListStyles returns the built-in style names, sorted.
func ListStyles() ([]string, error) {
	return builtin.ListStyles()
}
