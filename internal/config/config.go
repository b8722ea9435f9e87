package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrDataFile        = errors.New("failed to load data file")
)

// Field length limits.
const (
	MaxPathLength         = 1024
	MaxPatternLength      = 256
	MaxEmailLength        = 254  // RFC 5321
	MaxURLLength          = 2048 // Browser limit
	MaxBucketLength       = 63   // S3 bucket naming rules
	MaxRegionLength       = 32
	MaxPrefixLength       = 512
	MaxCacheControlLength = 200
	MaxSubjectLength      = 100
	MaxTagLength          = 1000 // Postmark tag limit
	MaxRecipients         = 50   // Postmark recipient limit
	MaxViewportNameLength = 50
	MaxViewportSide       = 4096
	MaxImageWidth         = 8192
	MaxRasterScale        = 8
)

// Enumerated values.
const (
	ValidationStrict = "strict"
	ValidationSoft   = "soft"
	ValidationSkip   = "skip"

	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

var (
	bucketPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)
	viewportPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Config holds all configuration for an email build.
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	Data   DataConfig   `yaml:"data"`
	MJML   MJMLConfig   `yaml:"mjml"`
	CSS    CSSConfig    `yaml:"css"`
	Inline InlineConfig `yaml:"inline"`
	Images ImagesConfig `yaml:"images"`
	Deploy DeployConfig `yaml:"deploy"`
	Send   SendConfig   `yaml:"send"`
	Proof  ProofConfig  `yaml:"proof"`
	Serve  ServeConfig  `yaml:"serve"`
	Assets AssetsConfig `yaml:"assets"`
}

// PathsConfig locates sources and outputs. Glob patterns are relative
// to Source and support "**".
type PathsConfig struct {
	Source   string `yaml:"source"`
	Emails   string `yaml:"emails"`
	Partials string `yaml:"partials"` // Directory of .hbs partials, relative to Source
	CSS      string `yaml:"css"`
	Images   string `yaml:"images"`
	Tmp      string `yaml:"tmp"`  // Intermediate output (assembled MJML, processed CSS)
	Dist     string `yaml:"dist"` // Final output
}

// DataConfig defines the template data context.
type DataConfig struct {
	File   string         `yaml:"file"`   // YAML or JSON mapping (empty = none)
	Values map[string]any `yaml:"values"` // Merged over File
}

// MJMLConfig defines compiler options.
type MJMLConfig struct {
	Validation   string `yaml:"validation"` // "strict", "soft", "skip" (default: "soft")
	Minify       bool   `yaml:"minify"`
	Beautify     bool   `yaml:"beautify"`
	KeepComments bool   `yaml:"keepComments"`
}

// CSSConfig defines stylesheet processing.
type CSSConfig struct {
	Style             string `yaml:"style"` // Built-in base style prepended to sources (empty = none)
	Autoprefix        bool   `yaml:"autoprefix"`
	GroupMediaQueries bool   `yaml:"groupMediaQueries"`
	Minify            bool   `yaml:"minify"`
}

// InlineConfig defines CSS inlining.
type InlineConfig struct {
	Enabled              bool `yaml:"enabled"`
	PreserveMediaQueries bool `yaml:"preserveMediaQueries"`
	ApplyWidthAttributes bool `yaml:"applyWidthAttributes"`
}

// ImagesConfig defines image optimization.
type ImagesConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxWidth     int     `yaml:"maxWidth"`    // 0 = keep size
	JPEGQuality  int     `yaml:"jpegQuality"` // 1-100
	SVGSize      bool    `yaml:"svgSize"`     // Add width/height from viewBox
	SVGMinify    bool    `yaml:"svgMinify"`
	RasterizeSVG bool    `yaml:"rasterizeSvg"` // Add a PNG fallback next to each SVG
	RasterScale  float64 `yaml:"rasterScale"`
	OnError      string  `yaml:"onError"` // "fail" or "skip"
}

// DeployConfig defines the S3 target for built assets.
type DeployConfig struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"` // S3-compatible endpoint (empty = AWS)
	PathStyle    bool   `yaml:"pathStyle"`
	CacheControl string `yaml:"cacheControl"`
	Prune        bool   `yaml:"prune"`
	DryRun       bool   `yaml:"dryRun"`
	BaseURL      string `yaml:"baseURL"` // Rewrites image URLs in HTML (empty = keep relative)
}

// SendConfig defines test email delivery.
type SendConfig struct {
	From          string   `yaml:"from"`
	To            []string `yaml:"to"`
	SubjectPrefix string   `yaml:"subjectPrefix"`
	Tag           string   `yaml:"tag"`
	DryRun        bool     `yaml:"dryRun"`
}

// ProofConfig defines screenshot proofs.
type ProofConfig struct {
	Output    string     `yaml:"output"`
	Viewports []Viewport `yaml:"viewports"`
}

// Viewport is a named browser window size.
type Viewport struct {
	Name   string  `yaml:"name"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"` // Device scale factor (0 = 1)
	Mobile bool    `yaml:"mobile"`
}

// ServeConfig defines the preview server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// DefaultConfig returns the configuration used for keys absent from the file.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:   "src",
			Emails:   "emails/**/*.mjml",
			Partials: "partials",
			CSS:      "css/**/*.css",
			Images:   "images/**/*",
			Tmp:      "tmp",
			Dist:     "dist",
		},
		MJML: MJMLConfig{Validation: ValidationSoft},
		CSS: CSSConfig{
			Autoprefix:        true,
			GroupMediaQueries: true,
		},
		Inline: InlineConfig{
			Enabled:              true,
			PreserveMediaQueries: true,
			ApplyWidthAttributes: true,
		},
		Images: ImagesConfig{
			Enabled:     true,
			MaxWidth:    1200,
			JPEGQuality: 85,
			SVGSize:     true,
			SVGMinify:   true,
			RasterScale: 2,
			OnError:     OnErrorFail,
		},
		Deploy: DeployConfig{
			CacheControl: "public, max-age=31536000",
		},
		Send: SendConfig{
			SubjectPrefix: "[TEST] ",
			Tag:           "mailbuild-test",
		},
		Proof: ProofConfig{
			Output: "proofs",
			Viewports: []Viewport{
				{Name: "desktop", Width: 600, Height: 800},
				{Name: "mobile", Width: 375, Height: 667, Scale: 2, Mobile: true},
			},
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// Validate checks field lengths, enumerations and ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"paths.source", c.Paths.Source, MaxPathLength},
		{"paths.emails", c.Paths.Emails, MaxPatternLength},
		{"paths.partials", c.Paths.Partials, MaxPathLength},
		{"paths.css", c.Paths.CSS, MaxPatternLength},
		{"paths.images", c.Paths.Images, MaxPatternLength},
		{"paths.tmp", c.Paths.Tmp, MaxPathLength},
		{"paths.dist", c.Paths.Dist, MaxPathLength},
		{"data.file", c.Data.File, MaxPathLength},
		{"deploy.bucket", c.Deploy.Bucket, MaxBucketLength},
		{"deploy.region", c.Deploy.Region, MaxRegionLength},
		{"deploy.prefix", c.Deploy.Prefix, MaxPrefixLength},
		{"deploy.endpoint", c.Deploy.Endpoint, MaxURLLength},
		{"deploy.cacheControl", c.Deploy.CacheControl, MaxCacheControlLength},
		{"deploy.baseURL", c.Deploy.BaseURL, MaxURLLength},
		{"send.from", c.Send.From, MaxEmailLength},
		{"send.subjectPrefix", c.Send.SubjectPrefix, MaxSubjectLength},
		{"send.tag", c.Send.Tag, MaxTagLength},
		{"proof.output", c.Proof.Output, MaxPathLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
	}
	for _, l := range lengths {
		if err := validateFieldLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}

	if c.Paths.Emails == "" {
		return fmt.Errorf("%w: paths.emails: required", ErrInvalidValue)
	}
	if c.Paths.Dist == "" {
		return fmt.Errorf("%w: paths.dist: required", ErrInvalidValue)
	}

	switch strings.ToLower(c.MJML.Validation) {
	case "", ValidationStrict, ValidationSoft, ValidationSkip:
	default:
		return fmt.Errorf("%w: mjml.validation: %q (must be strict, soft, or skip)", ErrInvalidValue, c.MJML.Validation)
	}
	if c.MJML.Minify && c.MJML.Beautify {
		return fmt.Errorf("%w: mjml.minify and mjml.beautify are mutually exclusive", ErrInvalidValue)
	}

	if err := c.Images.validate(); err != nil {
		return err
	}
	if err := c.Deploy.validate(); err != nil {
		return err
	}
	if err := c.Send.validate(); err != nil {
		return err
	}
	return c.Proof.validate()
}

func (c *ImagesConfig) validate() error {
	if c.MaxWidth < 0 || c.MaxWidth > MaxImageWidth {
		return fmt.Errorf("%w: images.maxWidth: must be between 0 and %d, got %d", ErrInvalidValue, MaxImageWidth, c.MaxWidth)
	}
	if c.JPEGQuality != 0 && (c.JPEGQuality < 1 || c.JPEGQuality > 100) {
		return fmt.Errorf("%w: images.jpegQuality: must be between 1 and 100, got %d", ErrInvalidValue, c.JPEGQuality)
	}
	if c.RasterizeSVG && (c.RasterScale <= 0 || c.RasterScale > MaxRasterScale) {
		return fmt.Errorf("%w: images.rasterScale: must be greater than 0 and at most %d, got %.2f", ErrInvalidValue, MaxRasterScale, c.RasterScale)
	}
	switch c.OnError {
	case "", OnErrorFail, OnErrorSkip:
	default:
		return fmt.Errorf("%w: images.onError: %q (must be fail or skip)", ErrInvalidValue, c.OnError)
	}
	return nil
}

func (c *DeployConfig) validate() error {
	if c.Bucket != "" && !bucketPattern.MatchString(c.Bucket) {
		return fmt.Errorf("%w: deploy.bucket: %q is not a valid bucket name", ErrInvalidValue, c.Bucket)
	}
	if c.Endpoint != "" && !fileutil.IsURL(c.Endpoint) {
		return fmt.Errorf("%w: deploy.endpoint: must be an http(s) URL", ErrInvalidValue)
	}
	if c.BaseURL != "" && !fileutil.IsURL(c.BaseURL) {
		return fmt.Errorf("%w: deploy.baseURL: must be an http(s) URL", ErrInvalidValue)
	}
	if strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("%w: deploy.prefix: must not start with /", ErrInvalidValue)
	}
	return nil
}

func (c *SendConfig) validate() error {
	if c.From != "" {
		if _, err := mail.ParseAddress(c.From); err != nil {
			return fmt.Errorf("%w: send.from: %v", ErrInvalidValue, err)
		}
	}
	if len(c.To) > MaxRecipients {
		return fmt.Errorf("%w: send.to: at most %d recipients, got %d", ErrInvalidValue, MaxRecipients, len(c.To))
	}
	for i, to := range c.To {
		if err := validateFieldLength(fmt.Sprintf("send.to[%d]", i), to, MaxEmailLength); err != nil {
			return err
		}
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("%w: send.to[%d]: %v", ErrInvalidValue, i, err)
		}
	}
	return nil
}

func (c *ProofConfig) validate() error {
	seen := make(map[string]bool, len(c.Viewports))
	for i, vp := range c.Viewports {
		field := fmt.Sprintf("proof.viewports[%d]", i)
		if err := validateFieldLength(field+".name", vp.Name, MaxViewportNameLength); err != nil {
			return err
		}
		if !viewportPattern.MatchString(vp.Name) {
			return fmt.Errorf("%w: %s.name: %q (lowercase letters, digits, - and _)", ErrInvalidValue, field, vp.Name)
		}
		if seen[vp.Name] {
			return fmt.Errorf("%w: %s.name: duplicate %q", ErrInvalidValue, field, vp.Name)
		}
		seen[vp.Name] = true
		if vp.Width <= 0 || vp.Width > MaxViewportSide || vp.Height <= 0 || vp.Height > MaxViewportSide {
			return fmt.Errorf("%w: %s: size must be between 1 and %d, got %dx%d", ErrInvalidValue, field, MaxViewportSide, vp.Width, vp.Height)
		}
		if vp.Scale < 0 || vp.Scale > 4 {
			return fmt.Errorf("%w: %s.scale: must be between 0 and 4, got %.2f", ErrInvalidValue, field, vp.Scale)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := yamlutil.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-mailbuild/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-mailbuild", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// LoadData builds the template data context: the data file (relative to
// baseDir unless absolute) with Values merged over it. Nested mappings
// are merged key by key.
func (c *Config) LoadData(baseDir string) (map[string]any, error) {
	data := map[string]any{}
	if c.Data.File != "" {
		path := c.Data.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		raw, err := yamlutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataFile, err)
		}
		data, err = yamlutil.DecodeMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDataFile, c.Data.File, err)
		}
	}
	return mergeMaps(data, c.Data.Values), nil
}

// mergeMaps returns dst with src merged over it. dst is modified.
func mergeMaps(dst, src map[string]any) map[string]any {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = mergeMaps(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}
