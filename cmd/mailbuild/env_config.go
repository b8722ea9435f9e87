package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alnah/go-mailbuild/internal/config"
)

// envPrefix is shared by every project setting read from the environment.
const envPrefix = "MAILBUILD_"

// dotEnvFile is loaded from the working directory when present.
const dotEnvFile = ".env"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML edits.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        `env:"CONFIG"`  // config file path
	Timeout    time.Duration `env:"TIMEOUT"` // per-email timeout
	Workers    int           `env:"WORKERS"` // parallel workers

	// Tier 2 - Paths
	Source string `env:"SOURCE"`
	Dist   string `env:"DIST"`
	Style  string `env:"STYLE"`

	// Tier 3 - Remote services
	BaseURL string   `env:"BASE_URL"`
	Bucket  string   `env:"BUCKET"`
	Region  string   `env:"REGION"`
	Prefix  string   `env:"PREFIX"`
	From    string   `env:"FROM"`
	To      []string `env:"TO" envSeparator:","`
	Addr    string   `env:"ADDR"`
}

// secretsConfig holds credentials that are never read from YAML.
type secretsConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

// knownEnvVars lists valid MAILBUILD_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"MAILBUILD_CONFIG":  true,
	"MAILBUILD_TIMEOUT": true,
	"MAILBUILD_WORKERS": true,
	// Tier 2 - Paths
	"MAILBUILD_SOURCE": true,
	"MAILBUILD_DIST":   true,
	"MAILBUILD_STYLE":  true,
	// Tier 3 - Remote services
	"MAILBUILD_BASE_URL": true,
	"MAILBUILD_BUCKET":   true,
	"MAILBUILD_REGION":   true,
	"MAILBUILD_PREFIX":   true,
	"MAILBUILD_FROM":     true,
	"MAILBUILD_TO":       true,
	"MAILBUILD_ADDR":     true,
	// Diagnostics
	"MAILBUILD_CONTAINER": true,
}

// loadDotEnv loads .env into the process environment. Variables already
// set win over the file. A missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %v", config.ErrConfigParse, dotEnvFile, err)
	}
	return nil
}

// loadEnvConfig reads configuration from MAILBUILD_* environment variables.
func loadEnvConfig() (*envConfig, error) {
	cfg := &envConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", config.ErrInvalidValue, err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: %sTIMEOUT: must be positive, got %v", config.ErrInvalidValue, envPrefix, cfg.Timeout)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: %sWORKERS: must be positive, got %d", config.ErrInvalidValue, envPrefix, cfg.Workers)
	}
	return cfg, nil
}

// loadSecrets reads service credentials from the environment.
func loadSecrets() (*secretsConfig, error) {
	s := &secretsConfig{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", config.ErrInvalidValue, err)
	}
	return s, nil
}

// warnUnknownEnvVars logs warnings for unrecognized MAILBUILD_* variables.
// Helps catch typos like MAILBUILD_BUCKT instead of MAILBUILD_BUCKET.
func warnUnknownEnvVars(w io.Writer) {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix) {
			name := strings.SplitN(kv, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig fills config values the file left unset. A value counts
// as unset when it is empty or still equal to its default.
// Priority: CLI flags > config file > env vars > defaults
// (CLI flags are applied later by each command).
func applyEnvConfig(e *envConfig, cfg *config.Config) {
	def := config.DefaultConfig()

	fill := func(dst *string, value, fallback string) {
		if value != "" && (*dst == "" || *dst == fallback) {
			*dst = value
		}
	}

	// Tier 2 - Paths
	fill(&cfg.Paths.Source, e.Source, def.Paths.Source)
	fill(&cfg.Paths.Dist, e.Dist, def.Paths.Dist)
	fill(&cfg.CSS.Style, e.Style, def.CSS.Style)

	// Tier 3 - Remote services
	fill(&cfg.Deploy.BaseURL, e.BaseURL, def.Deploy.BaseURL)
	fill(&cfg.Deploy.Bucket, e.Bucket, def.Deploy.Bucket)
	fill(&cfg.Deploy.Region, e.Region, def.Deploy.Region)
	fill(&cfg.Deploy.Prefix, e.Prefix, def.Deploy.Prefix)
	fill(&cfg.Send.From, e.From, def.Send.From)
	fill(&cfg.Serve.Addr, e.Addr, def.Serve.Addr)

	if len(e.To) > 0 && len(cfg.Send.To) == 0 {
		cfg.Send.To = e.To
	}
}
