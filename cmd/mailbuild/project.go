package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/dateutil"
)

// defaultConfigName is looked up when neither --config nor
// MAILBUILD_CONFIG is set. Its absence is not an error.
const defaultConfigName = "mailbuild"

// project is the loaded state shared by every command.
type project struct {
	cfg     *config.Config
	env     *envConfig
	secrets *secretsConfig
}

// loadProject sets up logging, reads .env and MAILBUILD_* variables, and
// loads the config file. The result is stored in env for later use.
func loadProject(common *commonFlags, env *Environment) (*project, error) {
	env.Logger = newLogger(env.Stderr, common.quiet, common.verbose)

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		env.Logger.Debug(fmt.Sprintf(format, args...))
	}))

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	warnUnknownEnvVars(env.Stderr)

	envCfg, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}
	secrets, err := loadSecrets()
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(common.config, envCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyEnvConfig(envCfg, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env.Config = cfg
	return &project{cfg: cfg, env: envCfg, secrets: secrets}, nil
}

// loadConfig loads the config named by the flag, then the environment.
// Without either, the default project file is used when it exists.
func loadConfig(flagValue, envValue string) (*config.Config, error) {
	switch {
	case flagValue != "":
		return config.LoadConfig(flagValue)
	case envValue != "":
		return config.LoadConfig(envValue)
	}

	cfg, err := config.LoadConfig(defaultConfigName)
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// resolveTimeout picks the flag value, then the environment value.
// Zero means the library default.
func resolveTimeout(flagValue string, envValue time.Duration) (time.Duration, error) {
	if flagValue != "" {
		d, err := time.ParseDuration(flagValue)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, flagValue, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q (must be positive)", ErrInvalidTimeout, flagValue)
		}
		return d, nil
	}
	return envValue, nil
}

// resolveWorkers picks the flag value, then the environment value.
// Zero means automatic sizing.
func resolveWorkers(flagValue, envValue int) (int, error) {
	if err := validateWorkers(flagValue); err != nil {
		return 0, err
	}
	if flagValue > 0 {
		return flagValue, nil
	}
	if err := validateWorkers(envValue); err != nil {
		return 0, err
	}
	return envValue, nil
}

// resolveDataDates replaces top-level "auto" and "auto:FORMAT" string
// values with the build date.
func resolveDataDates(data map[string]any, now time.Time) error {
	for k, v := range data {
		s, ok := v.(string)
		if !ok || !isAutoDate(s) {
			continue
		}
		resolved, err := dateutil.ResolveDate(s, now)
		if err != nil {
			return fmt.Errorf("%w: data.%s: %v", config.ErrInvalidValue, k, err)
		}
		data[k] = resolved
	}
	return nil
}

func isAutoDate(s string) bool {
	lower := strings.ToLower(s)
	return lower == "auto" || strings.HasPrefix(lower, "auto:")
}
