package main

import (
	"context"
	"errors"
	"os"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/assets"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/deploy"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/hints"
	"github.com/alnah/go-mailbuild/internal/notify"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Exit codes for the mailbuild CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
	ExitRemote  = 5 // S3 or Postmark errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, mailbuild.ErrBrowserConnect) ||
		errors.Is(err, mailbuild.ErrPageCreate) ||
		errors.Is(err, mailbuild.ErrPageLoad) ||
		errors.Is(err, mailbuild.ErrScreenshot) {
		return ExitBrowser
	}

	// Remote service errors (exit 5)
	if errors.Is(err, deploy.ErrList) ||
		errors.Is(err, deploy.ErrUpload) ||
		errors.Is(err, deploy.ErrDelete) ||
		errors.Is(err, notify.ErrSendFailed) {
		return ExitRemote
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrUnknownViewport) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, mailbuild.ErrEmptySource) ||
		errors.Is(err, mailbuild.ErrInvalidName) ||
		errors.Is(err, mailbuild.ErrInvalidViewport) ||
		errors.Is(err, mailbuild.ErrMissingViewBox) ||
		errors.Is(err, mailbuild.ErrMalformedViewBox) ||
		errors.Is(err, mailbuild.ErrTemplateRender) ||
		errors.Is(err, mailbuild.ErrMJMLCompile) ||
		errors.Is(err, pipeline.ErrInvalidValidation) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrDuplicatePartial) ||
		errors.Is(err, assets.ErrScaffoldExists) ||
		errors.Is(err, fileutil.ErrInvalidPattern) ||
		errors.Is(err, deploy.ErrDeployConfig) ||
		errors.Is(err, notify.ErrSenderConfig) ||
		errors.Is(err, notify.ErrInvalidEmail) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoEmails) ||
		errors.Is(err, ErrReadEmail) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, config.ErrDataFile) ||
		errors.Is(err, assets.ErrAssetRead) ||
		errors.Is(err, fileutil.ErrOutsideRoot) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, env *Environment) string {
	switch {
	case errors.Is(err, mailbuild.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, assets.ErrStyleNotFound):
		if env.AssetLoader == nil {
			return ""
		}
		styles, _ := env.AssetLoader.ListStyles()
		return hints.ForStyleNotFound(styles)
	case errors.Is(err, mailbuild.ErrMJMLCompile):
		level := config.ValidationSoft
		if env.Config != nil && env.Config.MJML.Validation != "" {
			level = env.Config.MJML.Validation
		}
		return hints.ForMJMLValidation(level)
	case errors.Is(err, mailbuild.ErrMissingViewBox):
		return hints.ForMissingViewBox()
	case errors.Is(err, deploy.ErrDeployConfig),
		errors.Is(err, deploy.ErrList),
		errors.Is(err, deploy.ErrUpload),
		errors.Is(err, deploy.ErrDelete):
		return hints.ForAWSCredentials()
	case errors.Is(err, notify.ErrSenderConfig),
		errors.Is(err, notify.ErrSendFailed):
		return hints.ForPostmarkToken()
	case errors.Is(err, fileutil.ErrOutsideRoot),
		errors.Is(err, os.ErrPermission):
		return hints.ForOutputDirectory()
	}
	return ""
}
