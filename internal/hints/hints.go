// Package hints builds short suggestions appended to CLI error messages.
// Every hint starts with "\n  hint: " so it lands on its own line.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// IsInContainer reports whether the process runs in a container.
// Tests replace it to simulate either case.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ciVars are set by the CI providers we recognize.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"}

func inCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect suggests the ROD_* variables that usually fix a
// browser that fails to start, skipping the ones already set.
func ForBrowserConnect() string {
	var h hintList
	h.addIf((inCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1",
		"set ROD_NO_SANDBOX=1 for Docker/CI")
	h.addIf(os.Getenv("ROD_BROWSER_BIN") == "",
		"set ROD_BROWSER_BIN to use custom Chrome")
	return h.String()
}

// ForTimeout is appended to deadline errors from compile and proof.
func ForTimeout() string {
	return format("for large templates, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag, mailbuild init, or a config in ~/.config/go-mailbuild/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "run 'mailbuild init' or use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-mailbuild") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory is used when dist or tmp cannot be created.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the embedded styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForMJMLValidation returns a hint for templates rejected by the compiler.
func ForMJMLValidation(level string) string {
	if level == "strict" {
		return format("fix the reported tags or set mjml.validation: soft")
	}
	return format("check the reported line in the assembled file under paths.tmp")
}

// ForMissingViewBox returns a hint for SVG files that cannot be sized.
func ForMissingViewBox() string {
	return format("add a viewBox to the SVG, disable images.svgSize, or set images.onError: skip")
}

// ForAWSCredentials returns hints for S3 authentication and access errors.
func ForAWSCredentials() string {
	var h hintList
	h.addIf(os.Getenv("AWS_ACCESS_KEY_ID") == "" && os.Getenv("AWS_PROFILE") == "",
		"set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY or AWS_PROFILE")
	h.addIf(os.Getenv("AWS_REGION") == "", "set deploy.region or AWS_REGION")
	h.addIf(true, "use --dry-run to preview changes")
	return h.String()
}

// ForPostmarkToken returns hints for test send configuration errors.
func ForPostmarkToken() string {
	if os.Getenv("POSTMARK_SERVER_TOKEN") == "" {
		return format("set POSTMARK_SERVER_TOKEN or use --dry-run")
	}
	return format("check the sender signature is confirmed in Postmark")
}

// format renders one hint as "\n  hint: <text>". Empty text gives "".
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// hintList collects suggestions rendered on a single hint line.
type hintList []string

func (h *hintList) addIf(cond bool, hint string) {
	if cond {
		*h = append(*h, hint)
	}
}

func (h hintList) String() string {
	return format(strings.Join(h, "; "))
}
