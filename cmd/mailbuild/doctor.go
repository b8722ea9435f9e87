package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-mailbuild/internal/config"
)

// Doctor statuses, from best to worst.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// ciEnvVars are set by the CI providers we recognize.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// doctorResult is the full diagnostic report, also emitted by --json.
type doctorResult struct {
	Status   string      `json:"status"`
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	Project  projectInfo `json:"project"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// projectInfo covers the project layout and service credentials.
type projectInfo struct {
	ConfigFound   bool   `json:"config_found"`
	ConfigError   string `json:"config_error,omitempty"`
	SourceDir     string `json:"source_dir"`
	SourceExists  bool   `json:"source_exists"`
	PostmarkToken bool   `json:"postmark_token"`
	AWSRegion     string `json:"aws_region,omitempty"`
}

type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

func (r *doctorResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runDoctorCmd prints the diagnostics. Warnings still exit 0; only
// errors make the command fail.
func runDoctorCmd(args []string, env *Environment) int {
	result := runDoctor()

	if slices.Contains(args, "--json") {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor() *doctorResult {
	r := &doctorResult{
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	for _, check := range []func(*doctorResult){checkChrome, checkEnvironment, checkProject, checkSystem} {
		check(r)
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
	return r
}

// checkChrome locates the browser used by 'mailbuild proof'. Building
// never needs it, so a missing browser is only a warning.
func checkChrome(r *doctorResult) {
	bin := r.Env.BrowserBin
	if bin == "" {
		found := false
		if bin, found = launcher.LookPath(); !found {
			r.warn("Chrome/Chromium not found; 'mailbuild proof' needs it. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}
	if _, err := os.Stat(bin); err != nil {
		r.warn("Chrome not found at %s", bin)
		return
	}

	r.Chrome = chromeInfo{Found: true, Path: bin, Sandbox: r.Env.NoSandbox != "1"}

	out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- browser path from env or rod lookup
	if err != nil {
		r.warn("Could not get Chrome version: %v", err)
		return
	}
	r.Chrome.Version = strings.TrimSpace(string(out))
}

func checkEnvironment(r *doctorResult) {
	r.Env.Container, r.Env.ContainerHint = detectContainer()
	r.Env.CI = slices.ContainsFunc(ciEnvVars, func(v string) bool { return os.Getenv(v) != "" })

	if (r.Env.Container || r.Env.CI) && r.Env.NoSandbox != "1" {
		r.warn("Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// detectContainer reports whether we run in a container and which
// signal gave it away.
func detectContainer() (bool, string) {
	switch {
	case os.Getenv("MAILBUILD_CONTAINER") == "1":
		return true, "MAILBUILD_CONTAINER=1"
	case fileExists("/.dockerenv"):
		return true, "/.dockerenv"
	case os.Getenv("container") != "":
		return true, "container=" + os.Getenv("container")
	case os.Getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// checkProject loads the project config the way build does, then looks
// at the source tree and the delivery credentials.
func checkProject(r *doctorResult) {
	name, explicit := os.LookupEnv("MAILBUILD_CONFIG")
	if !explicit || name == "" {
		name, explicit = defaultConfigName, false
	}

	cfg, err := config.LoadConfig(name)
	switch {
	case err == nil:
		r.Project.ConfigFound = true
	case !explicit && errors.Is(err, config.ErrConfigNotFound):
		cfg = config.DefaultConfig()
		r.warn("No mailbuild.yaml in the current directory. Run 'mailbuild init'")
	default:
		cfg = config.DefaultConfig()
		r.Project.ConfigError = err.Error()
		r.fail("Config: %v", err)
	}

	src := cfg.Paths.Source
	r.Project.SourceDir = src
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		r.Project.SourceExists = true
	} else if r.Project.ConfigFound {
		r.fail("Source directory %s not found", src)
	}

	if r.Project.PostmarkToken = os.Getenv("POSTMARK_SERVER_TOKEN") != ""; !r.Project.PostmarkToken {
		r.warn("POSTMARK_SERVER_TOKEN not set; 'mailbuild send' only works with --dry-run")
	}

	r.Project.AWSRegion = cfg.Deploy.Region
	if r.Project.AWSRegion == "" {
		r.Project.AWSRegion = os.Getenv("AWS_REGION")
	}
}

func checkSystem(r *doctorResult) {
	dir := os.TempDir()
	probe := filepath.Join(dir, "mailbuild-doctor-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		r.fail("Temp directory not writable: %s", dir)
		return
	}
	_ = os.Remove(probe)
	r.System.TempWritable = true
}

// reportWriter prints indented "[TAG] text" lines under section titles.
type reportWriter struct {
	w io.Writer
}

func (p reportWriter) section(title string) { fmt.Fprintf(p.w, "%s\n", title) }
func (p reportWriter) end()                 { fmt.Fprintln(p.w) }

func (p reportWriter) line(tag, format string, args ...any) {
	fmt.Fprintf(p.w, "  [%s] %s\n", tag, fmt.Sprintf(format, args...))
}

// check prints ok when cond holds, otherwise bad with the given tag.
func (p reportWriter) check(cond bool, okText, badTag, badText string) {
	if cond {
		p.line("OK", "%s", okText)
		return
	}
	p.line(badTag, "%s", badText)
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	p := reportWriter{w: w}

	p.section("mailbuild doctor")
	p.end()

	p.section("Chrome/Chromium")
	if r.Chrome.Found {
		p.line("OK", "Found at %s", r.Chrome.Path)
		if r.Chrome.Version != "" {
			p.line("OK", "Version: %s", r.Chrome.Version)
		}
		p.check(r.Chrome.Sandbox, "Sandbox: enabled", "OK", "Sandbox: disabled (ROD_NO_SANDBOX=1)")
	} else {
		p.line("WARN", "Not found")
	}
	p.end()

	p.section("Environment")
	p.line("OK", "Platform: %s/%s", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		p.line("OK", "Container: detected (%s)", r.Env.ContainerHint)
	}
	if r.Env.CI {
		p.line("OK", "CI: detected")
	}
	p.end()

	p.section("Project")
	p.check(r.Project.ConfigFound, "Config: found", "WARN", "Config: not found, using defaults")
	p.check(r.Project.SourceExists, "Source: "+r.Project.SourceDir, "WARN", "Source: "+r.Project.SourceDir+" missing")
	p.check(r.Project.PostmarkToken, "Postmark token: set", "WARN", "Postmark token: not set")
	if r.Project.AWSRegion != "" {
		p.line("OK", "AWS region: %s", r.Project.AWSRegion)
	}
	p.end()

	p.section("System")
	p.check(r.System.TempWritable, "Temp directory: writable", "ERROR", "Temp directory: not writable")
	p.end()

	for _, group := range []struct {
		title, tag string
		msgs       []string
	}{
		{"Warnings:", "WARN", r.Warnings},
		{"Errors:", "ERROR", r.Errors},
	} {
		if len(group.msgs) == 0 {
			continue
		}
		p.section(group.title)
		for _, m := range group.msgs {
			p.line(group.tag, "%s", m)
		}
		p.end()
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to build")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
