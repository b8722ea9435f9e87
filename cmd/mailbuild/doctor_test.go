package main

// Notes:
// - Tests use black-box approach: testing through runDoctorCmd() observable outputs
// - Container and CI detection tests use t.Setenv(), so they cannot use t.Parallel()
// - Chrome detection depends on system state, tested via observable JSON output
// - Project checks run in the package directory, which has no mailbuild.yaml,
//   and in a temp project passed through MAILBUILD_CONFIG.

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func runDoctorJSON(t *testing.T) (*doctorResult, int) {
	t.Helper()

	var stdout bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	code := runDoctorCmd([]string{"--json"}, env)

	var result doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput was: %s", err, stdout.String())
	}
	return &result, code
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// clearContainerEnv removes every container signal except /.dockerenv.
func clearContainerEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"MAILBUILD_CONTAINER", "container", "KUBERNETES_SERVICE_HOST"} {
		t.Setenv(v, "")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput - Verifies JSON output format and structure
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	result, exitCode := runDoctorJSON(t)

	validStatuses := map[string]bool{"ready": true, "warnings": true, "errors": true}
	if !validStatuses[result.Status] {
		t.Errorf("Invalid status %q, expected ready/warnings/errors", result.Status)
	}

	if result.Status == "errors" && exitCode != ExitGeneral {
		t.Errorf("Expected exit code %d for errors status, got %d", ExitGeneral, exitCode)
	}
	if result.Status != "errors" && exitCode != ExitSuccess {
		t.Errorf("Expected exit code %d for non-error status, got %d", ExitSuccess, exitCode)
	}

	if result.Env.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", result.Env.OS, runtime.GOOS)
	}
	if result.Env.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", result.Env.Arch, runtime.GOARCH)
	}
	if !result.System.TempWritable {
		t.Error("Temp directory should be writable in normal conditions")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_HumanOutput - Verifies human-readable output format
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_HumanOutput(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	runDoctorCmd([]string{}, env)

	output := stdout.String()
	for _, section := range []string{"mailbuild doctor", "Chrome/Chromium", "Environment", "Project", "System", "Status:"} {
		if !strings.Contains(output, section) {
			t.Errorf("Output should contain section %q", section)
		}
	}

	platformStr := runtime.GOOS + "/" + runtime.GOARCH
	if !strings.Contains(output, platformStr) {
		t.Errorf("Output should contain platform %q", platformStr)
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_ContainerDetection - Verifies container environment detection
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_ContainerDetection(t *testing.T) {
	t.Run("explicit MAILBUILD_CONTAINER override has priority", func(t *testing.T) {
		clearContainerEnv(t)
		t.Setenv("MAILBUILD_CONTAINER", "1")
		t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")

		result, _ := runDoctorJSON(t)

		if !result.Env.Container {
			t.Error("Container = false, want true")
		}
		if result.Env.ContainerHint != "MAILBUILD_CONTAINER=1" {
			t.Errorf("ContainerHint = %q, want MAILBUILD_CONTAINER=1", result.Env.ContainerHint)
		}
	})

	t.Run("kubernetes environment", func(t *testing.T) {
		if _, err := os.Stat("/.dockerenv"); err == nil {
			t.Skip("/.dockerenv takes priority on this host")
		}
		clearContainerEnv(t)
		t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")

		result, _ := runDoctorJSON(t)

		if result.Env.ContainerHint != "KUBERNETES_SERVICE_HOST" {
			t.Errorf("ContainerHint = %q, want KUBERNETES_SERVICE_HOST", result.Env.ContainerHint)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_SandboxWarning - Verifies sandbox warning in container/CI
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_SandboxWarning(t *testing.T) {
	t.Run("CI without ROD_NO_SANDBOX warns", func(t *testing.T) {
		t.Setenv("CI", "true")
		t.Setenv("ROD_NO_SANDBOX", "")

		result, _ := runDoctorJSON(t)

		if !result.Env.CI {
			t.Error("CI = false, want true")
		}
		if !hasMessage(result.Warnings, "ROD_NO_SANDBOX") {
			t.Errorf("Expected sandbox warning, got %v", result.Warnings)
		}
		if result.Status == "ready" {
			t.Error("Status should not be 'ready' when warnings are present")
		}
	})

	t.Run("no warning when sandbox disabled", func(t *testing.T) {
		t.Setenv("CI", "true")
		t.Setenv("ROD_NO_SANDBOX", "1")

		result, _ := runDoctorJSON(t)

		if hasMessage(result.Warnings, "ROD_NO_SANDBOX") {
			t.Error("Should not warn about sandbox when ROD_NO_SANDBOX=1")
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Project - Verifies project and credential checks
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Project(t *testing.T) {
	t.Run("no config warns", func(t *testing.T) {
		t.Setenv("MAILBUILD_CONFIG", "")

		result, _ := runDoctorJSON(t)

		if result.Project.ConfigFound {
			t.Error("ConfigFound = true, want false (no mailbuild.yaml in package dir)")
		}
		if !hasMessage(result.Warnings, "mailbuild init") {
			t.Errorf("Expected init suggestion, got %v", result.Warnings)
		}
	})

	t.Run("config from environment", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		if err := os.MkdirAll(src, 0o755); err != nil {
			t.Fatal(err)
		}
		cfgPath := filepath.Join(dir, "mailbuild.yaml")
		content := "paths:\n  source: " + src + "\ndeploy:\n  region: eu-west-1\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("MAILBUILD_CONFIG", cfgPath)
		t.Setenv("POSTMARK_SERVER_TOKEN", "token")

		result, _ := runDoctorJSON(t)

		if !result.Project.ConfigFound {
			t.Errorf("ConfigFound = false (error: %s)", result.Project.ConfigError)
		}
		if !result.Project.SourceExists {
			t.Errorf("SourceExists = false for %s", result.Project.SourceDir)
		}
		if !result.Project.PostmarkToken {
			t.Error("PostmarkToken = false, want true")
		}
		if result.Project.AWSRegion != "eu-west-1" {
			t.Errorf("AWSRegion = %q, want eu-west-1", result.Project.AWSRegion)
		}
	})

	t.Run("invalid config is an error", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "broken.yaml")
		if err := os.WriteFile(cfgPath, []byte("paths: [not a mapping\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("MAILBUILD_CONFIG", cfgPath)

		result, code := runDoctorJSON(t)

		if result.Status != "errors" {
			t.Errorf("Status = %q, want errors", result.Status)
		}
		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		if result.Project.ConfigError == "" {
			t.Error("ConfigError should be reported")
		}
	})

	t.Run("missing token warns", func(t *testing.T) {
		t.Setenv("POSTMARK_SERVER_TOKEN", "")

		result, _ := runDoctorJSON(t)

		if !hasMessage(result.Warnings, "POSTMARK_SERVER_TOKEN") {
			t.Errorf("Expected token warning, got %v", result.Warnings)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_ReportsRODBrowserBin - Verifies env var reporting
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_ReportsRODBrowserBin(t *testing.T) {
	testPath := "/custom/chrome/path"
	t.Setenv("ROD_BROWSER_BIN", testPath)

	result, _ := runDoctorJSON(t)

	if result.Env.BrowserBin != testPath {
		t.Errorf("BrowserBin = %q, want %q", result.Env.BrowserBin, testPath)
	}
	if result.Chrome.Found {
		t.Error("Chrome.Found = true for a path that does not exist")
	}
}
