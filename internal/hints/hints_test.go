package hints

// Notes:
// - Hints that read the environment are tested with t.Setenv() and a
//   swapped IsInContainer, so only TestFixedHints runs in parallel.

import (
	"strings"
	"testing"
)

func TestForBrowserConnect(t *testing.T) {
	tests := []struct {
		name        string
		container   bool
		ci          string
		noSandbox   string
		browserBin  string
		wantSandbox bool
		wantBin     bool
	}{
		{"ci without settings", false, "true", "", "", true, true},
		{"container without settings", true, "", "", "", true, true},
		{"container with sandbox disabled", true, "", "1", "", false, true},
		{"local with custom browser", false, "", "", "/usr/bin/chromium", false, false},
		{"fully configured", true, "true", "1", "/usr/bin/chromium", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := IsInContainer
			t.Cleanup(func() { IsInContainer = orig })
			IsInContainer = func() bool { return tt.container }

			t.Setenv("CI", tt.ci)
			t.Setenv("GITHUB_ACTIONS", "")
			t.Setenv("GITLAB_CI", "")
			t.Setenv("JENKINS_URL", "")
			t.Setenv("ROD_NO_SANDBOX", tt.noSandbox)
			t.Setenv("ROD_BROWSER_BIN", tt.browserBin)

			hint := ForBrowserConnect()

			if got := strings.Contains(hint, "ROD_NO_SANDBOX"); got != tt.wantSandbox {
				t.Errorf("sandbox suggestion = %v, want %v (hint %q)", got, tt.wantSandbox, hint)
			}
			if got := strings.Contains(hint, "ROD_BROWSER_BIN"); got != tt.wantBin {
				t.Errorf("browser suggestion = %v, want %v (hint %q)", got, tt.wantBin, hint)
			}
			if !tt.wantSandbox && !tt.wantBin && hint != "" {
				t.Errorf("expected empty hint, got %q", hint)
			}
		})
	}
}

func TestFixedHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hint  string
		wants []string
	}{
		{"timeout", ForTimeout(), []string{"--timeout"}},
		{"output directory", ForOutputDirectory(), []string{"parent directory"}},
		{"strict validation", ForMJMLValidation("strict"), []string{"mjml.validation: soft"}},
		{"soft validation", ForMJMLValidation("soft"), []string{"paths.tmp"}},
		{"missing viewBox", ForMissingViewBox(), []string{"viewBox", "images.onError"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !strings.HasPrefix(tt.hint, "\n  hint: ") {
				t.Errorf("hint %q lacks the hint prefix", tt.hint)
			}
			for _, want := range tt.wants {
				if !strings.Contains(tt.hint, want) {
					t.Errorf("hint %q does not mention %q", tt.hint, want)
				}
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		wantHint bool
		contains string
	}{
		{
			name:     "empty paths",
			paths:    []string{},
			wantHint: true,
			contains: "--config",
		},
		{
			name:     "with paths",
			paths:    []string{"./foo.yaml", "~/.config/go-mailbuild/foo.yaml"},
			wantHint: true,
			contains: "go-mailbuild/foo.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := ForConfigNotFound(tt.paths)

			if tt.wantHint && !strings.Contains(hint, "hint:") {
				t.Error("expected hint prefix")
			}
			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestForStyleNotFound(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		wantEmpty bool
		contains  string
	}{
		{
			name:      "empty available",
			available: []string{},
			wantEmpty: true,
		},
		{
			name:      "with styles",
			available: []string{"reset", "outlook"},
			contains:  "reset, outlook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := ForStyleNotFound(tt.available)

			if tt.wantEmpty && hint != "" {
				t.Errorf("expected empty hint, got %q", hint)
			}
			if !tt.wantEmpty && !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestForAWSCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")

	hint := ForAWSCredentials()
	for _, want := range []string{"AWS_ACCESS_KEY_ID", "AWS_REGION", "--dry-run"} {
		if !strings.Contains(hint, want) {
			t.Errorf("hint = %q, want containing %q", hint, want)
		}
	}

	t.Setenv("AWS_PROFILE", "email")
	t.Setenv("AWS_REGION", "eu-west-1")
	hint = ForAWSCredentials()
	if strings.Contains(hint, "AWS_ACCESS_KEY_ID") || strings.Contains(hint, "AWS_REGION") {
		t.Errorf("hint = %q, want only dry-run suggestion", hint)
	}
}

func TestForPostmarkToken(t *testing.T) {
	t.Setenv("POSTMARK_SERVER_TOKEN", "")
	if hint := ForPostmarkToken(); !strings.Contains(hint, "POSTMARK_SERVER_TOKEN") {
		t.Errorf("hint = %q, want token suggestion", hint)
	}

	t.Setenv("POSTMARK_SERVER_TOKEN", "token")
	if hint := ForPostmarkToken(); !strings.Contains(hint, "sender signature") {
		t.Errorf("hint = %q, want sender signature mention", hint)
	}
}

func TestHintList(t *testing.T) {
	var h hintList
	if got := h.String(); got != "" {
		t.Errorf("empty list = %q, want empty", got)
	}

	h.addIf(false, "skipped")
	h.addIf(true, "first")
	h.addIf(true, "second")
	if got, want := h.String(), "\n  hint: first; second"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
