package mailbuild

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
	"github.com/alnah/go-mailbuild/internal/process"
)

// screenshotRenderer abstracts capturing a local HTML file to enable
// testing without a browser.
type screenshotRenderer interface {
	CaptureFromFile(ctx context.Context, filePath string, vp Viewport) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ screenshotRenderer = (*rodRenderer)(nil)

// Screenshot is one proof image.
type Screenshot struct {
	Viewport Viewport
	PNG      []byte
}

// ProoferOption configures a Proofer.
type ProoferOption func(*Proofer)

// WithProofTimeout sets the page load timeout when the context has no
// deadline. Panics if d <= 0.
func WithProofTimeout(d time.Duration) ProoferOption {
	if d <= 0 {
		panic("mailbuild: WithProofTimeout duration must be positive")
	}
	return func(p *Proofer) {
		p.timeout = d
	}
}

// Proofer renders compiled emails to PNG screenshots with headless Chrome.
// The browser is launched on first use. A Proofer renders one email at a
// time; use ProoferPool for parallel proofs.
type Proofer struct {
	timeout  time.Duration
	renderer screenshotRenderer
}

// NewProofer creates a Proofer. No browser is started until Proof is called.
func NewProofer(opts ...ProoferOption) *Proofer {
	p := &Proofer{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = newRodRenderer(p.timeout)
	}
	return p
}

// Proof captures htmlContent at each viewport. Relative image references
// are resolved against baseDir so local assets show up in the proofs.
func (p *Proofer) Proof(ctx context.Context, htmlContent, baseDir string, viewports []Viewport) ([]Screenshot, error) {
	if len(viewports) == 0 {
		viewports = DefaultViewports()
	}
	for _, vp := range viewports {
		if err := vp.Validate(); err != nil {
			return nil, err
		}
	}

	htmlContent, err := pipeline.RewriteRelativePaths(htmlContent, baseDir)
	if err != nil {
		return nil, fmt.Errorf("rewriting relative paths: %w", err)
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	shots := make([]Screenshot, 0, len(viewports))
	for _, vp := range viewports {
		if err := ctx.Err(); err != nil {
			return shots, err
		}
		data, err := p.renderer.CaptureFromFile(ctx, tmpPath, vp)
		if err != nil {
			return shots, err
		}
		shots = append(shots, Screenshot{Viewport: vp, PNG: data})
	}
	return shots, nil
}

// Close releases browser resources.
func (p *Proofer) Close() error {
	if p.renderer != nil {
		return p.renderer.Close()
	}
	return nil
}

// rodRenderer implements screenshotRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if noSandbox() {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	return nil
}

// noSandbox reports whether Chrome must run without its sandbox, which
// CI runners and containers require.
func noSandbox() bool {
	if v, err := strconv.ParseBool(os.Getenv("ROD_NO_SANDBOX")); err == nil {
		return v
	}
	return os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != ""
}

// Close closes the browser and kills its process group so no renderer
// child processes outlive the proofer.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	if pid := r.launcher.PID(); pid > 0 {
		_ = process.KillProcessGroup(pid) // Best-effort; launcher.Kill below is the fallback
	}
	r.launcher.Kill()
	r.launcher.Cleanup()
	r.browser = nil
	r.launcher = nil
	return err
}

// CaptureFromFile opens a local HTML file at the viewport size and returns
// a full-page PNG screenshot.
func (r *rodRenderer) CaptureFromFile(ctx context.Context, filePath string, vp Viewport) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	scale := vp.Scale
	if scale == 0 {
		scale = 1
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: scale,
		Mobile:            vp.Mobile,
	}); err != nil {
		return nil, fmt.Errorf("%w: setting viewport %s: %v", ErrPageCreate, vp.Name, err)
	}

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).Navigate("file://" + filePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScreenshot, vp.Name, err)
	}
	return data, nil
}
