package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// compiledPattern matches built emails under the dist directory.
const compiledPattern = "**/*.html"

// Proofer is the interface for the screenshot service.
type Proofer interface {
	Proof(ctx context.Context, htmlContent, baseDir string, viewports []mailbuild.Viewport) ([]mailbuild.Screenshot, error)
}

// Compile-time interface implementation check.
var _ Proofer = (*mailbuild.Proofer)(nil)

// Pool abstracts proofer pool operations for testability.
type Pool interface {
	Acquire() Proofer
	Release(Proofer)
	Size() int
}

// poolAdapter exposes a *mailbuild.ProoferPool as a Pool.
type poolAdapter struct {
	pool *mailbuild.ProoferPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

func (a *poolAdapter) Acquire() Proofer {
	if pr := a.pool.Acquire(); pr != nil {
		return pr
	}
	return nil
}

// Release panics when given a Proofer the pool did not hand out.
func (a *poolAdapter) Release(p Proofer) {
	pr, ok := p.(*mailbuild.Proofer)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", p))
	}
	a.pool.Release(pr)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

// ProofJob represents a single compiled email to capture.
type ProofJob struct {
	Name     string // Email name, e.g. "promo/sale"
	HTMLPath string
}

// ProofResult holds the outcome of a single email's proofs.
type ProofResult struct {
	Name        string
	HTMLPath    string
	OutputPaths []string
	Err         error
	Duration    time.Duration
}

// runProofCmd parses flags and captures proofs of the built emails.
func runProofCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseProofFlags(args)
	if err != nil {
		return err
	}
	if err := rejectArgs("proof", positional); err != nil {
		return err
	}

	p, err := loadProject(&flags.common, env)
	if err != nil {
		return err
	}
	if flags.output != "" {
		p.cfg.Proof.Output = flags.output
	}

	timeout, err := resolveTimeout(flags.batch.timeout, p.env.Timeout)
	if err != nil {
		return err
	}
	workers, err := resolveWorkers(flags.batch.workers, p.env.Workers)
	if err != nil {
		return err
	}
	if flags.batch.only != "" && !doublestar.ValidatePattern(flags.batch.only) {
		return fmt.Errorf("%w: --only %q", fileutil.ErrInvalidPattern, flags.batch.only)
	}

	viewports, err := selectViewports(p.cfg.Proof.Viewports, flags.viewports)
	if err != nil {
		return err
	}

	jobs, err := discoverCompiled(p.cfg.Paths.Dist, flags.batch.only)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: no .html files in %s (run 'mailbuild build' first)", ErrNoEmails, p.cfg.Paths.Dist)
	}

	var opts []mailbuild.ProoferOption
	if timeout > 0 {
		opts = append(opts, mailbuild.WithProofTimeout(timeout))
	}
	size := mailbuild.ResolvePoolSize(workers)
	env.Logger.Debug("capturing proofs", "emails", len(jobs), "viewports", len(viewports), "pool", size)

	pool := mailbuild.NewProoferPool(size, opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			env.Logger.Warn("closing browsers", "error", err)
		}
	}()

	results := proofBatch(ctx, &poolAdapter{pool: pool}, jobs, viewports, p.cfg.Proof.Output)
	failed := printProofResults(results, flags.common.quiet, flags.common.verbose, env)

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("%d proof(s) failed", failed)
	}
	return nil
}

// selectViewports converts configured viewports and keeps the named ones.
// An empty selection keeps all of them.
func selectViewports(configured []config.Viewport, names []string) ([]mailbuild.Viewport, error) {
	all := make([]mailbuild.Viewport, 0, len(configured))
	for _, vp := range configured {
		all = append(all, mailbuild.Viewport{
			Name:   vp.Name,
			Width:  vp.Width,
			Height: vp.Height,
			Scale:  vp.Scale,
			Mobile: vp.Mobile,
		})
	}
	if len(all) == 0 {
		all = mailbuild.DefaultViewports()
	}
	if len(names) == 0 {
		return all, nil
	}

	selected := make([]mailbuild.Viewport, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(all, func(vp mailbuild.Viewport) bool { return vp.Name == name })
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownViewport, name)
		}
		selected = append(selected, all[idx])
	}
	return selected, nil
}

// discoverCompiled lists the built emails under dist, filtered by only.
func discoverCompiled(dist, only string) ([]ProofJob, error) {
	files, err := doublestar.Glob(os.DirFS(dist), compiledPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dist, err)
	}
	slices.Sort(files)

	var jobs []ProofJob
	for _, rel := range files {
		name := emailName(rel, ".")
		if only != "" && !fileutil.Match(only, name) {
			continue
		}
		jobs = append(jobs, ProofJob{Name: name, HTMLPath: filepath.Join(dist, filepath.FromSlash(rel))})
	}
	return jobs, nil
}

// proofBatch captures proofs concurrently using the pool.
// Results are returned in job order.
func proofBatch(ctx context.Context, pool Pool, jobs []ProofJob, viewports []mailbuild.Viewport, outDir string) []ProofResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := pool.Size()
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	results := make([]ProofResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			pr := pool.Acquire()
			if pr == nil {
				for idx := range queue {
					results[idx] = ProofResult{
						Name:     jobs[idx].Name,
						HTMLPath: jobs[idx].HTMLPath,
						Err:      mailbuild.ErrBrowserConnect,
					}
				}
				return
			}
			defer pool.Release(pr)

			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = ProofResult{Name: jobs[idx].Name, HTMLPath: jobs[idx].HTMLPath, Err: err}
					continue
				}
				results[idx] = proofEmail(ctx, pr, jobs[idx], viewports, outDir)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// proofEmail captures one email and writes <outDir>/<name>/<viewport>.png.
func proofEmail(ctx context.Context, pr Proofer, job ProofJob, viewports []mailbuild.Viewport, outDir string) ProofResult {
	start := time.Now()
	result := ProofResult{Name: job.Name, HTMLPath: job.HTMLPath}

	content, err := os.ReadFile(job.HTMLPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrReadEmail, err)
		result.Duration = time.Since(start)
		return result
	}

	shots, err := pr.Proof(ctx, string(content), filepath.Dir(job.HTMLPath), viewports)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	for _, shot := range shots {
		out, err := fileutil.WriteFile(outDir, path.Join(job.Name, shot.Viewport.Name+".png"), shot.PNG)
		if err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrWriteOutput, err)
			break
		}
		result.OutputPaths = append(result.OutputPaths, out)
	}

	result.Duration = time.Since(start)
	return result
}

// printProofResults outputs proof results and returns the failure count.
func printProofResults(results []ProofResult, quiet, verbose bool, env *Environment) int {
	var ok, failed int

	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.HTMLPath, r.Err)
			continue
		}
		ok++

		if quiet {
			continue
		}
		for _, out := range r.OutputPaths {
			if verbose {
				fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.HTMLPath, out, r.Duration.Round(time.Millisecond))
			} else {
				fmt.Fprintf(env.Stdout, "Created %s\n", out)
			}
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", ok, failed)
	}
	return failed
}
