package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// EmailBuilder is the interface for the email build service.
type EmailBuilder interface {
	Build(ctx context.Context, input mailbuild.Input) (*mailbuild.Result, error)
}

// Compile-time interface implementation check.
var _ EmailBuilder = (*mailbuild.Builder)(nil)

// EmailJob represents a single email to build.
type EmailJob struct {
	Name       string // Output name, e.g. "welcome" or "promo/sale"
	SourcePath string
	Source     string
}

// BuildResult holds the outcome of a single email build.
type BuildResult struct {
	Name       string
	SourcePath string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// buildParams groups parameters shared across the batch.
type buildParams struct {
	css     string
	baseURL string
	dist    string
	tmp     string // Empty unless intermediates are kept
}

// buildBatch builds emails concurrently with at most workers goroutines.
// Results are returned in job order.
func buildBatch(ctx context.Context, builder EmailBuilder, jobs []EmailJob, workers int, params *buildParams) []BuildResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := workers
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	results := make([]BuildResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = BuildResult{
						Name:       jobs[idx].Name,
						SourcePath: jobs[idx].SourcePath,
						Err:        err,
					}
					continue
				}
				results[idx] = buildEmail(ctx, builder, jobs[idx], params)
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

// buildEmail builds a single email and writes its outputs.
func buildEmail(ctx context.Context, builder EmailBuilder, job EmailJob, params *buildParams) BuildResult {
	start := time.Now()
	result := BuildResult{Name: job.Name, SourcePath: job.SourcePath}

	res, err := builder.Build(ctx, mailbuild.Input{
		Name:    job.Name,
		Source:  job.Source,
		CSS:     params.css,
		BaseURL: params.baseURL,
	})
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if params.tmp != "" {
		if _, err := fileutil.WriteFile(params.tmp, job.Name+".mjml", []byte(res.MJML)); err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrWriteOutput, err)
			result.Duration = time.Since(start)
			return result
		}
	}

	out, err := fileutil.WriteFile(params.dist, job.Name+".html", []byte(res.HTML))
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrWriteOutput, err)
		result.Duration = time.Since(start)
		return result
	}

	result.OutputPath = out
	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed builds.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed builds.
func countResults(results []BuildResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printBuildResults outputs build results and returns the failure count.
func printBuildResults(results []BuildResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.SourcePath, r.Err)
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.SourcePath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > mailbuild.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, mailbuild.MaxPoolSize)
	}
	return nil
}
