package main

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// buildOptions holds the resolved settings of one build run.
type buildOptions struct {
	timeout    time.Duration
	workers    int
	only       string
	keepTmp    bool
	skipErrors bool
	quiet      bool
	verbose    bool
}

// runBuildCmd parses flags and runs the full build.
func runBuildCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(args)
	if err != nil {
		return err
	}
	if err := rejectArgs("build", positional); err != nil {
		return err
	}

	p, err := loadProject(&flags.common, env)
	if err != nil {
		return err
	}
	mergeBuildFlags(flags, p.cfg)

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

	return runBuild(ctx, p.cfg, buildOptions{
		timeout:    timeout,
		workers:    mailbuild.ResolvePoolSize(workers),
		only:       flags.batch.only,
		keepTmp:    flags.keepTmp,
		skipErrors: flags.skipErrors,
		quiet:      flags.common.quiet,
		verbose:    flags.common.verbose,
	}, env)
}

// mergeBuildFlags merges CLI flags into config. CLI values override config values.
func mergeBuildFlags(flags *buildFlags, cfg *config.Config) {
	if flags.output != "" {
		cfg.Paths.Dist = flags.output
	}
	if flags.noInline {
		cfg.Inline.Enabled = false
	}
	if flags.noImages {
		cfg.Images.Enabled = false
	}
	if flags.minify {
		cfg.MJML.Minify = true
		cfg.MJML.Beautify = false
		cfg.CSS.Minify = true
	}
}

// runBuild processes stylesheets, emails and images, in that order.
// Emails are built concurrently; a failed email fails the run unless
// skipErrors is set.
func runBuild(ctx context.Context, cfg *config.Config, opts buildOptions, env *Environment) error {
	start := time.Now()
	log := env.Logger

	data, err := cfg.LoadData(".")
	if err != nil {
		return err
	}
	if err := resolveDataDates(data, env.Now()); err != nil {
		return err
	}

	css, err := processStylesheets(ctx, cfg, opts, env)
	if err != nil {
		return err
	}

	jobs, err := discoverEmails(cfg.Paths.Source, cfg.Paths.Emails, opts.only)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: %q matched nothing in %s", ErrNoEmails, cfg.Paths.Emails, cfg.Paths.Source)
	}

	builder, err := newBuilder(cfg, data, opts.timeout, env)
	if err != nil {
		return err
	}

	params := &buildParams{
		css:     css,
		baseURL: cfg.Deploy.BaseURL,
		dist:    cfg.Paths.Dist,
	}
	if opts.keepTmp {
		params.tmp = cfg.Paths.Tmp
	}

	log.Debug("building emails", "count", len(jobs), "workers", opts.workers)
	results := buildBatch(ctx, builder, jobs, opts.workers, params)
	failed := printBuildResults(results, opts.quiet, opts.verbose, env)

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 && !opts.skipErrors {
		return fmt.Errorf("%d email(s) failed", failed)
	}

	if cfg.Images.Enabled {
		n, err := processImages(ctx, cfg, opts, env)
		if err != nil {
			return err
		}
		log.Info("images written", "count", n, "dir", cfg.Paths.Dist)
	}

	log.Debug("build complete", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// processStylesheets runs every stylesheet through the CSS stage and
// returns them concatenated in path order.
func processStylesheets(ctx context.Context, cfg *config.Config, opts buildOptions, env *Environment) (string, error) {
	if cfg.Paths.CSS == "" {
		return "", nil
	}

	records, err := mailbuild.LoadRecords(cfg.Paths.Source, cfg.Paths.CSS)
	if err != nil {
		return "", err
	}

	sheet := pipeline.NewStylesheet(pipeline.StylesheetOptions{
		Autoprefix:        cfg.CSS.Autoprefix,
		GroupMediaQueries: cfg.CSS.GroupMediaQueries,
		Minify:            cfg.CSS.Minify,
	})
	runner := &mailbuild.Runner{
		Stages: []mailbuild.Stage{mailbuild.OnlyExt(pipeline.NewStylesheetStage(sheet), ".css")},
	}
	out, err := runner.Run(ctx, records)
	if err != nil {
		return "", err
	}

	if opts.keepTmp {
		if _, err := mailbuild.WriteRecords(cfg.Paths.Tmp, out); err != nil {
			return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
	}

	var b strings.Builder
	for _, rec := range out {
		if rec.IsNull() || rec.Ext() != ".css" {
			continue
		}
		b.Write(rec.Contents)
		b.WriteByte('\n')
	}
	env.Logger.Debug("stylesheets processed", "files", len(out), "bytes", b.Len())
	return b.String(), nil
}

// discoverEmails loads the email sources matching pattern under src.
// only, when set, filters on the email name.
func discoverEmails(src, pattern, only string) ([]EmailJob, error) {
	records, err := mailbuild.LoadRecords(src, pattern)
	if err != nil {
		return nil, err
	}

	base, _ := doublestar.SplitPattern(pattern)

	var jobs []EmailJob
	for _, rec := range records {
		if rec.IsNull() {
			continue
		}
		name := emailName(rec.Path, base)
		if only != "" && !fileutil.Match(only, name) {
			continue
		}
		jobs = append(jobs, EmailJob{
			Name:       name,
			SourcePath: filepath.Join(src, filepath.FromSlash(rec.Path)),
			Source:     string(rec.Contents),
		})
	}
	return jobs, nil
}

// emailName strips the pattern's static base and the extension:
// "emails/promo/sale.mjml" under base "emails" is "promo/sale".
func emailName(rel, base string) string {
	if base != "." && base != "" {
		rel = strings.TrimPrefix(rel, base+"/")
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// newBuilder creates the email builder from config.
func newBuilder(cfg *config.Config, data map[string]any, timeout time.Duration, env *Environment) (*mailbuild.Builder, error) {
	opts := []mailbuild.Option{
		mailbuild.WithData(data),
		mailbuild.WithValidation(cfg.MJML.Validation),
		mailbuild.WithMinify(cfg.MJML.Minify),
		mailbuild.WithBeautify(cfg.MJML.Beautify),
		mailbuild.WithKeepComments(cfg.MJML.KeepComments),
		mailbuild.WithLogger(env.Logger),
		mailbuild.WithClock(env.Now),
	}
	if cfg.Paths.Partials != "" {
		opts = append(opts, mailbuild.WithPartialsDir(filepath.Join(cfg.Paths.Source, cfg.Paths.Partials)))
	}
	if timeout > 0 {
		opts = append(opts, mailbuild.WithTimeout(timeout))
	}
	if cfg.Inline.Enabled {
		opts = append(opts, mailbuild.WithInline(mailbuild.InlineOptions{
			PreserveMediaQueries: cfg.Inline.PreserveMediaQueries,
			ApplyWidthAttributes: cfg.Inline.ApplyWidthAttributes,
		}))
	} else {
		opts = append(opts, mailbuild.WithoutInline())
	}
	if cfg.CSS.Style != "" {
		opts = append(opts, mailbuild.WithBaseStyle(cfg.CSS.Style))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, mailbuild.WithAssetPath(cfg.Assets.BasePath))
	}
	return mailbuild.NewBuilder(opts...)
}

// processImages optimizes the images under the source tree and writes
// them to dist, keeping their relative paths. Returns the number of
// files written.
func processImages(ctx context.Context, cfg *config.Config, opts buildOptions, env *Environment) (int, error) {
	if cfg.Paths.Images == "" {
		return 0, nil
	}

	records, err := mailbuild.LoadRecords(cfg.Paths.Source, cfg.Paths.Images)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	optimizer := pipeline.NewImageOptimizer(pipeline.ImageOptions{
		MaxWidth:    cfg.Images.MaxWidth,
		JPEGQuality: cfg.Images.JPEGQuality,
		SVGSize:     cfg.Images.SVGSize,
		SVGMinify:   cfg.Images.SVGMinify,
	})
	runner := &mailbuild.Runner{
		Stages:     []mailbuild.Stage{pipeline.NewImageStage(optimizer, cfg.Images.OnError, env.Logger)},
		SkipErrors: opts.skipErrors,
		OnError: func(err error) {
			fmt.Fprintf(env.Stderr, "FAILED %v\n", err)
		},
	}
	out, err := runner.Run(ctx, records)
	if err != nil && !opts.skipErrors {
		return 0, err
	}

	if cfg.Images.RasterizeSVG {
		out, err = rasterizeAll(ctx, out, cfg.Images.RasterScale, opts.skipErrors, env)
		if err != nil {
			return 0, err
		}
	}

	written, err := mailbuild.WriteRecords(cfg.Paths.Dist, out)
	if err != nil {
		return len(written), fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return len(written), nil
}

// rasterizeAll adds a PNG fallback after every SVG record. With
// skipErrors set, an SVG that cannot be rendered is kept without one.
func rasterizeAll(ctx context.Context, records []*mailbuild.Record, scale float64, skipErrors bool, env *Environment) ([]*mailbuild.Record, error) {
	stage := pipeline.NewRasterizeStage(scale)
	out := make([]*mailbuild.Record, 0, len(records))
	for _, rec := range records {
		expanded, err := stage.Expand(ctx, []*mailbuild.Record{rec})
		if err != nil {
			if !skipErrors || ctx.Err() != nil {
				return nil, err
			}
			fmt.Fprintf(env.Stderr, "FAILED %v\n", err)
			out = append(out, rec)
			continue
		}
		out = append(out, expanded...)
	}
	return out, nil
}
