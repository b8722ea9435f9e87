package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/deploy"
)

// runDeployCmd uploads the built emails and images to S3.
func runDeployCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseDeployFlags(args)
	if err != nil {
		return err
	}
	if err := rejectArgs("deploy", positional); err != nil {
		return err
	}

	p, err := loadProject(&flags.common, env)
	if err != nil {
		return err
	}
	mergeDeployFlags(flags, p.cfg)

	dir := p.cfg.Paths.Dist
	if flags.dir != "" {
		dir = flags.dir
	}

	d, err := deploy.New(ctx, deployConfig(p.cfg), deploy.WithLogger(env.Logger), deploy.WithClock(env.Now))
	if err != nil {
		return err
	}

	report, err := d.Sync(ctx, dir)
	if err != nil {
		return err
	}
	printSyncReport(report, p.cfg.Deploy.Bucket, flags.common.quiet, flags.common.verbose, env)
	return nil
}

// mergeDeployFlags merges CLI flags into config. CLI values override config values.
func mergeDeployFlags(flags *deployFlags, cfg *config.Config) {
	if flags.prefix != "" {
		cfg.Deploy.Prefix = flags.prefix
	}
	if flags.prune {
		cfg.Deploy.Prune = true
	}
	if flags.dryRun {
		cfg.Deploy.DryRun = true
	}
}

// deployConfig maps the deploy section to the deployer's settings.
// Credentials come from the AWS default chain.
func deployConfig(cfg *config.Config) deploy.Config {
	return deploy.Config{
		Bucket:       cfg.Deploy.Bucket,
		Region:       cfg.Deploy.Region,
		Prefix:       cfg.Deploy.Prefix,
		Endpoint:     cfg.Deploy.Endpoint,
		PathStyle:    cfg.Deploy.PathStyle,
		CacheControl: cfg.Deploy.CacheControl,
		Prune:        cfg.Deploy.Prune,
		DryRun:       cfg.Deploy.DryRun,
	}
}

// printSyncReport outputs what the sync changed.
func printSyncReport(r *deploy.SyncReport, bucket string, quiet, verbose bool, env *Environment) {
	if quiet {
		return
	}

	verb := map[bool][2]string{
		false: {"Uploaded", "Deleted"},
		true:  {"Would upload", "Would delete"},
	}[r.DryRun]

	for _, key := range r.Uploaded {
		fmt.Fprintf(env.Stdout, "%s s3://%s/%s\n", verb[0], bucket, key)
	}
	for _, key := range r.Deleted {
		fmt.Fprintf(env.Stdout, "%s s3://%s/%s\n", verb[1], bucket, key)
	}
	if verbose {
		for _, key := range r.Skipped {
			fmt.Fprintf(env.Stdout, "Unchanged s3://%s/%s\n", bucket, key)
		}
	}

	fmt.Fprintf(env.Stdout, "\n%d uploaded, %d unchanged, %d deleted", len(r.Uploaded), len(r.Skipped), len(r.Deleted))
	if r.DryRun {
		fmt.Fprint(env.Stdout, " (dry run)")
	} else {
		fmt.Fprintf(env.Stdout, " (build %s)", r.BuildID)
	}
	fmt.Fprintln(env.Stdout)
}
