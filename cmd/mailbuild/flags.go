package main

import (
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// batchFlags holds flags for commands that process many emails.
type batchFlags struct {
	workers int
	timeout string
	only    string
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common     commonFlags
	batch      batchFlags
	output     string
	noInline   bool
	noImages   bool
	minify     bool
	keepTmp    bool
	skipErrors bool
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	addr   string
	dir    string
}

// deployFlags holds flags for the deploy command.
type deployFlags struct {
	common commonFlags
	dir    string
	prefix string
	prune  bool
	dryRun bool
}

// sendFlags holds flags for the send command.
type sendFlags struct {
	common  commonFlags
	to      []string
	subject string
	tag     string
	dryRun  bool
}

// proofFlags holds flags for the proof command.
type proofFlags struct {
	common    commonFlags
	batch     batchFlags
	output    string
	viewports []string
}

// initFlags holds flags for the init command.
type initFlags struct {
	force bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
}

// addBatchFlags adds worker, timeout and filter flags to a FlagSet.
func addBatchFlags(fs *flag.FlagSet, f *batchFlags) {
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-email timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.only, "only", "", "only process emails matching this glob")
}

// newFlagSet creates a FlagSet that reports errors instead of exiting
// and prints usage to stderr.
func newFlagSet(name string, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(os.Stderr) }
	return fs
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newFlagSet("build", printBuildUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: paths.dist)")
	fs.BoolVar(&f.noInline, "no-inline", false, "skip CSS inlining")
	fs.BoolVar(&f.noImages, "no-images", false, "skip image optimization")
	fs.BoolVar(&f.minify, "minify", false, "minify HTML and CSS output")
	fs.BoolVar(&f.keepTmp, "keep-tmp", false, "write intermediate files to paths.tmp")
	fs.BoolVar(&f.skipErrors, "skip-errors", false, "report failed files and continue")
	addBatchFlags(fs, &f.batch)
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", printServeUsage)

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default: serve.addr)")
	fs.StringVarP(&f.dir, "dir", "d", "", "directory to serve (default: paths.dist)")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}

// parseDeployFlags parses deploy command flags.
func parseDeployFlags(args []string) (*deployFlags, []string, error) {
	f := &deployFlags{}
	fs := newFlagSet("deploy", printDeployUsage)

	fs.StringVarP(&f.dir, "dir", "d", "", "directory to upload (default: paths.dist)")
	fs.StringVar(&f.prefix, "prefix", "", "key prefix (default: deploy.prefix)")
	fs.BoolVar(&f.prune, "prune", false, "delete remote objects missing locally")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "report changes without applying them")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}

// parseSendFlags parses send command flags.
func parseSendFlags(args []string) (*sendFlags, []string, error) {
	f := &sendFlags{}
	fs := newFlagSet("send", printSendUsage)

	fs.StringSliceVar(&f.to, "to", nil, "recipient (repeatable, default: send.to)")
	fs.StringVarP(&f.subject, "subject", "s", "", "subject line (default: email name)")
	fs.StringVar(&f.tag, "tag", "", "message tag (default: send.tag)")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "log the message instead of sending it")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}

// parseProofFlags parses proof command flags.
func parseProofFlags(args []string) (*proofFlags, []string, error) {
	f := &proofFlags{}
	fs := newFlagSet("proof", printProofUsage)

	fs.StringVarP(&f.output, "output", "o", "", "screenshot directory (default: proof.output)")
	fs.StringSliceVar(&f.viewports, "viewport", nil, "viewport name to capture (repeatable, default: all)")
	addBatchFlags(fs, &f.batch)
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}

// parseInitFlags parses init command flags.
func parseInitFlags(args []string) (*initFlags, []string, error) {
	f := &initFlags{}
	fs := newFlagSet("init", printInitUsage)

	fs.BoolVarP(&f.force, "force", "f", false, "overwrite existing files")

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapFlagError(err)
	}
	return f, fs.Args(), nil
}
