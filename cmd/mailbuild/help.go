package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Compile templates, stylesheets and images into dist")
	fmt.Fprintln(w, "  serve      Serve the built emails over HTTP")
	fmt.Fprintln(w, "  deploy     Upload dist to the S3 bucket")
	fmt.Fprintln(w, "  send       Send a built email as a test message")
	fmt.Fprintln(w, "  proof      Capture screenshots of built emails")
	fmt.Fprintln(w, "  init       Create a new project")
	fmt.Fprintln(w, "  doctor     Check system configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mailbuild help <command>' for details on a specific command.")
}

// printCommonUsage prints the flags every project command accepts.
func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing")
}

// printBatchUsage prints the worker, timeout and filter flags.
func printBatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Batch:")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-email timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --only <glob>         Only process emails whose name matches")
	fmt.Fprintln(w)
}

// printBuildUsage prints usage for the build command.
func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild build [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile MJML templates to HTML, process stylesheets and optimize images.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: paths.dist)")
	fmt.Fprintln(w, "      --keep-tmp            Write intermediate files to paths.tmp")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stages:")
	fmt.Fprintln(w, "      --no-inline           Skip CSS inlining")
	fmt.Fprintln(w, "      --no-images           Skip image optimization")
	fmt.Fprintln(w, "      --minify              Minify HTML and CSS output")
	fmt.Fprintln(w, "      --skip-errors         Report failed files and continue")
	fmt.Fprintln(w)
	printBatchUsage(w)
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve built emails with a directory index. Stop with Ctrl+C.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: serve.addr)")
	fmt.Fprintln(w, "  -d, --dir <dir>           Directory to serve (default: paths.dist)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDeployUsage prints usage for the deploy command.
func printDeployUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild deploy [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Upload changed files to the configured S3 bucket.")
	fmt.Fprintln(w, "Unchanged files are detected by checksum and skipped.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Deploy:")
	fmt.Fprintln(w, "  -d, --dir <dir>           Directory to upload (default: paths.dist)")
	fmt.Fprintln(w, "      --prefix <s>          Key prefix (default: deploy.prefix)")
	fmt.Fprintln(w, "      --prune               Delete remote objects missing locally")
	fmt.Fprintln(w, "  -n, --dry-run             Report changes without applying them")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printSendUsage prints usage for the send command.
func printSendUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild send <email> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Send a built email through Postmark.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  email    Email name (e.g., welcome) or path to a built .html file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Message:")
	fmt.Fprintln(w, "      --to <addr>           Recipient (repeatable, default: send.to)")
	fmt.Fprintln(w, "  -s, --subject <s>         Subject line (default: email name)")
	fmt.Fprintln(w, "      --tag <s>             Message tag (default: send.tag)")
	fmt.Fprintln(w, "  -n, --dry-run             Log the message instead of sending it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  POSTMARK_SERVER_TOKEN     Server API token (required unless --dry-run)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printProofUsage prints usage for the proof command.
func printProofUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild proof [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture PNG screenshots of built emails at each viewport.")
	fmt.Fprintln(w, "Requires Chrome or Chromium.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Screenshot directory (default: proof.output)")
	fmt.Fprintln(w, "      --viewport <name>     Viewport to capture (repeatable, default: all)")
	fmt.Fprintln(w)
	printBatchUsage(w)
	printCommonUsage(w)
}

// printInitUsage prints usage for the init command.
func printInitUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild init [dir] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Create a starter project in dir (default: current directory).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --force               Overwrite existing files")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check browser, project and system configuration.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Output results as JSON")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "build":
		printBuildUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "deploy":
		printDeployUsage(env.Stdout)
	case "send":
		printSendUsage(env.Stdout)
	case "proof":
		printProofUsage(env.Stdout)
	case "init":
		printInitUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mailbuild version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mailbuild help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
