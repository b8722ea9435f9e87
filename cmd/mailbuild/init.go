package main

import (
	"fmt"

	"github.com/alnah/go-mailbuild/internal/assets"
)

// runInitCmd writes the starter project into a directory.
func runInitCmd(args []string, env *Environment) error {
	flags, positional, err := parseInitFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: init takes at most one directory", ErrUsage)
	}

	dir := "."
	if len(positional) == 1 {
		dir = positional[0]
	}

	written, err := assets.WriteScaffold(dir, flags.force)
	if err != nil {
		return err
	}

	for _, path := range written {
		fmt.Fprintf(env.Stdout, "Created %s\n", path)
	}
	fmt.Fprintln(env.Stdout)
	if dir != "." {
		fmt.Fprintf(env.Stdout, "Next: cd %s && mailbuild build\n", dir)
	} else {
		fmt.Fprintln(env.Stdout, "Next: mailbuild build")
	}
	return nil
}
