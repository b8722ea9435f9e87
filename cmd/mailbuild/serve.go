package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-mailbuild/internal/server"
)

// runServeCmd serves the built emails until interrupted.
func runServeCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	if err := rejectArgs("serve", positional); err != nil {
		return err
	}

	p, err := loadProject(&flags.common, env)
	if err != nil {
		return err
	}

	addr := p.cfg.Serve.Addr
	if flags.addr != "" {
		addr = flags.addr
	}
	dir := p.cfg.Paths.Dist
	if flags.dir != "" {
		dir = flags.dir
	}

	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Serving %s at http://%s (Ctrl+C to stop)\n", dir, addr)
	}
	return server.New(addr, dir, server.WithLogger(env.Logger)).ListenAndServe(ctx)
}
