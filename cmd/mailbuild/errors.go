package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrNoEmails           = errors.New("no emails found")
	ErrReadEmail          = errors.New("failed to read email")
	ErrWriteOutput        = errors.New("failed to write output")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrUnknownViewport    = errors.New("unknown viewport")
)

// wrapFlagError marks flag parsing failures as usage errors.
// flag.ErrHelp is returned as is so callers can exit cleanly.
func wrapFlagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// rejectArgs fails when a command that takes no arguments receives some.
func rejectArgs(cmd string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %s takes no arguments, got %q", ErrUsage, cmd, args[0])
	}
	return nil
}
