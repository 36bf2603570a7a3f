// Package sshexec issues remote commands over the ssh binary, matching
// spec.md §4.1's ssh(host, command, options) contract and igor's own
// habit of shelling out rather than linking an SSH client library (the
// spec explicitly treats ssh as an external collaborator specified only
// at the level of the commands issued).
package sshexec

import (
	"context"

	"github.com/cowpub/cowpub/internal/procrun"
)

// Options mirrors spec.md §4.1: extra ssh flags, and whether to capture
// stdout instead of just propagating the exit code.
type Options struct {
	Flags  []string
	Capture bool
}

func argv(host, command string, flags []string) []string {
	argv := []string{"ssh"}
	argv = append(argv, flags...)
	argv = append(argv, host, command)
	return argv
}

// Run executes command on host, raising procrun.Failure on non-zero exit.
func Run(ctx context.Context, host, command string, opts Options) (procrun.Result, error) {
	return procrun.Run(ctx, argv(host, command, opts.Flags), procrun.Options{
		Merged:        !opts.Capture,
		CaptureStdout: opts.Capture,
		CaptureStderr: opts.Capture,
	})
}

// Output runs command on host and returns its captured stdout.
func Output(ctx context.Context, host, command string, flags ...string) (string, error) {
	res, err := Run(ctx, host, command, Options{Flags: flags, Capture: true})
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Probe runs command on host without raising on non-zero exit, returning
// just the exit code. Used for is_accessible/no_dpkg_locks-style
// predicates.
func Probe(ctx context.Context, host, command string, flags ...string) (int, error) {
	return procrun.Probe(ctx, argv(host, command, flags)...)
}

// IsAccessible reports whether host answers to a trivial ssh command.
func IsAccessible(ctx context.Context, host string) bool {
	code, err := Probe(ctx, host, "true")
	return err == nil && code == 0
}
