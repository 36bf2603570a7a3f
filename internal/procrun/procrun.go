// Package procrun is a typed wrapper around external command invocation,
// the way igor's external.go wraps exec.Command behind processWrapper:
// every command is traced at debug level with its argv before it runs,
// and non-zero exit is surfaced as a distinct error type rather than a
// bare *exec.ExitError.
package procrun

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cowpub/cowpub/internal/cowlog"
)

// Result carries the captured output and exit status of one invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Failure is returned when a command run with ExpectSuccess exits non-zero.
type Failure struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("command failed (exit %d): %s: %s", f.ExitCode, strings.Join(f.Argv, " "), strings.TrimSpace(f.Stderr))
}

// Options controls capture and error behavior for one Run call.
type Options struct {
	// CaptureStdout/CaptureStderr are accepted but do not change what Run
	// captures: Run always captures both streams into the Result.
	CaptureStdout bool
	CaptureStderr bool
	// Merged captures stdout and stderr into the single Stdout field,
	// mirroring CombinedOutput.
	Merged bool
	// ExpectSuccess raises *Failure on a non-zero exit. Defaults to true;
	// lookahead probes (is_accessible, no_dpkg_locks) should set it false
	// and inspect ExitCode instead.
	ExpectSuccess *bool
}

func (o Options) expectSuccess() bool {
	if o.ExpectSuccess == nil {
		return true
	}
	return *o.ExpectSuccess
}

// Bool is a convenience constructor for Options.ExpectSuccess.
func Bool(b bool) *bool { return &b }

// Run executes argv, returning captured output. Every invocation is traced
// at debug level before it runs and again (at debug) with its duration and,
// on error, its output.
func Run(ctx context.Context, argv []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("procrun: empty argument list")
	}

	cowlog.Debugf("running %v", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	if opts.Merged {
		cmd.Stdout = &stdout
		cmd.Stderr = &stdout
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, fmt.Errorf("procrun: running %v: %w", argv, err)
		}
	}

	cowlog.Debugf("cmd %v completed in %v (exit %d)", argv[0], elapsed, exitCode)

	res := Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if exitCode != 0 {
		cowlog.Debugf("error running %v: exit %d: %s", argv, exitCode, res.Stderr+res.Stdout)
		if opts.expectSuccess() {
			return res, &Failure{Argv: argv, ExitCode: exitCode, Stderr: res.Stderr + res.Stdout}
		}
	}

	return res, nil
}

// Quiet runs argv expecting success and returns only an error, discarding
// captured output. Convenience for mutating calls whose output nobody
// inspects (most lvcreate/lvremove/parted invocations).
func Quiet(ctx context.Context, argv ...string) error {
	_, err := Run(ctx, argv, Options{Merged: true})
	return err
}

// Probe runs argv without raising on non-zero exit, returning just the
// exit code. Used for boolean predicates like is_accessible/no_dpkg_locks.
func Probe(ctx context.Context, argv ...string) (int, error) {
	res, err := Run(ctx, argv, Options{Merged: true, ExpectSuccess: Bool(false)})
	if err != nil {
		return -1, err
	}
	return res.ExitCode, nil
}

// Output runs argv expecting success and returns captured stdout.
func Output(ctx context.Context, argv ...string) (string, error) {
	res, err := Run(ctx, argv, Options{CaptureStdout: true, CaptureStderr: true})
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}
