package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/lockfile"
)

// exit codes from spec.md §6: 0 success, 2 lock contention, non-zero
// otherwise.
const (
	exitOK            = 0
	exitLockContended = 2
	exitFailure       = 1
)

var (
	verbosity int
	lockPath  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "cowpub",
	Short: "publishes read-only VM snapshots as network-bootable images",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVarP(&lockPath, "lock", "l", "/var/run/cowpub.lock", "advisory lock file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file; if given, replaces all other args")

	rootCmd.AddCommand(addCmd, cleanCmd, enableCacheCmd, disableCacheCmd)
}

// invocationConfig is what --config's JSON file contains: the full
// argument vector to run instead of the process's own os.Args, per
// spec.md §6 ("--config <json> (if given, replaces all other args)").
type invocationConfig struct {
	Args []string `json:"args"`
}

// loadInvocationArgs peeks at os.Args for a --config flag (cobra hasn't
// parsed flags yet at this point) and, if present, loads the replacement
// argument vector from it.
func loadInvocationArgs() ([]string, error) {
	for i, arg := range os.Args[1:] {
		var path string
		switch {
		case arg == "--config" && i+2 < len(os.Args):
			path = os.Args[i+2]
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			path = arg[len("--config="):]
		default:
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cowpub: reading --config %s: %w", path, err)
		}
		var cfg invocationConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("cowpub: parsing --config %s: %w", path, err)
		}
		return cfg.Args, nil
	}
	return nil, nil
}

// Execute runs the root command and maps errors to spec.md §6's exit
// codes.
func Execute() {
	cowlog.SetOutput(os.Stderr)

	cobra.OnInitialize(func() {
		cowlog.SetVerbosity(verbosity)
	})

	replacementArgs, err := loadInvocationArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
	if replacementArgs != nil {
		rootCmd.SetArgs(replacementArgs)
	}

	if err := rootCmd.Execute(); err != nil {
		if err == lockfile.ErrLocked {
			fmt.Fprintln(os.Stderr, "cowpub: lock contended:", err)
			os.Exit(exitLockContended)
		}
		fmt.Fprintln(os.Stderr, "cowpub:", err)
		os.Exit(exitFailure)
	}
	os.Exit(exitOK)
}

// withLock acquires the advisory lock at lockPath for the duration of fn,
// matching spec.md §5's "all mutation is exclusive-by-convention" policy:
// cowpub itself is the sole owner of the resources it touches while the
// lock is held.
func withLock(fn func() error) error {
	lock, err := lockfile.Acquire(lockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
