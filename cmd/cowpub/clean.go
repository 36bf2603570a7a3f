package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/pipeline"
	"github.com/cowpub/cowpub/internal/vmctrl"
)

var (
	cleanForceOld     bool
	cleanForceLatest  bool
	cleanCacheConfig  string
)

var cleanCmd = &cobra.Command{
	Use:   "clean REF_VM OUTPUT",
	Short: "reclaim promoted snapshots with no active sessions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		refVM, output := args[0], args[1]

		var cacheCfg *cowconfig.CacheConfig
		if cleanCacheConfig != "" {
			c, err := cowconfig.Load[cowconfig.CacheConfig](cleanCacheConfig)
			if err != nil {
				return err
			}
			cacheCfg = &c
		}

		refLV, err := resolveRefLV(cmd.Context(), refVM)
		if err != nil {
			return err
		}

		params := pipeline.CleanParams{
			RefVM:       refVM,
			Output:      output,
			ForceOld:    cleanForceOld,
			ForceLatest: cleanForceLatest,
			CacheConfig: cacheCfg,
		}

		return withLock(func() error {
			return pipeline.Clean(cmd.Context(), refLV, params)
		})
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForceOld, "force-old", false, "reclaim non-latest snapshots even with active sessions")
	cleanCmd.Flags().BoolVar(&cleanForceLatest, "force-latest", false, "also reclaim the latest snapshot")
	cleanCmd.Flags().StringVar(&cleanCacheConfig, "cache-config", "", "cache config JSON file")
}

// resolveRefLV looks up the reference VM's single backing volume path via
// virsh domain XML, the way add locates it.
func resolveRefLV(ctx context.Context, refVM string) (string, error) {
	disks, err := vmctrl.NewVirsh().Disks(ctx, refVM)
	if err != nil {
		return "", err
	}
	if len(disks) != 1 {
		return "", fmt.Errorf("cowpub: %s has %d disks, want exactly 1", refVM, len(disks))
	}
	return disks[0], nil
}
