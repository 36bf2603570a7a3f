package main

import (
	"github.com/spf13/cobra"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/lvm"
)

var enableCacheCleanup bool

var enableCacheCmd = &cobra.Command{
	Use:   "enable_cache CACHE_CONFIG",
	Short: "attach the write-through cache layer to the cache volume group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cowconfig.Load[cowconfig.CacheConfig](args[0])
		if err != nil {
			return err
		}
		return withLock(func() error {
			return lvm.EnableCache(cmd.Context(), cfg, enableCacheCleanup)
		})
	},
}

var disableCacheCmd = &cobra.Command{
	Use:   "disable_cache CACHE_CONFIG",
	Short: "detach the write-through cache layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cowconfig.Load[cowconfig.CacheConfig](args[0])
		if err != nil {
			return err
		}
		return withLock(func() error {
			return lvm.DisableCache(cmd.Context(), cfg)
		})
	},
}

func init() {
	enableCacheCmd.Flags().BoolVar(&enableCacheCleanup, "cleanup", false, "uncache every recorded volume and rebuild the volume group before re-enabling")
}
