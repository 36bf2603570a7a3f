package main

import (
	"github.com/spf13/cobra"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/pipeline"
	"github.com/cowpub/cowpub/internal/vmctrl"
)

var (
	addSnapshotSize     string
	addCacheConfigPath  string
	addToCopy           []string
	addChrootScript     string
	addLinkSnapshotCopy string
	addPush             bool
	addPushConcurrency  int
)

var addCmd = &cobra.Command{
	Use:   "add REF_VM REF_HOST PARTITIONS_CONFIG OUTPUT TEST_VM TEST_HOST",
	Short: "snapshot, prepare and publish a new network-bootable image",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		partitions, err := cowconfig.Load[cowconfig.PartitionsConfig](args[2])
		if err != nil {
			return err
		}

		var cacheCfg *cowconfig.CacheConfig
		if addCacheConfigPath != "" {
			c, err := cowconfig.Load[cowconfig.CacheConfig](addCacheConfigPath)
			if err != nil {
				return err
			}
			cacheCfg = &c
		}

		params := pipeline.AddParams{
			RefVM:            args[0],
			RefHost:          args[1],
			Partitions:       partitions,
			Output:           args[3],
			TestVM:           args[4],
			TestHost:         args[5],
			SnapshotSize:     addSnapshotSize,
			CacheConfig:      cacheCfg,
			ToCopy:           addToCopy,
			ChrootScript:     addChrootScript,
			LinkSnapshotCopy: addLinkSnapshotCopy,
			Push:             addPush,
			PushConcurrency:  addPushConcurrency,
		}

		return withLock(func() error {
			return pipeline.Add(cmd.Context(), vmctrl.NewVirsh(), params)
		})
	},
}

func init() {
	addCmd.Flags().StringVarP(&addSnapshotSize, "snapshot-size", "s", "5G", "COW snapshot size")
	addCmd.Flags().StringVar(&addCacheConfigPath, "cache-config", "", "cache config JSON file")
	addCmd.Flags().StringArrayVar(&addToCopy, "to-copy", nil, "overlay directory to copy into the chroot (repeatable)")
	addCmd.Flags().StringVar(&addChrootScript, "chroot-script", "", "script to run inside the chroot")
	addCmd.Flags().StringVar(&addLinkSnapshotCopy, "link-snapshot-copy", "", "symlink target for an additional offline copy")
	addCmd.Flags().BoolVar(&addPush, "push", false, "push the new snapshot to idle fleet hosts after promotion")
	addCmd.Flags().IntVar(&addPushConcurrency, "push-concurrency", 8, "max concurrent fleet reboots")
}
