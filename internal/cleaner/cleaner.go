package cleaner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/diskinfo"
	"github.com/cowpub/cowpub/internal/iscsi"
	"github.com/cowpub/cowpub/internal/lvm"
)

// Config bundles the parameters every teardown step needs: the output
// directory the ipxe configs/artifacts live under, and the optional cache
// configuration (if caching was ever enabled).
type Config struct {
	Output string
	Cache  *cowconfig.CacheConfig
}

// Clean reclaims a single promoted snapshot named by its LV path, in the
// exact 11-step order spec.md §4.12 requires. If sessions are present on
// its iSCSI target and force is false, the snapshot is skipped entirely
// (logged, not an error). Every step past the session check is best-
// effort with a logged exception, except steps 9-10 which are fatal: an
// open LV at delete time is an invariant violation.
func Clean(ctx context.Context, cfg Config, name string, force bool) error {
	if !lvm.IsPromotedSnapshot(filepath.Base(name)) {
		return fmt.Errorf("cleaner: %s does not look like a promoted snapshot", name)
	}

	backstore := iscsi.BackstoreName(name)
	target := iscsi.TargetName(backstore)

	sessions, err := ListDynamicSessions(target)
	if err != nil {
		return err
	}
	if len(sessions) > 0 && !force {
		cowlog.Infof("cleaner: %s has %d active session(s), skipping", name, len(sessions))
		return nil
	}

	base := filepath.Base(name)

	// 1. Unlink <OUTPUT>/<target>.ipxe if present.
	ipxePath := filepath.Join(cfg.Output, target+".ipxe")
	if err := os.Remove(ipxePath); err != nil && !os.IsNotExist(err) {
		cowlog.Errorf("cleaner: removing %s: %v", ipxePath, err)
	}

	// 2. rmtree(<OUTPUT>/<basename(name)>) if present.
	artifactsDir := filepath.Join(cfg.Output, base)
	if err := os.RemoveAll(artifactsDir); err != nil {
		cowlog.Errorf("cleaner: removing %s: %v", artifactsDir, err)
	}

	// 3. remove_iscsi_target.
	if err := iscsi.RemoveTarget(ctx, target); err != nil {
		cowlog.Errorf("cleaner: removing iscsi target %s: %v", target, err)
	}

	// 4. remove_iscsi_backstore.
	if err := iscsi.RemoveBackstore(ctx, backstore); err != nil {
		cowlog.Errorf("cleaner: removing iscsi backstore %s: %v", backstore, err)
	}

	// 5. saveconfig.
	if err := iscsi.SaveConfig(ctx); err != nil {
		cowlog.Errorf("cleaner: saveconfig: %v", err)
	}

	// 6. cleanup_kpartx(name).
	if err := diskinfo.CleanupKpartx(ctx, name); err != nil {
		cowlog.Errorf("cleaner: cleanup_kpartx(%s): %v", name, err)
	}

	// 7. Delete cache record if cache configured.
	if cfg.Cache != nil {
		recordPath := lvm.CacheRecordPath(*cfg.Cache, name)
		if err := os.Remove(recordPath); err != nil && !os.IsNotExist(err) {
			cowlog.Errorf("cleaner: removing cache record %s: %v", recordPath, err)
		}
	}

	// 8. If <name>-copy exists as LV, remove_lv.
	copyName := lvm.CopyName(name)
	if lvm.Exists(ctx, copyName) {
		if err := lvm.Remove(ctx, copyName); err != nil {
			cowlog.Errorf("cleaner: removing %s: %v", copyName, err)
		}
	}

	// 9. Assert is_lv_open(name) == False -- otherwise raise fatally.
	open, err := lvm.IsOpen(ctx, name)
	if err != nil {
		return fmt.Errorf("cleaner: checking open state of %s: %w", name, err)
	}
	if open {
		return fmt.Errorf("cleaner: %s is still open, refusing to remove", name)
	}

	// 10. remove_lv(name).
	if err := lvm.Remove(ctx, name); err != nil {
		return fmt.Errorf("cleaner: removing %s: %w", name, err)
	}

	// 11. If <name>-cache still exists, remove_lv it.
	cacheName := lvm.CacheName(name)
	if lvm.Exists(ctx, cacheName) {
		if err := lvm.Remove(ctx, cacheName); err != nil {
			cowlog.Errorf("cleaner: removing %s: %v", cacheName, err)
		}
	}

	return nil
}

// EnumerateSnapshots lists every promoted snapshot of origin under vgDir,
// glob + lexically sorted (oldest to newest, since names embed a
// lexically-sortable timestamp).
func EnumerateSnapshots(vgDir, origin string) ([]string, error) {
	matches, err := filepath.Glob(lvm.Glob(vgDir, origin))
	if err != nil {
		return nil, fmt.Errorf("cleaner: globbing snapshots of %s: %w", origin, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// CleanSnapshots is clean_snapshots from spec.md §4.12: enumerate all
// snapshots, clean all but the latest with force=forceOld (the
// --force-old flag's value), and if forceLatest is also set, clean the
// latest with force=true too.
func CleanSnapshots(ctx context.Context, cfg Config, vgDir, origin string, forceOld, forceLatest bool) error {
	snapshots, err := EnumerateSnapshots(vgDir, origin)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	latest := snapshots[len(snapshots)-1]
	for _, snap := range snapshots[:len(snapshots)-1] {
		if err := Clean(ctx, cfg, snap, forceOld); err != nil {
			cowlog.Errorf("cleaner: cleaning old snapshot %s: %v", snap, err)
		}
	}

	if forceLatest {
		if err := Clean(ctx, cfg, latest, true); err != nil {
			cowlog.Errorf("cleaner: cleaning latest snapshot %s: %v", latest, err)
		}
	}

	return nil
}
