package lvm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/procrun"
)

// CacheRecordPath is cfg.cached_volumes_path/basename(vol), the zero-byte
// marker file whose existence is the invariant spec.md §3 calls the cache
// record: it exists iff the orchestrator believes a cache companion LV is
// (or was) attached.
func CacheRecordPath(cfg cowconfig.CacheConfig, vol string) string {
	return filepath.Join(cfg.CachedVolumesDir, filepath.Base(vol))
}

func writeCacheRecord(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("lvm: creating cache record %s: %w", path, err)
	}
	return f.Close()
}

func removeCacheRecord(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lvm: removing cache record %s: %w", path, err)
	}
	return nil
}

// ConfigureCaching implements configure_caching from spec.md §4.6. If cfg
// is nil it is a no-op and vol is returned unchanged. Otherwise it creates
// the cache companion LV and record, then converts vol into a cached LV
// with lvconvert --type cache --cachemode writethrough. Any inner failure
// is rolled back (cache LV and record removed) and vol is returned
// unchanged -- caching is best-effort at publish time, never fatal.
func ConfigureCaching(ctx context.Context, vol string, cfg *cowconfig.CacheConfig) string {
	if cfg == nil {
		return vol
	}

	cachePath := CacheName(vol)
	cacheName := filepath.Base(cachePath)
	recordPath := CacheRecordPath(*cfg, vol)

	if err := CreateVolumeSized(ctx, cfg.VolumeGroup, cacheName, cfg.CacheVolumeSize, cfg.CachePV); err != nil {
		cowlog.Warnf("lvm: configure_caching: creating cache volume %s: %v; continuing uncached", cacheName, err)
		return vol
	}

	if err := writeCacheRecord(recordPath); err != nil {
		cowlog.Warnf("lvm: configure_caching: %v; rolling back cache volume", err)
		if rerr := Remove(ctx, cachePath); rerr != nil {
			cowlog.Errorf("lvm: configure_caching: rollback of %s failed: %v", cacheName, rerr)
		}
		return vol
	}

	if err := procrun.Quiet(ctx, "lvconvert", "-y", "--type", "cache", "--cachevol", cachePath, "--cachemode", "writethrough", vol); err != nil {
		cowlog.Warnf("lvm: configure_caching: lvconvert on %s failed: %v; rolling back", vol, err)
		if rerr := removeCacheRecord(recordPath); rerr != nil {
			cowlog.Errorf("lvm: configure_caching: rollback of record %s failed: %v", recordPath, rerr)
		}
		if rerr := Remove(ctx, cachePath); rerr != nil {
			cowlog.Errorf("lvm: configure_caching: rollback of %s failed: %v", cacheName, rerr)
		}
		return vol
	}

	return vol
}

// CacheConfig.CacheVolumeSize is carried as an opaque lvcreate -L size
// string (e.g. "5G") through the pipeline and passed straight to lvcreate;
// it is not parsed here.

// UncacheVolume detaches a cache companion LV from vol via lvconvert
// --uncache. The volume's cache record is kept, so a later EnableCache
// re-caches it. Its callers, EnableCache's cleanup and DisableCache, treat
// failures as best-effort (spec.md §7).
func UncacheVolume(ctx context.Context, vol string, cfg cowconfig.CacheConfig) error {
	if err := procrun.Quiet(ctx, "lvconvert", "-y", "--uncache", vol); err != nil {
		return fmt.Errorf("lvm: uncaching %s: %w", vol, err)
	}
	return nil
}

// ListCacheRecords enumerates the basenames of every recorded cached volume
// under cfg.CachedVolumesDir.
func ListCacheRecords(cfg cowconfig.CacheConfig) ([]string, error) {
	entries, err := os.ReadDir(cfg.CachedVolumesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lvm: listing cache records in %s: %w", cfg.CachedVolumesDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// EnableCache implements enable_cache from spec.md §4.6. If cleanup is
// true, every recorded volume is first uncached (best-effort), then
// vgreduce --removemissing and vgchange -ay are run to drop the stale
// cache PV from the volume group. It then pvcreate/vgextend the new cache
// PV and reapplies ConfigureCaching to every recorded volume.
func EnableCache(ctx context.Context, cfg cowconfig.CacheConfig, cleanup bool) error {
	if cleanup {
		names, err := ListCacheRecords(cfg)
		if err != nil {
			return err
		}
		for _, name := range names {
			vol := filepath.Join("/dev", cfg.VolumeGroup, name)
			if err := UncacheVolume(ctx, vol, cfg); err != nil {
				cowlog.Warnf("lvm: enable_cache cleanup: %v", err)
			}
		}
		if err := procrun.Quiet(ctx, "vgreduce", "--removemissing", cfg.VolumeGroup); err != nil {
			cowlog.Warnf("lvm: enable_cache cleanup: vgreduce --removemissing: %v", err)
		}
		if err := procrun.Quiet(ctx, "vgchange", "-ay", cfg.VolumeGroup); err != nil {
			cowlog.Warnf("lvm: enable_cache cleanup: vgchange -ay: %v", err)
		}
	}

	if err := procrun.Quiet(ctx, "pvcreate", "-y", cfg.CachePV); err != nil {
		return fmt.Errorf("lvm: enable_cache: pvcreate %s: %w", cfg.CachePV, err)
	}
	if err := procrun.Quiet(ctx, "vgextend", cfg.VolumeGroup, cfg.CachePV); err != nil {
		return fmt.Errorf("lvm: enable_cache: vgextend %s: %w", cfg.CachePV, err)
	}

	names, err := ListCacheRecords(cfg)
	if err != nil {
		return err
	}
	for _, name := range names {
		vol := filepath.Join("/dev", cfg.VolumeGroup, name)
		ConfigureCaching(ctx, vol, &cfg)
	}
	return nil
}

// DisableCache implements disable_cache from spec.md §4.6: uncaches every
// recorded volume (best-effort), then drops the cache PV from the volume
// group. The final vgreduce/pvremove calls are themselves best-effort.
func DisableCache(ctx context.Context, cfg cowconfig.CacheConfig) error {
	names, err := ListCacheRecords(cfg)
	if err != nil {
		return err
	}
	for _, name := range names {
		vol := filepath.Join("/dev", cfg.VolumeGroup, name)
		if err := UncacheVolume(ctx, vol, cfg); err != nil {
			cowlog.Warnf("lvm: disable_cache: %v", err)
		}
	}

	if err := procrun.Quiet(ctx, "vgreduce", cfg.VolumeGroup, cfg.CachePV); err != nil {
		cowlog.Warnf("lvm: disable_cache: vgreduce %s %s: %v", cfg.VolumeGroup, cfg.CachePV, err)
	}
	if err := procrun.Quiet(ctx, "pvremove", "-f", cfg.CachePV); err != nil {
		cowlog.Warnf("lvm: disable_cache: pvremove %s: %v", cfg.CachePV, err)
	}
	return nil
}
