// Package lvm wraps LVM volume and snapshot management the way igor's
// external.go/cobbler.go wrap their own external tools: thin functions
// over procrun, argv built up explicitly, captured output parsed with
// simple string splitting rather than a client library (spec.md §4.5,
// component C6).
package lvm

import (
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is spec.md §3's TIMESTAMP format: YYYY-MM-DD-HH-MM-SS
// local time.
const TimestampLayout = "2006-01-02-15-04-05"

// Timestamp formats t per TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// SnapshotName is lvm_snapshot_name(P,T) from spec.md §8: the ephemeral
// LVM COW snapshot name for origin volume path P at timestamp T.
func SnapshotName(origin, ts string) string {
	return filepath.Base(origin) + "-at-" + ts
}

// PromotedName is vm_snapshot_name(S): the promoted, byte-for-byte copy
// name derived from the COW snapshot's basename S.
func PromotedName(snapshotBasename string) string {
	return snapshotBasename + "-snapshot"
}

// CopyName is snapshot_copy_name(V): the optional additional offline-
// deployment copy of a promoted snapshot volume path V.
func CopyName(volume string) string {
	return volume + "-copy"
}

// CacheName is cache_lv_name(V): the cache companion LV for volume path V.
func CacheName(volume string) string {
	return volume + "-cache"
}

// Glob returns the shell glob spec.md §3 defines for enumerating promoted
// snapshots of origin: *<origin>-at-*-snapshot*.
func Glob(vgDir, origin string) string {
	return filepath.Join(vgDir, "*"+filepath.Base(origin)+"-at-*-snapshot*")
}

// VolumeGroup returns the volume group a volume path belongs to: the name
// of its parent directory, matching create_volume_copy's
// vg = basename(dirname(src)).
func VolumeGroup(volumePath string) string {
	return filepath.Base(filepath.Dir(volumePath))
}

// IsPromotedSnapshot reports whether base (a volume basename) looks like a
// promoted snapshot or one of its -copy/-cache companion volumes, i.e.
// matches *-at-*-snapshot*. It does not match the bare ephemeral COW
// snapshot name (no trailing -snapshot).
func IsPromotedSnapshot(base string) bool {
	idx := strings.Index(base, "-at-")
	if idx < 0 {
		return false
	}
	return strings.Contains(base[idx:], "-snapshot")
}
