package lvm

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cowpub/cowpub/internal/procrun"
)

// CreateSnapshot creates an LVM COW snapshot named name of origin, sized
// either by absolute size (e.g. "5G") or by extent count. Exactly one of
// size/extents should be set.
func CreateSnapshot(ctx context.Context, origin, name string, size string, extents int, nvpv string) error {
	argv := []string{"lvcreate", "-y", "-s", "-n", name}
	if size != "" {
		argv = append(argv, "-L", size)
	} else {
		argv = append(argv, "-l", strconv.Itoa(extents))
	}
	argv = append(argv, origin)
	if nvpv != "" {
		argv = append(argv, nvpv)
	}
	return procrun.Quiet(ctx, argv...)
}

// CreateVolume creates a plain LV of the given size in bytes.
func CreateVolume(ctx context.Context, vg, name string, sizeBytes int64, pv string) error {
	return CreateVolumeSized(ctx, vg, name, fmt.Sprintf("%dB", sizeBytes), pv)
}

// CreateVolumeSized creates a plain LV of the given lvcreate -L size string
// (e.g. "5G", as carried verbatim through CacheConfig.cache_volume_size).
func CreateVolumeSized(ctx context.Context, vg, name, size, pv string) error {
	argv := []string{"lvcreate", "-y", "-L", size, "-n", name, vg}
	if pv != "" {
		argv = append(argv, pv)
	}
	return procrun.Quiet(ctx, argv...)
}

// GetSize64 returns the byte size of a block device via blockdev.
func GetSize64(ctx context.Context, dev string) (int64, error) {
	out, err := procrun.Output(ctx, "blockdev", "--getsize64", dev)
	if err != nil {
		return 0, fmt.Errorf("lvm: getting size of %s: %w", dev, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lvm: parsing blockdev --getsize64 output %q: %w", out, err)
	}
	return n, nil
}

// CreateVolumeCopy creates an LV named dst, in the same volume group as
// src, exactly the byte size of src, optionally pinned to a physical
// volume. It returns the new volume's path, matching create_volume_copy
// from spec.md §4.5.
func CreateVolumeCopy(ctx context.Context, src, dst, nvpv string) (string, error) {
	size, err := GetSize64(ctx, src)
	if err != nil {
		return "", err
	}

	vg := VolumeGroup(src)
	if err := CreateVolume(ctx, vg, dst, size, nvpv); err != nil {
		return "", fmt.Errorf("lvm: creating copy volume %s: %w", dst, err)
	}

	return filepath.Join(filepath.Dir(src), dst), nil
}

// CopyData duplicates every byte of src onto dst via dd, using bs as the
// block size (default 128M per spec.md §4.5).
func CopyData(ctx context.Context, src, dst string, bs string) error {
	if bs == "" {
		bs = "128M"
	}
	return procrun.Quiet(ctx, "dd", "if="+src, "of="+dst, "bs="+bs)
}

// IsOpen parses `lvs -o lv_attr --noheadings <name>`'s sixth attribute
// column: '-' means closed, 'o' means open, anything else is an invariant
// violation (spec.md §7/§8).
func IsOpen(ctx context.Context, name string) (bool, error) {
	out, err := procrun.Output(ctx, "lvs", "-o", "lv_attr", "--noheadings", name)
	if err != nil {
		return false, fmt.Errorf("lvm: querying lv_attr of %s: %w", name, err)
	}
	return parseLVAttrOpen(name, out)
}

// parseLVAttrOpen interprets the sixth column of lv_attr output, split out
// from IsOpen so the boundary cases in spec.md §8 are directly testable
// without shelling to lvs.
func parseLVAttrOpen(name, out string) (bool, error) {
	attr := strings.TrimSpace(out)
	if len(attr) < 6 {
		return false, fmt.Errorf("lvm: lv_attr output %q for %s is too short to have an open/closed column", attr, name)
	}

	switch attr[5] {
	case '-':
		return false, nil
	case 'o':
		return true, nil
	default:
		return false, fmt.Errorf("lvm: unexpected lv_attr open-state column %q for %s", string(attr[5]), name)
	}
}

// Exists reports whether name currently resolves to an LV, by asking lvs
// and treating any error as "doesn't exist" -- lvs exits non-zero when the
// LV is missing.
func Exists(ctx context.Context, name string) bool {
	res, err := procrun.Run(ctx, []string{"lvs", "--noheadings", name}, procrun.Options{Merged: true, ExpectSuccess: procrun.Bool(false)})
	return err == nil && res.ExitCode == 0
}

// Remove removes an LV, force and unconditionally (lvremove -f).
func Remove(ctx context.Context, name string) error {
	return procrun.Quiet(ctx, "lvremove", "-f", name)
}
