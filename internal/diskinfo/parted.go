// Package diskinfo parses the machine-readable output of parted and
// kpartx the way igor/cobbler.go parses `cobbler profile list`: capture
// the tool's output and split it into lines (here with strings.Split over
// procrun's captured output) -- same idiom, different external tool
// (spec.md §4.4, component C5).
package diskinfo

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cowpub/cowpub/internal/procrun"
)

// PartitionInfo is spec.md §3's PartitionInfo. Its kpartx-mapped device
// name isn't part of parted's own output; it's resolved separately via
// MappedPartitionNames once the partitions are exposed.
type PartitionInfo struct {
	Number int
	Begin  string
	End    string
	Size   string
	FS     string
	Name   string
	Flags  string
}

// DiskInformation is spec.md §3's immutable-once-read disk record.
type DiskInformation struct {
	Path               string
	Size               string
	Transport          string
	LogicalSectorSize  string
	PhysicalSectorSize string
	PartitionTableType string
	Model              string
	Partitions         []PartitionInfo
}

// ConfigError is DiskConfigError from spec.md §7: parted's output didn't
// match the expected machine-readable shape.
type ConfigError struct {
	Device   string
	Realpath string
	Output   string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("diskinfo: unparseable parted output for %s (%s): %s", e.Device, e.Reason, e.Output)
}

// Info runs `parted -s -m <realpath(dev)> print` and parses the result.
func Info(ctx context.Context, dev string) (DiskInformation, error) {
	real := dev
	if resolved, err := filepath.EvalSymlinks(dev); err == nil {
		real = resolved
	}

	out, err := procrun.Output(ctx, "parted", "-s", "-m", real, "print")
	if err != nil {
		return DiskInformation{}, fmt.Errorf("diskinfo: running parted on %s: %w", dev, err)
	}

	return parse(dev, real, out)
}

func parse(device, realpath, output string) (DiskInformation, error) {
	lines := splitNonEmpty(output)

	if len(lines) < 2 {
		return DiskInformation{}, &ConfigError{Device: device, Realpath: realpath, Output: output, Reason: "fewer than 2 lines"}
	}

	if strings.TrimSpace(lines[0]) != "BYT;" {
		return DiskInformation{}, &ConfigError{Device: device, Realpath: realpath, Output: output, Reason: "first line is not BYT;"}
	}

	disk, err := parseDiskLine(lines[1], realpath)
	if err != nil {
		return DiskInformation{}, &ConfigError{Device: device, Realpath: realpath, Output: output, Reason: err.Error()}
	}

	for _, line := range lines[2:] {
		part, err := parsePartitionLine(line)
		if err != nil {
			return DiskInformation{}, &ConfigError{Device: device, Realpath: realpath, Output: output, Reason: err.Error()}
		}
		disk.Partitions = append(disk.Partitions, part)
	}

	return disk, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseDiskLine parses the second line of `parted -s -m print` output:
// path:size:transport:logical:physical:table:model:;
// The record's own path must match realpath -- the same check the
// original raises DiskConfigError for (update.py:205) -- since a mismatch
// means parted resolved a different device than the one cowpub asked it
// to inspect.
func parseDiskLine(line, realpath string) (DiskInformation, error) {
	fields := strings.Split(strings.TrimSuffix(strings.TrimSpace(line), ";"), ":")
	if len(fields) < 7 {
		return DiskInformation{}, fmt.Errorf("disk config record has %d fields, want >= 7", len(fields))
	}

	if fields[0] != realpath {
		return DiskInformation{}, fmt.Errorf("disk config record path %q does not match %q", fields[0], realpath)
	}

	return DiskInformation{
		Path:               fields[0],
		Size:               fields[1],
		Transport:          fields[2],
		LogicalSectorSize:  fields[3],
		PhysicalSectorSize: fields[4],
		PartitionTableType: fields[5],
		Model:              fields[6],
	}, nil
}

// parsePartitionLine parses a partition line:
// number:begin:end:size:fs:name:flags;
func parsePartitionLine(line string) (PartitionInfo, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(line), ";")
	fields := strings.Split(trimmed, ":")
	if len(fields) < 6 {
		return PartitionInfo{}, fmt.Errorf("partition record has %d fields, want >= 6", len(fields))
	}

	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return PartitionInfo{}, fmt.Errorf("partition number %q is not an integer", fields[0])
	}

	p := PartitionInfo{
		Number: num,
		Begin:  fields[1],
		End:    fields[2],
		Size:   fields[3],
		FS:     fields[4],
		Name:   fields[5],
	}
	if len(fields) > 6 {
		p.Flags = fields[6]
	}
	return p, nil
}

// FindByName returns the sole partition named name, erroring if none or
// more than one match (spec.md §3's exactly-one-partition invariant).
func FindByName(disk DiskInformation, name string) (PartitionInfo, error) {
	var found []PartitionInfo
	for _, p := range disk.Partitions {
		if p.Name == name {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return PartitionInfo{}, fmt.Errorf("diskinfo: no partition named %q on %s", name, disk.Path)
	case 1:
		return found[0], nil
	default:
		return PartitionInfo{}, fmt.Errorf("diskinfo: %d partitions named %q on %s, want exactly 1", len(found), name, disk.Path)
	}
}

// SetPartitionName renames partition n on dev to name via `parted name`.
func SetPartitionName(ctx context.Context, dev string, n int, name string) error {
	return procrun.Quiet(ctx, "parted", "-s", dev, "name", strconv.Itoa(n), name)
}
