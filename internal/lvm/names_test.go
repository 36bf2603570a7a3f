package lvm

import "testing"

func TestPureNameFunctions(t *testing.T) {
	const origin = "/dev/vg/vm1"
	const ts = "2024-05-01-10-00-00"

	snap := SnapshotName(origin, ts)
	if snap != "vm1-at-2024-05-01-10-00-00" {
		t.Errorf("SnapshotName = %q", snap)
	}

	promoted := PromotedName(snap)
	if promoted != "vm1-at-2024-05-01-10-00-00-snapshot" {
		t.Errorf("PromotedName = %q", promoted)
	}

	volPath := "/dev/vg/" + promoted
	if got := CopyName(volPath); got != volPath+"-copy" {
		t.Errorf("CopyName = %q", got)
	}
	if got := CacheName(volPath); got != volPath+"-cache" {
		t.Errorf("CacheName = %q", got)
	}

	if got := VolumeGroup(volPath); got != "vg" {
		t.Errorf("VolumeGroup = %q, want vg", got)
	}
}

func TestIsPromotedSnapshot(t *testing.T) {
	cases := []struct {
		base string
		want bool
	}{
		{"vm1-at-2024-05-01-10-00-00-snapshot", true},
		{"vm1-at-2024-05-01-10-00-00-snapshot-cache", true},
		{"vm1-at-2024-05-01-10-00-00", false}, // the ephemeral COW snapshot, not promoted
		{"vm1", false},
	}

	for _, c := range cases {
		if got := IsPromotedSnapshot(c.base); got != c.want {
			t.Errorf("IsPromotedSnapshot(%q) = %v, want %v", c.base, got, c.want)
		}
	}
}
