// Package cowconfig defines the JSON-schema configuration types from
// spec.md §6 and loads them the way igor/config.go's readConfig loads
// igor.conf: json.Unmarshal into a typed struct, fatal (to the caller, as
// an error here -- cowpub's cmd layer decides whether that is fatal) on a
// malformed file.
package cowconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// PartitionsConfig is CowPartitionsConfig from spec.md §6: the partition
// roles written into /etc/cow.conf inside the chroot and used to find and
// rename the boot partition.
type PartitionsConfig struct {
	Base     string `json:"base"`
	Network  string `json:"network"`
	Local    string `json:"local"`
	Cow      string `json:"cow"`
	Conf     string `json:"conf"`
	Sign     string `json:"sign"`
	KeyImage string `json:"keyimage"`
	Place    string `json:"place"`
}

// Fields returns the partition config as ordered key/value pairs, the
// order /etc/cow.conf's PARTITION_NAMES lines are written in.
func (p PartitionsConfig) Fields() []struct{ Key, Value string } {
	return []struct{ Key, Value string }{
		{"base", p.Base},
		{"network", p.Network},
		{"local", p.Local},
		{"cow", p.Cow},
		{"conf", p.Conf},
		{"sign", p.Sign},
		{"keyimage", p.KeyImage},
		{"place", p.Place},
	}
}

// CacheConfig is spec.md §6's CacheConfig: parameters for the write-through
// block cache layer (C6).
type CacheConfig struct {
	VolumeGroup      string `json:"volume_group"`
	NonVolatilePV    string `json:"non_volatile_pv"`
	CachePV          string `json:"cache_pv"`
	CacheVolumeSize  string `json:"cache_volume_size"`
	CachedVolumesDir string `json:"cached_volumes_path"`
}

// Load reads and parses a JSON config file of type T (PartitionsConfig or
// CacheConfig) from path.
func Load[T any](path string) (T, error) {
	var out T

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("cowconfig: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("cowconfig: parsing %s: %w", path, err)
	}

	return out, nil
}
