package pipeline

import (
	"context"
	"path/filepath"

	"github.com/cowpub/cowpub/internal/cleaner"
	"github.com/cowpub/cowpub/internal/cowconfig"
)

// CleanParams is every parameter clean's CLI subcommand collects.
type CleanParams struct {
	RefVM       string
	Output      string
	ForceOld    bool
	ForceLatest bool
	CacheConfig *cowconfig.CacheConfig
}

// Clean implements clean_snapshots (spec.md §4.12) for the given
// reference VM's volume group.
func Clean(ctx context.Context, refLV string, p CleanParams) error {
	cfg := cleaner.Config{Output: p.Output, Cache: p.CacheConfig}
	vgDir := filepath.Dir(refLV)
	return cleaner.CleanSnapshots(ctx, cfg, vgDir, refLV, p.ForceOld, p.ForceLatest)
}
