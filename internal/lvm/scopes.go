package lvm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cowpub/cowpub/internal/txn"
)

// VolumeCopyScope is the volume_copy scope from spec.md §4.5: prepare
// creates dst as a byte-for-byte copy of src (by size) and copies the
// bytes over with dd; rollback removes the LV it created. The returned
// value, once entered, is the new volume's path.
func VolumeCopyScope(src, dst, nvpv string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("volume-copy(%s)", dst),
		Prepare: func(ctx context.Context) (interface{}, error) {
			path, err := CreateVolumeCopy(ctx, src, dst, nvpv)
			if err != nil {
				return nil, err
			}
			if err := CopyData(ctx, src, path, ""); err != nil {
				return nil, fmt.Errorf("lvm: copying data from %s to %s: %w", src, path, err)
			}
			return path, nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return Remove(ctx, filepath.Join(filepath.Dir(src), dst))
		},
	}
}
