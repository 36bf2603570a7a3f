package bootconfig

import (
	"context"
	"fmt"
	"os"

	"github.com/cowpub/cowpub/internal/txn"
)

// SavedConfig is saved_config(path) from spec.md §4.10: pre-enter cleans
// a stale <path>.old, then moves any existing path to <path>.old. On
// commit, <path>.old is unlinked (the swap is final). On rollback, path
// is restored from <path>.old, so a pre-existing boot.ipxe is never lost
// across a failing promotion.
func SavedConfig(path string) txn.Scope {
	oldPath := path + ".old"
	return txn.Scope{
		Name: fmt.Sprintf("saved-config(%s)", path),
		Prepare: func(ctx context.Context) (interface{}, error) {
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("bootconfig: clearing stale %s: %w", oldPath, err)
			}

			if _, err := os.Lstat(path); err == nil {
				if err := os.Rename(path, oldPath); err != nil {
					return nil, fmt.Errorf("bootconfig: saving %s to %s: %w", path, oldPath, err)
				}
			} else if !os.IsNotExist(err) {
				return nil, fmt.Errorf("bootconfig: statting %s: %w", path, err)
			}

			return nil, nil
		},
		Commit: func(ctx context.Context, value interface{}) error {
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("bootconfig: removing %s after successful swap: %w", oldPath, err)
			}
			return nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			if _, err := os.Lstat(oldPath); err != nil {
				if !os.IsNotExist(err) {
					return fmt.Errorf("bootconfig: statting %s during rollback: %w", oldPath, err)
				}
				// No prior path existed, so there's nothing to restore --
				// but the symlink created at path after this scope was
				// entered must still be removed so a failed promotion
				// leaves no dangling file.
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("bootconfig: removing failed swap target %s: %w", path, err)
				}
				return nil
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("bootconfig: removing failed swap target %s: %w", path, err)
			}
			if err := os.Rename(oldPath, path); err != nil {
				return fmt.Errorf("bootconfig: restoring %s from %s: %w", path, oldPath, err)
			}
			return nil
		},
	}
}

// PublishedIPXEConfig is published_ipxe_config(output, perTargetIPXE,
// testing) from spec.md §4.10: nests SavedConfig(<boot.ipxe|boot-
// test.ipxe>), then symlinks it to perTargetIPXE. Rollback (handled by
// SavedConfig's nested scope) removes the symlink and restores whatever
// boot.ipxe/boot-test.ipxe pointed at before.
func PublishedIPXEConfig(s *txn.Stack, output, perTargetIPXE string, testing bool) error {
	name := "boot.ipxe"
	if testing {
		name = "boot-test.ipxe"
	}
	path := output + "/" + name

	if _, err := s.Enter(SavedConfig(path)); err != nil {
		return err
	}

	if err := os.Symlink(perTargetIPXE, path); err != nil {
		return fmt.Errorf("bootconfig: symlinking %s to %s: %w", path, perTargetIPXE, err)
	}
	return nil
}
