// Package iscsi publishes a block device as an iSCSI target via targetcli,
// the scoped composition from spec.md §4.7/C10, grounded on igor's
// external-tool-wrapping style (cobbler.go) generalized to targetcli's
// path-navigation command shape.
package iscsi

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cowpub/cowpub/internal/procrun"
	"github.com/cowpub/cowpub/internal/txn"
)

// BackstoreName is backstore_name(D) from spec.md §8: basename(D).
func BackstoreName(dev string) string {
	return filepath.Base(dev)
}

// TargetName is iscsi_target_name(B) from spec.md §8.
func TargetName(backstore string) string {
	return "iqn.2013-07.cow." + backstore
}

func tcli(ctx context.Context, args ...string) error {
	argv := append([]string{"targetcli"}, args...)
	return procrun.Quiet(ctx, argv...)
}

// CreateBackstore is create_iscsi_backstore(dev) from spec.md §4.7: a
// read-only block backstore named basename(dev). Rollback deletes it.
func CreateBackstore(dev string) txn.Scope {
	name := BackstoreName(dev)
	return txn.Scope{
		Name: fmt.Sprintf("iscsi-backstore(%s)", name),
		Prepare: func(ctx context.Context) (interface{}, error) {
			if err := tcli(ctx, "/backstores/block", "create", "dev="+dev, "name="+name, "readonly=True"); err != nil {
				return nil, fmt.Errorf("iscsi: creating backstore %s: %w", name, err)
			}
			return name, nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return tcli(ctx, "/backstores/block", "delete", name)
		},
	}
}

// CreateTarget is create_iscsi_target(backstore) from spec.md §4.7: an
// iSCSI target for backstore with a LUN attached. Rollback deletes the
// target.
func CreateTarget(backstore string) txn.Scope {
	target := TargetName(backstore)
	return txn.Scope{
		Name: fmt.Sprintf("iscsi-target(%s)", target),
		Prepare: func(ctx context.Context) (interface{}, error) {
			if err := tcli(ctx, "/iscsi", "create", target); err != nil {
				return nil, fmt.Errorf("iscsi: creating target %s: %w", target, err)
			}
			lun := fmt.Sprintf("/iscsi/%s/tpg1/luns", target)
			if err := tcli(ctx, lun, "create", "/backstores/block/"+backstore); err != nil {
				return nil, fmt.Errorf("iscsi: attaching LUN to %s: %w", target, err)
			}
			return target, nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return tcli(ctx, "/iscsi", "delete", target)
		},
	}
}

// ConfigureAuthentication enables node ACL generation on target, per
// spec.md §4.7.3.
func ConfigureAuthentication(ctx context.Context, target string) error {
	attr := fmt.Sprintf("/iscsi/%s/tpg1", target)
	if err := tcli(ctx, attr, "set", "attribute", "generate_node_acls=1"); err != nil {
		return fmt.Errorf("iscsi: configuring authentication on %s: %w", target, err)
	}
	return nil
}

// SaveConfig persists the current targetcli configuration to disk.
func SaveConfig(ctx context.Context) error {
	if err := tcli(ctx, "saveconfig"); err != nil {
		return fmt.Errorf("iscsi: saveconfig: %w", err)
	}
	return nil
}

// PublishToISCSI is the end-to-end publish_to_iscsi composite from
// spec.md §4.7: create the backstore, create the target (attach LUN),
// configure authentication, saveconfig. An outer scope ensures saveconfig
// also runs on rollback, so a partially-applied change is always
// persisted in its rolled-back state.
func PublishToISCSI(s *txn.Stack, dev string) (string, error) {
	if _, err := s.Enter(txn.Scope{
		Name: "iscsi-saveconfig-on-rollback",
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return SaveConfig(ctx)
		},
	}); err != nil {
		return "", err
	}

	if _, err := s.Enter(CreateBackstore(dev)); err != nil {
		return "", err
	}
	backstore := BackstoreName(dev)

	targetVal, err := s.Enter(CreateTarget(backstore))
	if err != nil {
		_ = SaveConfig(s.Context())
		return "", err
	}
	target := targetVal.(string)

	if err := ConfigureAuthentication(s.Context(), target); err != nil {
		_ = SaveConfig(s.Context())
		return "", err
	}

	if err := SaveConfig(s.Context()); err != nil {
		return "", err
	}

	return target, nil
}

// RemoveTarget and RemoveBackstore are the cleaner's best-effort
// counterparts to CreateTarget/CreateBackstore (spec.md §4.12 steps 3-4).
func RemoveTarget(ctx context.Context, target string) error {
	return tcli(ctx, "/iscsi", "delete", target)
}

func RemoveBackstore(ctx context.Context, backstore string) error {
	return tcli(ctx, "/backstores/block", "delete", backstore)
}
