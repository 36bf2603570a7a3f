// Package pipeline wires every component into the two top-level
// operations spec.md §4.8 and §4.12-§4.13 describe: Add, the end-to-end
// snapshot-promotion transaction, and Clean, the snapshot-lifecycle
// reclaimer. This is the composition root -- nothing here talks to an
// external tool directly; it calls into internal/{lvm,diskinfo,chroot,
// iscsi,bootconfig,verify,fleet,fence,cleaner} and threads them through
// internal/txn.Stack scopes per spec.md's ordering discipline: one outer
// stack for the whole transaction, plus short-lived stacks for the VM
// shutdown fence and the chroot seeding step.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cowpub/cowpub/internal/bootconfig"
	"github.com/cowpub/cowpub/internal/chroot"
	"github.com/cowpub/cowpub/internal/cleaner"
	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/diskinfo"
	"github.com/cowpub/cowpub/internal/fence"
	"github.com/cowpub/cowpub/internal/fleet"
	"github.com/cowpub/cowpub/internal/iscsi"
	"github.com/cowpub/cowpub/internal/lvm"
	"github.com/cowpub/cowpub/internal/sshexec"
	"github.com/cowpub/cowpub/internal/txn"
	"github.com/cowpub/cowpub/internal/verify"
	"github.com/cowpub/cowpub/internal/vmctrl"
	"github.com/cowpub/cowpub/internal/waitfor"
)

const lvOpenWaitTimeout = 30 * time.Second
const lvOpenWaitStep = 1 * time.Second

// AddParams is every parameter add's CLI subcommand collects (spec.md
// §6): a single struct rather than positional args, since there are
// thirteen of them once options are included.
type AddParams struct {
	RefVM             string
	RefHost           string
	Partitions        cowconfig.PartitionsConfig
	Output            string
	TestVM            string
	TestHost          string
	SnapshotSize      string
	CacheConfig       *cowconfig.CacheConfig
	ToCopy            []string
	ChrootScript      string
	LinkSnapshotCopy  string
	Push              bool
	PushConcurrency   int
}

// Add implements the end-to-end add composite from spec.md §4.8 start to
// finish, inside one transactional stack so that any failure unwinds
// everything acquired so far, in reverse order.
func Add(ctx context.Context, vmm vmctrl.Manager, p AddParams) (err error) {
	log := cowlog.WithField("ref_vm", p.RefVM)
	log.Infof("pipeline: starting add")

	s := txn.New(ctx)
	defer func() {
		if err != nil {
			log.Errorf("pipeline: add failed: %v", err)
			s.Rollback(err)
		}
	}()

	// (a) check_preconditions: VM running and host reachable, fail fast.
	running, rerr := vmm.IsRunning(ctx, p.RefVM)
	if rerr != nil {
		return rerr
	}
	if !running {
		return fmt.Errorf("pipeline: %s is not running", p.RefVM)
	}
	if !sshexec.IsAccessible(ctx, p.RefHost) {
		return fmt.Errorf("pipeline: %s is not reachable", p.RefHost)
	}

	refLVs, err := vmm.Disks(ctx, p.RefVM)
	if err != nil {
		return err
	}
	if len(refLVs) != 1 {
		return fmt.Errorf("pipeline: %s has %d disks, want exactly 1", p.RefVM, len(refLVs))
	}
	refLV := refLVs[0]

	now := time.Now()
	ts := lvm.Timestamp(now)
	snapshotName := lvm.SnapshotName(refLV, ts)
	promotedName := lvm.PromotedName(snapshotName)
	promotedPath := filepath.Join(filepath.Dir(refLV), promotedName)

	// (b) vm_disk_snapshot. The VM only needs to be down long enough to take
	// the COW snapshot, so its shut-down scope lives on its own short-lived
	// stack rather than the outer one -- there is no way to release an
	// outer-stack entry out of push order, and here the shutdown must be
	// released before the promoted copy's dd even starts.
	shutdownStack := txn.New(ctx)
	var shutdownErr error
	if _, shutdownErr = shutdownStack.Enter(fence.VMShutDown(vmm, p.RefVM, p.RefHost)); shutdownErr == nil {
		notOpen := func(ctx context.Context) (bool, error) {
			open, err := lvm.IsOpen(ctx, refLV)
			if err != nil {
				return false, err
			}
			return !open, nil
		}
		shutdownErr = waitfor.For(ctx, "lv_not_open:"+refLV, lvOpenWaitTimeout, lvOpenWaitStep, notOpen)
		if shutdownErr == nil {
			shutdownErr = lvm.CreateSnapshot(ctx, refLV, snapshotName, p.SnapshotSize, 0, "")
		}
	}
	if shutdownErr != nil {
		shutdownStack.Rollback(shutdownErr)
		return shutdownErr
	}
	if err = shutdownStack.Commit(); err != nil {
		return err
	}

	// The ephemeral COW snapshot is removed at the end of the transaction
	// regardless of outcome; register that cleanup on the outer stack now
	// that it exists.
	if _, err = s.Enter(ephemeralSnapshotCleanup(filepath.Join(filepath.Dir(refLV), snapshotName))); err != nil {
		return err
	}

	if _, err = s.Enter(lvm.VolumeCopyScope(filepath.Join(filepath.Dir(refLV), snapshotName), promotedName, "")); err != nil {
		return err
	}

	// (c) snapshot_artifacts directory.
	artifactsDir := filepath.Join(p.Output, promotedName)
	if _, err := os.Stat(artifactsDir); err == nil {
		return fmt.Errorf("pipeline: artifacts directory %s already exists", artifactsDir)
	}
	if err = os.MkdirAll(artifactsDir, 0755); err != nil {
		return fmt.Errorf("pipeline: creating %s: %w", artifactsDir, err)
	}
	defer func() {
		if err != nil {
			if rerr := os.RemoveAll(artifactsDir); rerr != nil {
				log.Errorf("pipeline: removing %s after failure: %v", artifactsDir, rerr)
			}
		}
	}()

	// (d) disk_info -> find base partition -> rename -> re-read -> find.
	disk, err := diskinfo.Info(ctx, promotedPath)
	if err != nil {
		return err
	}
	if disk.PartitionTableType != "gpt" {
		return fmt.Errorf("pipeline: %s has partition table type %q, want gpt", promotedPath, disk.PartitionTableType)
	}
	basePart, err := diskinfo.FindByName(disk, p.Partitions.Base)
	if err != nil {
		return err
	}
	if err = diskinfo.SetPartitionName(ctx, promotedPath, basePart.Number, p.Partitions.Network); err != nil {
		return err
	}
	disk, err = diskinfo.Info(ctx, promotedPath)
	if err != nil {
		return err
	}
	networkPart, err := diskinfo.FindByName(disk, p.Partitions.Network)
	if err != nil {
		return err
	}

	// (e) inner scope: partitions_exposed -> chroot -> seed -> kernel/initrd.
	if err = runChrootSeedingScope(s, promotedPath, networkPart, p, now, artifactsDir); err != nil {
		return err
	}

	finalVolume := promotedPath
	if p.LinkSnapshotCopy != "" {
		copyName := lvm.CopyName(promotedName)
		copyPath, verr := s.Enter(lvm.VolumeCopyScope(promotedPath, copyName, ""))
		if verr != nil {
			return verr
		}
		finalVolume = copyPath.(string)

		// commit-only: the symlink is only created once the whole
		// transaction is known to succeed, so a failure never leaves a
		// dangling link to a volume that got rolled back.
		linkTarget := p.LinkSnapshotCopy
		linkedVolume := finalVolume
		if _, err = s.Enter(txn.Scope{
			Name: fmt.Sprintf("link-snapshot-copy(%s)", linkTarget),
			Commit: func(ctx context.Context, value interface{}) error {
				if rerr := os.Remove(linkTarget); rerr != nil && !os.IsNotExist(rerr) {
					log.Warnf("pipeline: removing stale %s: %v", linkTarget, rerr)
				}
				return os.Symlink(linkedVolume, linkTarget)
			},
		}); err != nil {
			return err
		}
	}

	// (g) configure_caching.
	finalVolume = lvm.ConfigureCaching(ctx, finalVolume, p.CacheConfig)

	// (h) publish_to_iscsi.
	target, err := iscsi.PublishToISCSI(s, finalVolume)
	if err != nil {
		return err
	}

	// (i) generate_ipxe_config.
	kernel := filepath.Join(artifactsDir, "vmlinuz")
	initrd := filepath.Join(artifactsDir, "initrd.img")
	if _, err = s.Enter(bootconfig.GenerateIPXEConfig(p.Output, target, kernel, initrd)); err != nil {
		return err
	}
	ipxePath := filepath.Join(p.Output, target+".ipxe")

	// (j) reset_back_on_failure(test_vm): rollback resets the test VM if
	// any later step throws.
	if _, err = s.Enter(resetBackOnFailure(vmm, p.TestVM)); err != nil {
		return err
	}

	// (k) published_ipxe_config(testing=True).
	if err = bootconfig.PublishedIPXEConfig(s, p.Output, ipxePath, true); err != nil {
		return err
	}

	// (l) reboot_and_check_test_vm.
	if err = verify.RebootAndCheckTestVM(ctx, vmm, p.TestVM, p.TestHost, ts); err != nil {
		return err
	}

	// (m) published_ipxe_config (production): the promotion point.
	if err = bootconfig.PublishedIPXEConfig(s, p.Output, ipxePath, false); err != nil {
		return err
	}

	if cerr := s.Commit(); cerr != nil {
		err = cerr
		return err
	}
	log.Infof("pipeline: promoted %s", promotedPath)

	if p.Push {
		snapshots, perr := cleaner.EnumerateSnapshots(filepath.Dir(refLV), refLV)
		if perr != nil {
			return perr
		}
		for _, snap := range snapshots {
			if snap == promotedPath || snap == finalVolume {
				continue
			}
			if perr := fleet.Push(ctx, snap, p.TestHost, p.PushConcurrency); perr != nil {
				return perr
			}
		}
	}
	return nil
}

// runChrootSeedingScope implements §4.8(e): an inner scope nesting
// partitions_exposed, chroot, filesystem seeding and kernel/initrd
// extraction, released before the outer transaction proceeds so kpartx
// holds no locks during iSCSI exposure.
func runChrootSeedingScope(outer *txn.Stack, dev string, networkPart diskinfo.PartitionInfo, p AddParams, ts time.Time, artifactsDir string) error {
	inner := txn.New(outer.Context())

	var innerErr error
	defer func() {
		if innerErr != nil {
			inner.Rollback(innerErr)
		}
	}()

	if _, innerErr = inner.Enter(diskinfo.PartitionsExposedScope(dev)); innerErr != nil {
		return innerErr
	}

	mapped, innerErr := diskinfo.MappedPartitionNames(outer.Context(), dev)
	if innerErr != nil {
		return innerErr
	}
	partitionDevice, ok := mapped[networkPart.Number]
	if !ok {
		innerErr = fmt.Errorf("pipeline: no kpartx mapping for partition %d of %s", networkPart.Number, dev)
		return innerErr
	}

	rootVal, innerErr := inner.Enter(chroot.Mounted(partitionDevice))
	if innerErr != nil {
		return innerErr
	}
	root := rootVal.(string)

	for _, dir := range p.ToCopy {
		if innerErr = chroot.CopyOverlay(root, dir); innerErr != nil {
			return innerErr
		}
	}
	if innerErr = chroot.WriteTimestamp(root, ts); innerErr != nil {
		return innerErr
	}
	if innerErr = chroot.WriteCowConf(root, p.Partitions); innerErr != nil {
		return innerErr
	}
	if innerErr = chroot.RunScript(outer.Context(), root, p.ChrootScript); innerErr != nil {
		return innerErr
	}
	if innerErr = chroot.ExtractKernel(root, artifactsDir); innerErr != nil {
		return innerErr
	}

	return inner.Commit()
}

// ephemeralSnapshotCleanup registers removal of the already-created
// ephemeral COW snapshot device (full VG/LV path, not a bare name -- lvm.
// Remove shells lvremove -f, which needs VG/LV or a device path) on the
// outer stack: spec.md §4.8(b) says it is "destroyed at the end of the
// transaction" regardless of outcome, so this scope has no Prepare of its
// own -- the snapshot already exists -- only a Final that removes it.
func ephemeralSnapshotCleanup(device string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("ephemeral-snapshot-cleanup(%s)", device),
		Final: func(ctx context.Context, value interface{}, cause error) error {
			return lvm.Remove(ctx, device)
		},
	}
}

// resetBackOnFailure is reset_back_on_failure(test_vm) from spec.md
// §4.8(j): a no-op on success, a test-VM reset on rollback.
func resetBackOnFailure(vmm vmctrl.Manager, testVM string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("reset-back-on-failure(%s)", testVM),
		Prepare: func(ctx context.Context) (interface{}, error) {
			return nil, nil
		},
		Commit: func(ctx context.Context, value interface{}) error {
			return nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return vmm.Reset(ctx, testVM)
		},
	}
}
