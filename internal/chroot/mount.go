// Package chroot prepares a temporary chroot environment inside a
// promoted snapshot's root partition: mount stack, filesystem seeding,
// optional customization script, and kernel/initrd extraction (spec.md
// §4.6/C9). The fixed mount-step list is expressed as a
// github.com/hashicorp/packer-plugin-sdk/multistep runner, grounded on
// hashicorp-packer-plugin-azure's builder/azure/chroot package, which
// mounts/unmounts a chroot's root, proc, sysfs and bind-mounts through
// exactly this kind of ordered Step/StateBag list.
package chroot

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	"golang.org/x/sys/unix"

	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/procrun"
	"github.com/cowpub/cowpub/internal/txn"
)

// stateRoot, stateDevice and stateMounted are the StateBag keys shared by
// every mount step.
const (
	stateRoot    = "root"
	stateDevice  = "device"
	stateMounted = "mounted_paths"
)

// mountSpec is one entry of the fixed mount stack from spec.md §4.6: root
// partition to dir, proc at <root>/proc, sysfs at <root>/sys, bind /dev,
// bind /dev/pts, in that exact order.
type mountSpec struct {
	subdir  string // relative to root; empty means root itself
	device  string // "" means use the snapshot device from state
	fstype  string
	bind    bool
	options []string
}

func mountPlan() []mountSpec {
	return []mountSpec{
		{subdir: "", device: "", fstype: ""},
		{subdir: "proc", device: "proc", fstype: "proc"},
		{subdir: "sys", device: "sysfs", fstype: "sysfs"},
		{subdir: "dev", device: "/dev", bind: true},
		{subdir: "dev/pts", device: "/dev/pts", bind: true},
	}
}

// stepMount is one multistep.Step, mounting a single entry of mountPlan.
// It mirrors StepMountDevice's Run/Cleanup shape: Run performs the mount
// and records the mounted path in the StateBag. Its Cleanup does nothing;
// unmounting is left to Mounted.
type stepMount struct {
	spec mountSpec
}

func (s *stepMount) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	root := state.Get(stateRoot).(string)
	target := root
	if s.spec.subdir != "" {
		target = root + "/" + s.spec.subdir
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		state.Put("error", fmt.Errorf("chroot: creating mount point %s: %w", target, err))
		return multistep.ActionHalt
	}

	argv := []string{"mount"}
	switch {
	case s.spec.subdir == "":
		argv = append(argv, state.Get(stateDevice).(string), target)
	case s.spec.bind:
		argv = append(argv, "--bind", s.spec.device, target)
	default:
		argv = append(argv, "-t", s.spec.fstype, s.spec.fstype, target)
	}

	if err := procrun.Quiet(ctx, argv...); err != nil {
		state.Put("error", fmt.Errorf("chroot: mounting %s: %w", target, err))
		return multistep.ActionHalt
	}

	mounted, _ := state.Get(stateMounted).([]string)
	state.Put(stateMounted, append(mounted, target))
	return multistep.ActionContinue
}

func (s *stepMount) Cleanup(state multistep.StateBag) {
	// Unmounting happens in Mounted (reverse order across all steps), not
	// per-step: the runner calls every step's Cleanup as soon as its Run
	// returns, while the mounts must outlive Prepare. See Mounted.
}

// Mounted is the chroot(partition) scope from spec.md §4.6: allocates a
// temporary root directory and stacks the fixed mount list using a
// multistep.BasicRunner, yielding the root path. Rollback/Final unmounts
// everything that was actually mounted, in reverse order.
func Mounted(device string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("chroot-mounted(%s)", device),
		Prepare: func(ctx context.Context) (interface{}, error) {
			root, err := os.MkdirTemp("", "cowpub-chroot-")
			if err != nil {
				return nil, fmt.Errorf("chroot: creating temp root: %w", err)
			}

			state := new(multistep.BasicStateBag)
			state.Put(stateRoot, root)
			state.Put(stateDevice, device)
			state.Put(stateMounted, []string{})

			steps := make([]multistep.Step, 0, len(mountPlan()))
			for _, spec := range mountPlan() {
				steps = append(steps, &stepMount{spec: spec})
			}

			runner := &multistep.BasicRunner{Steps: steps}
			runner.Run(ctx, state)

			if errVal, ok := state.GetOk("error"); ok {
				unmountAll(ctx, toStrings(state.Get(stateMounted)))
				os.Remove(root)
				return nil, errVal.(error)
			}

			return root, nil
		},
		Final: func(ctx context.Context, value interface{}, cause error) error {
			root, _ := value.(string)
			if root == "" {
				return nil
			}
			// mounted paths were accumulated on the original state bag, which
			// Prepare doesn't retain; re-derive from mountPlan order since the
			// scope only reaches Final after every mount in Prepare succeeded.
			var mounted []string
			for _, spec := range mountPlan() {
				target := root
				if spec.subdir != "" {
					target = root + "/" + spec.subdir
				}
				mounted = append(mounted, target)
			}
			unmountAll(ctx, mounted)
			if err := os.Remove(root); err != nil && !os.IsNotExist(err) {
				cowlog.Warnf("chroot: removing temp root %s: %v", root, err)
			}
			return nil
		},
	}
}

func toStrings(v interface{}) []string {
	s, _ := v.([]string)
	return s
}

// unmountAll unmounts paths in reverse order, logging (not failing on)
// individual umount errors -- unwind must make a best effort even if an
// earlier mount never happened.
func unmountAll(ctx context.Context, paths []string) {
	for i := len(paths) - 1; i >= 0; i-- {
		if err := unix.Unmount(paths[i], 0); err != nil {
			cowlog.Warnf("chroot: unmounting %s: %v", paths[i], err)
		}
	}
}
