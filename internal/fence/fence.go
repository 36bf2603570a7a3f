// Package fence implements the shut-down fence from spec.md §4.9/C8: a
// best-effort-free, fully fatal shutdown/start cycle around a VM so that
// disk snapshots can be taken while the guest is quiesced, grounded on
// igor's external-command pattern (external.go) composed with
// internal/waitfor and internal/txn.
package fence

import (
	"context"
	"fmt"
	"time"

	"github.com/cowpub/cowpub/internal/sshexec"
	"github.com/cowpub/cowpub/internal/txn"
	"github.com/cowpub/cowpub/internal/vmctrl"
	"github.com/cowpub/cowpub/internal/waitfor"
)

const (
	dpkgLockTimeout  = 900 * time.Second
	dpkgLockStep     = 10 * time.Second
	vmStopTimeout    = 180 * time.Second
	vmStopStep       = 3 * time.Second
	accessibleWait   = 300 * time.Second
	accessibleStep   = 5 * time.Second
)

// noDpkgLocks is the predicate `ssh <host> '! fuser /var/lib/dpkg/lock'`
// exits zero -- i.e. no process currently holds the dpkg lock.
func noDpkgLocks(host string) waitfor.Predicate {
	return func(ctx context.Context) (bool, error) {
		code, err := sshexec.Probe(ctx, host, "! fuser /var/lib/dpkg/lock")
		if err != nil {
			return false, err
		}
		return code == 0, nil
	}
}

// Shutdown waits for host's package manager to be idle, then issues a
// clean shutdown. It does not wait for the host to actually power off --
// callers that need that use VMShutDown instead.
func Shutdown(ctx context.Context, host string) error {
	if err := waitfor.For(ctx, "no_dpkg_locks:"+host, dpkgLockTimeout, dpkgLockStep, noDpkgLocks(host)); err != nil {
		return err
	}
	if _, err := sshexec.Run(ctx, host, "shutdown now", sshexec.Options{}); err != nil {
		return fmt.Errorf("fence: shutdown now on %s: %w", host, err)
	}
	return nil
}

// VMShutDown is the vm_shut_down(vmm, name, host) scope from spec.md §4.9:
// prepare shuts the guest down cleanly and waits for the hypervisor to
// observe it stopped; on exit (success or failure) the VM is always
// restarted and the scope waits for SSH to come back, so disk work always
// happens with the guest down and the guest is always left running
// afterward.
func VMShutDown(vmm vmctrl.Manager, name, host string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("vm-shut-down(%s)", name),
		Prepare: func(ctx context.Context) (interface{}, error) {
			if err := Shutdown(ctx, host); err != nil {
				return nil, err
			}
			notRunning := func(ctx context.Context) (bool, error) {
				running, err := vmm.IsRunning(ctx, name)
				if err != nil {
					return false, err
				}
				return !running, nil
			}
			if err := waitfor.For(ctx, "vm_stopped:"+name, vmStopTimeout, vmStopStep, notRunning); err != nil {
				return nil, err
			}
			return nil, nil
		},
		Final: func(ctx context.Context, value interface{}, cause error) error {
			if err := vmm.Start(ctx, name); err != nil {
				return fmt.Errorf("fence: restarting %s after disk work: %w", name, err)
			}
			return waitfor.For(ctx, "accessible:"+host, accessibleWait, accessibleStep, func(ctx context.Context) (bool, error) {
				return sshexec.IsAccessible(ctx, host), nil
			})
		},
	}
}
