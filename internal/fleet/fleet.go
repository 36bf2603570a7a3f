// Package fleet implements push-to-fleet from spec.md §4.13/C13: for
// every old snapshot, find the idle hosts still booted from it and reboot
// them onto the newly-promoted snapshot.
package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/cowpub/cowpub/internal/cleaner"
	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/iscsi"
	"github.com/cowpub/cowpub/internal/procrun"
	"github.com/cowpub/cowpub/internal/sshexec"
)

// idleHosts derives the distinct, non-test hosts holding sessions on
// snapshot's target, skipping sessions whose name doesn't match the
// expected pattern.
func idleHosts(snapshot, testHost string) ([]string, error) {
	backstore := iscsi.BackstoreName(snapshot)
	target := iscsi.TargetName(backstore)

	sessions, err := cleaner.ListDynamicSessions(target)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var hosts []string
	for _, session := range sessions {
		host, ok := cleaner.SessionHost(session)
		if !ok {
			cowlog.Debugf("fleet: session %q on %s doesn't match the expected pattern, skipping", session, target)
			continue
		}
		if host == testHost || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts, nil
}

// isBusy reports whether host has any logged-in users, via `ssh host who`.
func isBusy(ctx context.Context, host string) (bool, error) {
	out, err := sshexec.Output(ctx, host, "who")
	if err != nil {
		return false, fmt.Errorf("fleet: who on %s: %w", host, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// Push implements push-to-fleet for a single old snapshot: every distinct,
// non-busy, non-test host holding a session on it is rebooted
// best-effort. Concurrency across hosts uses procrun.Pool the way
// internal/procrun's pool.go fans I/O-bound external commands out, per
// spec.md §5's concurrency model.
func Push(ctx context.Context, snapshot, testHost string, concurrency int) error {
	hosts, err := idleHosts(snapshot, testHost)
	if err != nil {
		return err
	}

	pool := procrun.NewPool(concurrency)
	for _, host := range hosts {
		host := host
		pool.Go(func() error {
			busy, err := isBusy(ctx, host)
			if err != nil {
				cowlog.Warnf("fleet: checking busy state of %s: %v", host, err)
				return nil
			}
			if busy {
				cowlog.Infof("fleet: %s is busy, skipping reboot", host)
				return nil
			}

			if _, err := sshexec.Run(ctx, host, "reboot", sshexec.Options{}); err != nil {
				cowlog.Warnf("fleet: rebooting %s: %v", host, err)
			}
			return nil
		})
	}

	return pool.Wait()
}
