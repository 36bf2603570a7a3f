// Package bootconfig generates and atomically publishes iPXE boot
// configuration files, the boot-config publisher from spec.md §4.10/C11.
// File writing follows igor's tftp.go TFTPBackend.Install style (plain
// fmt.Fprintf into a created file, no templating library); the symlink
// swap in publish.go moves the existing file aside to <path>.old, creates
// the new symlink, and restores or discards the .old copy on rollback or
// commit.
package bootconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cowpub/cowpub/internal/txn"
)

// FQDN is substituted into the `set iti <FQDN>` line of every generated
// config; it is the publishing host's own identity, not per-target.
var FQDN = func() string {
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}()

func writeIPXEConfig(path, target, kernelRel, initrdRel string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bootconfig: creating %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "#!ipxe\n\n")
	fmt.Fprintf(f, "set iti %s\n", FQDN)
	fmt.Fprintf(f, "set itn %s\n", target)
	fmt.Fprintf(f, "set iscsi_params iscsi:${iti}::::${itn}\n")
	fmt.Fprintf(f, "set cow_params cow.target=${itn} cow.initiator=${iti}\n")
	fmt.Fprintf(f, "kernel ${iscsi_params}/%s ${cow_params}\n", kernelRel)
	fmt.Fprintf(f, "initrd ${iscsi_params}/%s\n", initrdRel)
	fmt.Fprintf(f, "boot\n")
	return nil
}

// GenerateIPXEConfig is generate_ipxe_config(output, target, kernel,
// initrd) from spec.md §4.10: writes <output>/<target>.ipxe, storing
// kernel/initrd as paths relative to output. Rollback removes the file.
func GenerateIPXEConfig(output, target, kernel, initrd string) txn.Scope {
	path := filepath.Join(output, target+".ipxe")
	return txn.Scope{
		Name: fmt.Sprintf("ipxe-config(%s)", target),
		Prepare: func(ctx context.Context) (interface{}, error) {
			kernelRel, err := filepath.Rel(output, kernel)
			if err != nil {
				return nil, fmt.Errorf("bootconfig: relativizing kernel path %s: %w", kernel, err)
			}
			initrdRel, err := filepath.Rel(output, initrd)
			if err != nil {
				return nil, fmt.Errorf("bootconfig: relativizing initrd path %s: %w", initrd, err)
			}
			if err := writeIPXEConfig(path, target, kernelRel, initrdRel); err != nil {
				return nil, err
			}
			return path, nil
		},
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("bootconfig: removing %s: %w", path, err)
			}
			return nil
		},
	}
}
