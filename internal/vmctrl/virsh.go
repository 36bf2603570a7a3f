package vmctrl

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/cowpub/cowpub/internal/procrun"
)

// Virsh is the concrete Manager implementation: it shells to virsh, the
// way igor's cobbler.go/tftp.go backends shell to cobbler/tftp tooling.
type Virsh struct{}

// NewVirsh constructs a Virsh-backed Manager.
func NewVirsh() *Virsh {
	return &Virsh{}
}

func (v *Virsh) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := procrun.Output(ctx, "virsh", "list", "--state-running", "--name")
	if err != nil {
		return false, fmt.Errorf("vmctrl: listing running domains: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

func (v *Virsh) Start(ctx context.Context, name string) error {
	if err := procrun.Quiet(ctx, "virsh", "start", name); err != nil {
		return fmt.Errorf("vmctrl: starting %s: %w", name, err)
	}
	return nil
}

func (v *Virsh) Reset(ctx context.Context, name string) error {
	if err := procrun.Quiet(ctx, "virsh", "reset", name); err != nil {
		return fmt.Errorf("vmctrl: resetting %s: %w", name, err)
	}
	return nil
}

func (v *Virsh) Disks(ctx context.Context, name string) ([]string, error) {
	out, err := procrun.Output(ctx, "virsh", "dumpxml", name)
	if err != nil {
		return nil, fmt.Errorf("vmctrl: dumping domain XML for %s: %w", name, err)
	}
	return parseDomainDisks(out)
}

// domain is the minimal subset of libvirt domain XML spec.md §6 cares
// about: each disk's source device path.
type domain struct {
	Devices struct {
		Disks []struct {
			Source struct {
				Dev  string `xml:"dev,attr"`
				File string `xml:"file,attr"`
			} `xml:"source"`
		} `xml:"disk"`
	} `xml:"devices"`
}

// parseDomainDisks extracts ./devices/disk/source/@dev from domain XML,
// matching spec.md §6's vmm.get_disks contract. File-backed sources (@file)
// are skipped: this system only ever publishes block-device-backed disks.
func parseDomainDisks(domXML string) ([]string, error) {
	var d domain
	if err := xml.Unmarshal([]byte(domXML), &d); err != nil {
		return nil, fmt.Errorf("vmctrl: parsing domain XML: %w", err)
	}

	var disks []string
	for _, disk := range d.Devices.Disks {
		if disk.Source.Dev != "" {
			disks = append(disks, disk.Source.Dev)
		}
	}
	return disks, nil
}
