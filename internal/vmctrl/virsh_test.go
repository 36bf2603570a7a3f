package vmctrl

import "testing"

const sampleDomainXML = `<domain type='kvm'>
  <name>vm1</name>
  <devices>
    <disk type='block' device='disk'>
      <driver name='qemu' type='raw'/>
      <source dev='/dev/vg/vm1'/>
      <target dev='vda' bus='virtio'/>
    </disk>
    <disk type='file' device='cdrom'>
      <driver name='qemu' type='raw'/>
      <source file='/var/lib/libvirt/images/seed.iso'/>
      <target dev='hdc' bus='ide'/>
      <readonly/>
    </disk>
  </devices>
</domain>`

func TestParseDomainDisksBlockOnly(t *testing.T) {
	disks, err := parseDomainDisks(sampleDomainXML)
	if err != nil {
		t.Fatalf("parseDomainDisks: %v", err)
	}
	if len(disks) != 1 {
		t.Fatalf("parseDomainDisks: got %d disks, want 1: %v", len(disks), disks)
	}
	if disks[0] != "/dev/vg/vm1" {
		t.Errorf("parseDomainDisks: got %q, want /dev/vg/vm1", disks[0])
	}
}

func TestParseDomainDisksMalformed(t *testing.T) {
	if _, err := parseDomainDisks("not xml"); err == nil {
		t.Error("parseDomainDisks: expected error on malformed XML")
	}
}
