package diskinfo

import "testing"

const samplePartedOutput = `BYT;
/dev/sda:500107862016B:scsi:512:512:gpt:ATA Disk:;
1:1048576B:1048575999B:1047527424B:ext4:primary:boot;
2:1048576000B:2097151999B:1048576000B:ext4:swap:;
`

func TestParseHappyPath(t *testing.T) {
	disk, err := parse("/dev/sda", "/dev/sda", samplePartedOutput)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if disk.PartitionTableType != "gpt" {
		t.Errorf("PartitionTableType = %q, want gpt", disk.PartitionTableType)
	}
	if len(disk.Partitions) != 2 {
		t.Fatalf("len(Partitions) = %d, want 2", len(disk.Partitions))
	}
	if disk.Partitions[0].Name != "primary" || disk.Partitions[0].Flags != "boot" {
		t.Errorf("partition[0] = %+v", disk.Partitions[0])
	}
}

func TestParseRejectsWrongFirstLine(t *testing.T) {
	bad := "NOT_BYT;\n" + samplePartedOutput
	_, err := parse("/dev/sda", "/dev/sda", bad)
	if err == nil {
		t.Fatal("expected ConfigError for bad first line")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("err type = %T, want *ConfigError", err)
	}
}

func TestParseRejectsTooFewLines(t *testing.T) {
	_, err := parse("/dev/sda", "/dev/sda", "BYT;\n")
	if err == nil {
		t.Fatal("expected ConfigError for missing disk record")
	}
}

func TestParseRejectsRealpathMismatch(t *testing.T) {
	_, err := parse("/dev/vg/link", "/dev/dm-0", samplePartedOutput)
	if err == nil {
		t.Fatal("expected ConfigError for disk record path not matching realpath")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("err type = %T, want *ConfigError", err)
	}
}

func TestFindByNameExactlyOne(t *testing.T) {
	disk, err := parse("/dev/sda", "/dev/sda", samplePartedOutput)
	if err != nil {
		t.Fatal(err)
	}

	p, err := FindByName(disk, "primary")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if p.Number != 1 {
		t.Errorf("Number = %d, want 1", p.Number)
	}

	if _, err := FindByName(disk, "missing"); err == nil {
		t.Fatal("expected error for missing partition name")
	}
}
