package bootconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSavedConfigRollbackRestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.ipxe")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	scope := SavedConfig(path)
	value, err := scope.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be moved aside during Prepare", path)
	}

	// simulate the swap having failed, then roll back.
	if err := scope.Rollback(context.Background(), value, os.ErrInvalid); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("restored content = %q, want %q", data, "original")
	}
	if _, err := os.Stat(path + ".old"); !os.IsNotExist(err) {
		t.Errorf(".old file should be gone after restore")
	}
}

func TestSavedConfigCommitRemovesOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.ipxe")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	scope := SavedConfig(path)
	value, err := scope.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if err := os.Symlink("new-target.ipxe", path); err != nil {
		t.Fatal(err)
	}

	if err := scope.Commit(context.Background(), value); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := os.Stat(path + ".old"); !os.IsNotExist(err) {
		t.Errorf(".old file should be removed after commit")
	}
}

func TestGenerateIPXEConfigWritesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	kernel := filepath.Join(dir, "snap1", "vmlinuz")
	initrd := filepath.Join(dir, "snap1", "initrd.img")

	scope := GenerateIPXEConfig(dir, "iqn.2013-07.cow.snap1", kernel, initrd)
	value, err := scope.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	data, err := os.ReadFile(value.(string))
	if err != nil {
		t.Fatalf("reading generated config: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "snap1/vmlinuz") || !strings.Contains(content, "snap1/initrd.img") {
		t.Errorf("expected relative kernel/initrd paths in config, got:\n%s", content)
	}
	if !strings.Contains(content, "set itn iqn.2013-07.cow.snap1") {
		t.Errorf("expected target name line, got:\n%s", content)
	}
}
