package chroot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cowpub/cowpub/internal/cowconfig"
	"github.com/cowpub/cowpub/internal/lvm"
	"github.com/cowpub/cowpub/internal/procrun"
)

// CopyOverlay walks src (an overlay directory named in --to-copy) and
// copies every file onto the equivalent path under root, preserving
// permissions and overwriting existing destinations, matching
// os.walk+shutil.copy2 semantics from spec.md §4.6.
func CopyOverlay(root, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rel)

		if info.IsDir() {
			return os.MkdirAll(dst, info.Mode())
		}
		return copyFilePreserving(path, dst, info)
	})
}

func copyFilePreserving(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("chroot: opening overlay file %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("chroot: creating %s: %w", filepath.Dir(dst), err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("chroot: creating overlay destination %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("chroot: copying %s to %s: %w", src, dst, err)
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}

// WriteTimestamp writes /etc/timestamp inside root with the run
// timestamp, in lvm.TimestampLayout.
func WriteTimestamp(root string, ts time.Time) error {
	path := filepath.Join(root, "etc", "timestamp")
	return os.WriteFile(path, []byte(lvm.Timestamp(ts)+"\n"), 0644)
}

// WriteCowConf writes /etc/cow.conf inside root: a bash associative array
// declaration plus one PARTITION_NAMES[<key>]=<value> line per field of
// the partitions config, per spec.md §4.6.
func WriteCowConf(root string, cfg cowconfig.PartitionsConfig) error {
	var b strings.Builder
	b.WriteString("declare -A PARTITION_NAMES\n")
	for _, f := range cfg.Fields() {
		fmt.Fprintf(&b, "PARTITION_NAMES[%s]=%s\n", f.Key, f.Value)
	}

	path := filepath.Join(root, "etc", "cow.conf")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("chroot: creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// RunScript executes an optional customization script inside root via
// chroot <root> <script>.
func RunScript(ctx context.Context, root, script string) error {
	if script == "" {
		return nil
	}
	if err := procrun.Quiet(ctx, "chroot", root, script); err != nil {
		return fmt.Errorf("chroot: running script %s in %s: %w", script, root, err)
	}
	return nil
}

// ExtractKernel copies /vmlinuz and /initrd.img out of root into
// artifactsDir, matching spec.md §4.6's final seeding step.
func ExtractKernel(root, artifactsDir string) error {
	for _, name := range []string{"vmlinuz", "initrd.img"} {
		src := filepath.Join(root, name)
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("chroot: locating %s in chroot: %w", name, err)
		}
		if err := copyFilePreserving(src, filepath.Join(artifactsDir, name), info); err != nil {
			return err
		}
	}
	return nil
}
