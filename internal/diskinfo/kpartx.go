package diskinfo

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cowpub/cowpub/internal/cowlog"
	"github.com/cowpub/cowpub/internal/procrun"
	"github.com/cowpub/cowpub/internal/txn"
)

// cleanupDelays are the retry backoffs from spec.md §4.4: seven attempts
// total, six delays between them.
var cleanupDelays = []time.Duration{
	100 * time.Millisecond,
	300 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
}

var kpartxLineRe = regexp.MustCompile(`^(\S+)\s*:`)
var trailingDigitsRe = regexp.MustCompile(`(\d+)$`)

// MappedPartitionNames reports the /dev/mapper name for each partition
// number currently exposed for dev (i.e. after PartitionsExposedScope's
// kpartx -a -s has already run), without tearing anything down.
func MappedPartitionNames(ctx context.Context, dev string) (map[int]string, error) {
	out, err := procrun.Output(ctx, "kpartx", "-l", "-s", dev)
	if err != nil {
		return nil, fmt.Errorf("diskinfo: listing kpartx mappings for %s: %w", dev, err)
	}
	return parseKpartxNames(out)
}

func parseKpartxNames(out string) (map[int]string, error) {
	names := map[int]string{}
	for _, line := range splitNonEmpty(out) {
		m := kpartxLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		mapname := m[1]

		digits := trailingDigitsRe.FindStringSubmatch(mapname)
		if digits == nil {
			continue
		}
		num, err := strconv.Atoi(digits[1])
		if err != nil {
			continue
		}
		names[num] = "/dev/mapper/" + mapname
	}
	return names, nil
}

// CleanupKpartx removes the mappings exposed for dev, retrying on the
// literal "is in use" failure mode up to 7 attempts total with the delays
// from spec.md §4.4. Any other non-zero exit is immediately fatal; a
// persisting "is in use" after the final retry is also fatal.
func CleanupKpartx(ctx context.Context, dev string) error {
	attempt := 0
	for {
		res, err := procrun.Run(ctx, []string{"kpartx", "-d", "-v", dev}, procrun.Options{
			Merged:        true,
			ExpectSuccess: procrun.Bool(false),
		})
		if err != nil {
			return fmt.Errorf("diskinfo: running kpartx -d on %s: %w", dev, err)
		}
		if res.ExitCode == 0 {
			return nil
		}

		if !strings.Contains(res.Stdout, "is in use") {
			return fmt.Errorf("diskinfo: kpartx -d -v %s failed: %s", dev, res.Stdout)
		}

		if attempt >= len(cleanupDelays) {
			return fmt.Errorf("diskinfo: kpartx -d -v %s still reports in-use after %d retries", dev, len(cleanupDelays))
		}

		delay := cleanupDelays[attempt]
		cowlog.Debugf("kpartx -d -v %s reports in-use, retrying in %v (attempt %d/%d)", dev, delay, attempt+1, len(cleanupDelays))
		time.Sleep(delay)
		attempt++
	}
}

// PartitionsExposedScope is the partitions_exposed(dev) scope from
// spec.md §4.6 expressed as a txn.Scope: prepare kpartx -a -s dev, final
// cleanup_kpartx(dev), regardless of commit or rollback.
func PartitionsExposedScope(dev string) txn.Scope {
	return txn.Scope{
		Name: fmt.Sprintf("partitions-exposed(%s)", dev),
		Prepare: func(ctx context.Context) (interface{}, error) {
			if err := procrun.Quiet(ctx, "kpartx", "-a", "-s", dev); err != nil {
				return nil, fmt.Errorf("diskinfo: exposing partitions of %s: %w", dev, err)
			}
			return dev, nil
		},
		Final: func(ctx context.Context, value interface{}, cause error) error {
			return CleanupKpartx(ctx, dev)
		},
	}
}
