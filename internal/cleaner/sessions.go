// Package cleaner reclaims promoted-snapshot state once no active
// initiator session holds it, the snapshot lifecycle cleaner from
// spec.md §4.12/C14.
package cleaner

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DynamicSessionsPath is the configfs path exposing a target's connected
// initiator sessions, per spec.md §4.12.
func DynamicSessionsPath(target string) string {
	return fmt.Sprintf("/sys/kernel/config/target/iscsi/%s/tpgt_1/dynamic_sessions", target)
}

// ListDynamicSessions reads and parses a target's dynamic_sessions file:
// NUL-separated entries, each whitespace-trimmed. A missing file (no
// sessions ever established) is treated as zero sessions, not an error.
func ListDynamicSessions(target string) ([]string, error) {
	data, err := os.ReadFile(DynamicSessionsPath(target))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cleaner: reading dynamic sessions for %s: %w", target, err)
	}

	var sessions []string
	for _, entry := range strings.Split(string(data), "\x00") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			sessions = append(sessions, entry)
		}
	}
	return sessions, nil
}

// sessionHostRe extracts the client host from a session name of the form
// "<initiator-iqn>:<host>_YYYY-MM-DD_HH-MM-SS", per spec.md §4.13.
var sessionHostRe = regexp.MustCompile(`^.+:(.+)_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}$`)

// SessionHost derives the host name embedded in a session identifier, or
// returns ("", false) if session doesn't match the expected pattern --
// unmatchable sessions are skipped by callers, per spec.md §4.13.
func SessionHost(session string) (string, bool) {
	m := sessionHostRe.FindStringSubmatch(session)
	if m == nil {
		return "", false
	}
	return m[1], true
}
