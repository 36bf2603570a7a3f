// Package waitfor implements the poll-until-true-or-timeout primitive used
// throughout the snapshot pipeline (spec.md §4.2): waiting for an LV to
// close, a VM to stop, SSH to come back, or a test boot to complete.
package waitfor

import (
	"context"
	"fmt"
	"time"
)

// TimeoutError is raised when a predicate never became true within the
// allotted time. It names the predicate so the resulting failure is
// legible in logs, matching spec.md's "raises a distinct timeout failure
// naming the predicate".
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting for %s", e.Timeout, e.Name)
}

// Predicate is polled by For until it returns true, an error, or the
// context/timeout is exhausted.
type Predicate func(ctx context.Context) (bool, error)

// For polls pred every step until it returns true or timeout elapses. The
// step interval is honored between polls, never before the first --
// pred is always tried once immediately. name identifies the predicate in
// the resulting TimeoutError.
func For(ctx context.Context, name string, timeout, step time.Duration, pred Predicate) error {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := pred(ctx)
		if err != nil {
			return fmt.Errorf("waitfor %s: %w", name, err)
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Name: name, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Name: name, Timeout: timeout}
		}
	}
}

// Bool adapts a plain func() bool into a Predicate with no error path,
// for the common case of a boolean probe.
func Bool(fn func() bool) Predicate {
	return func(ctx context.Context) (bool, error) {
		return fn(), nil
	}
}
