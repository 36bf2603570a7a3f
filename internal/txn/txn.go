// Package txn implements the transactional scope primitive that the whole
// snapshot-promotion pipeline is built from (spec.md §4.3): a scoped value
// acquired by a prepare step, released by a commit handler on success or a
// rollback handler on failure, with scopes composing into a stack that
// unwinds in reverse push order. It is the Go translation of the source's
// nested Python context-manager stacks, in the same spirit as the
// resource-acquisition-as-steps pattern the pack's
// hashicorp/packer-plugin-azure chroot builder expresses with
// multistep.Step/Cleanup -- one guard per acquisition, unwound in reverse,
// with cleanup failures logged rather than allowed to mask the original
// error (see internal/chroot, which uses multistep.BasicRunner directly
// for its fixed mount-order step list; txn.Stack covers the more general
// case here where business logic runs interleaved between acquisitions).
package txn

import (
	"context"
	"fmt"

	"github.com/cowpub/cowpub/internal/cowlog"
)

// Scope describes one scoped acquisition: Prepare runs immediately and its
// return value is handed back to the caller and threaded through to the
// exit handlers. Commit and Rollback may both be set; Final is mutually
// exclusive with Commit/Rollback, matching spec.md's constraint.
type Scope struct {
	Name string

	Prepare func(ctx context.Context) (interface{}, error)

	Commit   func(ctx context.Context, value interface{}) error
	Rollback func(ctx context.Context, value interface{}, cause error) error
	Final    func(ctx context.Context, value interface{}, cause error) error
}

func (s Scope) validate() error {
	if s.Final != nil && (s.Commit != nil || s.Rollback != nil) {
		return fmt.Errorf("txn: scope %q sets Final together with Commit/Rollback", s.Name)
	}
	return nil
}

type entry struct {
	scope Scope
	value interface{}
}

// Stack is a stack of entered scopes, unwound in reverse order. The zero
// value is not usable; construct with New.
type Stack struct {
	ctx     context.Context
	entries []entry
}

// New returns an empty Stack bound to ctx.
func New(ctx context.Context) *Stack {
	return &Stack{ctx: ctx}
}

// Context returns the context the Stack was constructed with, for callers
// that need to perform work between Enter calls without their own copy of
// the context.
func (s *Stack) Context() context.Context {
	return s.ctx
}

// Enter runs scope.Prepare and pushes the scope onto the stack so its exit
// handler runs on Commit/Rollback. If Prepare fails, the scope is not
// pushed (there is nothing to roll back) and the error is returned
// directly.
func (s *Stack) Enter(scope Scope) (interface{}, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}

	var value interface{}
	if scope.Prepare != nil {
		v, err := scope.Prepare(s.ctx)
		if err != nil {
			return nil, err
		}
		value = v
	}

	s.entries = append(s.entries, entry{scope: scope, value: value})
	return value, nil
}

// Release pops and runs the exit handler for the most recently entered
// scope only, without touching the rest of the stack, so an inner scope
// can close before the outer transaction proceeds. (internal/pipeline
// gives its kpartx/chroot step its own short-lived Stack instead.)
func (s *Stack) Release(cause error) error {
	if len(s.entries) == 0 {
		return nil
	}

	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return runExit(s.ctx, e, cause)
}

// Commit runs every remaining scope's commit handler, innermost first,
// matching how nested context managers exit. Handler errors are
// collected and the first one is returned, but every handler still runs.
func (s *Stack) Commit() error {
	var first error
	for i := len(s.entries) - 1; i >= 0; i-- {
		if err := runExit(s.ctx, s.entries[i], nil); err != nil && first == nil {
			first = err
		}
	}
	s.entries = nil
	return first
}

// Rollback runs every remaining scope's rollback handler, innermost first,
// passing cause through so handlers can log or condition on it. Handler
// failures are logged and never replace cause -- the original failure is
// what the caller should propagate, exactly as spec.md requires.
func (s *Stack) Rollback(cause error) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if err := runExit(s.ctx, s.entries[i], cause); err != nil {
			cowlog.Errorf("txn: rollback of scope %q failed: %v (original failure: %v)", s.entries[i].scope.Name, err, cause)
		}
	}
	s.entries = nil
}

func runExit(ctx context.Context, e entry, cause error) error {
	scope := e.scope
	if cause == nil {
		if scope.Commit != nil {
			return scope.Commit(ctx, e.value)
		}
		if scope.Final != nil {
			return scope.Final(ctx, e.value, nil)
		}
		return nil
	}

	if scope.Rollback != nil {
		return scope.Rollback(ctx, e.value, cause)
	}
	if scope.Final != nil {
		return scope.Final(ctx, e.value, cause)
	}
	return nil
}

// Run is a convenience wrapper for the common "acquire scopes, run body,
// commit-or-rollback" shape: it pushes nothing itself, it just commits on
// nil and rolls back (logging, then re-raising) on error, so callers don't
// have to repeat the commit/rollback dispatch at every call site.
func Run(s *Stack, body func() error) error {
	err := body()
	if err != nil {
		s.Rollback(err)
		return err
	}
	return s.Commit()
}
