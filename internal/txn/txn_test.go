package txn

import (
	"context"
	"errors"
	"testing"
)

func TestRollbackRunsInReverseOrder(t *testing.T) {
	var order []string
	s := New(context.Background())

	for _, name := range []string{"a", "b", "c"} {
		name := name
		_, err := s.Enter(Scope{
			Name: name,
			Prepare: func(ctx context.Context) (interface{}, error) {
				return name, nil
			},
			Rollback: func(ctx context.Context, value interface{}, cause error) error {
				order = append(order, value.(string))
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Enter(%s): %v", name, err)
		}
	}

	s.Rollback(errors.New("boom"))

	want := []string{"c", "b", "a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRollbackHandlerFailureDoesNotMaskOriginal(t *testing.T) {
	s := New(context.Background())
	_, err := s.Enter(Scope{
		Name: "flaky",
		Rollback: func(ctx context.Context, value interface{}, cause error) error {
			return errors.New("rollback itself failed")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	original := errors.New("original failure")
	s.Rollback(original) // must not panic or otherwise surface the handler error
}

func TestCommitRunsFinalWithNilCause(t *testing.T) {
	s := New(context.Background())
	var sawCause error
	sawCauseSet := false

	_, err := s.Enter(Scope{
		Name: "final-scope",
		Final: func(ctx context.Context, value interface{}, cause error) error {
			sawCause = cause
			sawCauseSet = true
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !sawCauseSet {
		t.Fatal("Final handler never ran")
	}
	if sawCause != nil {
		t.Errorf("cause = %v, want nil on commit", sawCause)
	}
}

func TestFinalMutuallyExclusiveWithCommit(t *testing.T) {
	s := New(context.Background())
	_, err := s.Enter(Scope{
		Name:   "bad",
		Commit: func(ctx context.Context, value interface{}) error { return nil },
		Final:  func(ctx context.Context, value interface{}, cause error) error { return nil },
	})
	if err == nil {
		t.Fatal("expected validation error for Final+Commit")
	}
}

func TestReleasePopsOnlyInnermost(t *testing.T) {
	s := New(context.Background())
	var released []string

	for _, name := range []string{"outer", "inner"} {
		name := name
		_, _ = s.Enter(Scope{
			Name: name,
			Final: func(ctx context.Context, value interface{}, cause error) error {
				released = append(released, name)
				return nil
			},
		})
	}

	if err := s.Release(nil); err != nil {
		t.Fatal(err)
	}
	if len(released) != 1 || released[0] != "inner" {
		t.Fatalf("released = %v, want [inner]", released)
	}

	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if len(released) != 2 || released[1] != "outer" {
		t.Fatalf("released = %v, want [inner outer]", released)
	}
}

func TestRunCommitsOnSuccessAndRollsBackOnError(t *testing.T) {
	s := New(context.Background())
	var committed, rolledBack bool

	_, _ = s.Enter(Scope{
		Name:     "x",
		Commit:   func(ctx context.Context, value interface{}) error { committed = true; return nil },
		Rollback: func(ctx context.Context, value interface{}, cause error) error { rolledBack = true; return nil },
	})

	if err := Run(s, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !committed || rolledBack {
		t.Fatalf("committed=%v rolledBack=%v, want true,false", committed, rolledBack)
	}

	s = New(context.Background())
	committed, rolledBack = false, false
	_, _ = s.Enter(Scope{
		Name:     "y",
		Commit:   func(ctx context.Context, value interface{}) error { committed = true; return nil },
		Rollback: func(ctx context.Context, value interface{}, cause error) error { rolledBack = true; return nil },
	})

	boom := errors.New("boom")
	if err := Run(s, func() error { return boom }); err != boom {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if committed || !rolledBack {
		t.Fatalf("committed=%v rolledBack=%v, want false,true", committed, rolledBack)
	}
}
