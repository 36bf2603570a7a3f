package waitfor

import (
	"context"
	"testing"
	"time"
)

func TestForSucceedsImmediately(t *testing.T) {
	calls := 0
	err := For(context.Background(), "immediate", time.Second, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("err != nil: %v", err)
	}
	if calls != 1 {
		t.Errorf("pred should only run once, ran %d times", calls)
	}
}

func TestForTimesOut(t *testing.T) {
	start := time.Now()
	err := For(context.Background(), "never", 40*time.Millisecond, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
	if e, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T", err)
	} else {
		timeoutErr = e
	}
	if timeoutErr.Name != "never" {
		t.Errorf("Name = %q, want %q", timeoutErr.Name, "never")
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("returned before timeout elapsed: %v", elapsed)
	}
}

func TestForPropagatesPredicateError(t *testing.T) {
	err := For(context.Background(), "broken", time.Second, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, errCustom
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

var errCustom = &customErr{}

type customErr struct{}

func (*customErr) Error() string { return "custom" }
