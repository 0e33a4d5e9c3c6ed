package waitctl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

func newTestController(cfg Config) (*Controller, *[]time.Duration) {
	c := New(cfg, nil)
	slept := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	c.jitter = func() float64 { return 0 }
	return c, slept
}

func TestDoFloodWaitWithinBudgetRetries(t *testing.T) {
	c, slept := newTestController(Config{WaitBudget: 60 * time.Second, MaxAttempts: 3})

	calls := 0
	err := c.Do(context.Background(), "history", func(context.Context) error {
		calls++
		if calls == 1 {
			return &telegram.FloodWaitError{RetryAfter: 5 * time.Second}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(*slept) != 1 || (*slept)[0] != 5*time.Second {
		t.Fatalf("slept = %v, want [5s]", *slept)
	}
}

func TestDoFloodWaitOverBudgetSurfacesWithoutSleeping(t *testing.T) {
	c, slept := newTestController(Config{WaitBudget: 60 * time.Second, MaxAttempts: 3})

	err := c.Do(context.Background(), "history", func(context.Context) error {
		return &telegram.FloodWaitError{RetryAfter: 61 * time.Second}
	})
	retryAfter, ok := AsRateLimited(err)
	if !ok {
		t.Fatalf("Do() error = %v, want RateLimitedError", err)
	}
	if retryAfter != 61*time.Second {
		t.Fatalf("RetryAfter = %s, want 61s", retryAfter)
	}
	if len(*slept) != 0 {
		t.Fatalf("slept = %v, want no sleeps", *slept)
	}
}

func TestDoFloodWaitAttemptsExhausted(t *testing.T) {
	c, _ := newTestController(Config{WaitBudget: 60 * time.Second, MaxAttempts: 2})

	calls := 0
	err := c.Do(context.Background(), "history", func(context.Context) error {
		calls++
		return &telegram.FloodWaitError{RetryAfter: time.Second}
	})
	if _, ok := AsRateLimited(err); !ok {
		t.Fatalf("Do() error = %v, want RateLimitedError", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoTransientBackoffDoubles(t *testing.T) {
	c, slept := newTestController(Config{MaxAttempts: 3, BaseBackoff: 100 * time.Millisecond})

	calls := 0
	err := c.Do(context.Background(), "resolve", func(context.Context) error {
		calls++
		return &telegram.UnavailableError{Op: "resolve", Err: fmt.Errorf("connection reset")}
	})
	if !telegram.IsRetryable(err) {
		t.Fatalf("Do() error = %v, want retryable UnavailableError", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(*slept) != len(want) {
		t.Fatalf("slept = %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Fatalf("slept[%d] = %s, want %s", i, (*slept)[i], want[i])
		}
	}
}

func TestDoNonRetryablePropagatesImmediately(t *testing.T) {
	c, slept := newTestController(Config{})

	calls := 0
	err := c.Do(context.Background(), "resolve", func(context.Context) error {
		calls++
		return telegram.ErrChannelPrivate
	})
	if !errors.Is(err, telegram.ErrChannelPrivate) {
		t.Fatalf("Do() error = %v, want ErrChannelPrivate", err)
	}
	if calls != 1 || len(*slept) != 0 {
		t.Fatalf("calls = %d slept = %v, want single call without sleeping", calls, *slept)
	}
}

func TestDoCancelledSleepReturnsContextError(t *testing.T) {
	c := New(Config{WaitBudget: time.Minute}, nil)
	c.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Do(ctx, "history", func(context.Context) error {
		return &telegram.FloodWaitError{RetryAfter: time.Second}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}
