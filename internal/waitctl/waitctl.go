// Package waitctl gates every provider call behind the rate-limit and retry
// discipline: provider-signalled waits are honored up to a configured budget,
// transient failures get bounded exponential backoff, and waits beyond budget
// surface immediately as a typed RateLimitedError so callers can hand the
// client a resumable cursor instead of blocking.
package waitctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

const (
	defaultWaitBudget  = 60 * time.Second
	defaultMaxAttempts = 3
	defaultBaseBackoff = 250 * time.Millisecond
	defaultJitterRatio = 0.1
)

type Config struct {
	WaitBudget  time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	JitterRatio float64
}

func (c Config) normalized() Config {
	if c.WaitBudget <= 0 {
		c.WaitBudget = defaultWaitBudget
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.JitterRatio <= 0 {
		c.JitterRatio = defaultJitterRatio
	}
	return c
}

// RateLimitedError reports a provider wait that exceeded the budget (or
// exhausted the attempt allowance). The caller decides how to resume.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// AsRateLimited extracts the retry-after duration from err, if present.
func AsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// Controller wraps provider calls. It is safe for concurrent use.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	// injectable for tests
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64 // uniform in [-1, 1)
}

func New(cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:    cfg.normalized(),
		logger: logger,
		sleep:  sleepCtx,
		jitter: func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Do runs fn, absorbing flood waits within budget and retrying transient
// failures with backoff, up to MaxAttempts calls total. Non-retryable errors
// propagate unchanged.
func (c *Controller) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if wait, ok := telegram.AsFloodWait(err); ok {
			if wait > c.cfg.WaitBudget {
				c.logger.Warn("flood_wait_over_budget", "op", op, "retry_after", wait.String(), "budget", c.cfg.WaitBudget.String())
				return &RateLimitedError{RetryAfter: wait}
			}
			if attempt >= c.cfg.MaxAttempts {
				c.logger.Warn("flood_wait_attempts_exhausted", "op", op, "retry_after", wait.String(), "attempts", attempt)
				return &RateLimitedError{RetryAfter: wait}
			}
			c.logger.Info("flood_wait_sleep", "op", op, "retry_after", wait.String(), "attempt", attempt)
			if serr := c.sleep(ctx, c.withJitter(wait)); serr != nil {
				return serr
			}
			continue
		}

		if telegram.IsRetryable(err) {
			if attempt >= c.cfg.MaxAttempts {
				c.logger.Warn("retry_attempts_exhausted", "op", op, "attempts", attempt, "error", err.Error())
				return err
			}
			backoff := c.withJitter(c.cfg.BaseBackoff << (attempt - 1))
			c.logger.Info("transient_retry", "op", op, "attempt", attempt, "backoff", backoff.String(), "error", err.Error())
			if serr := c.sleep(ctx, backoff); serr != nil {
				return serr
			}
			continue
		}

		return err
	}
}

func (c *Controller) withJitter(d time.Duration) time.Duration {
	out := d + time.Duration(float64(d)*c.cfg.JitterRatio*c.jitter())
	if out < 0 {
		return 0
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
