// Package poll provides a bounded fixed-interval polling loop for
// asynchronous provider jobs.
package poll

import (
	"context"
	"errors"
	"time"
)

var ErrAttemptsExhausted = errors.New("poll: attempts exhausted")

// SleepFunc waits for d or until ctx is done. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

func (c Config) normalize() Config {
	out := c
	if out.Interval <= 0 {
		out.Interval = 10 * time.Second
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 30
	}
	if out.Sleep == nil {
		out.Sleep = defaultSleep
	}
	return out
}

// CheckFunc inspects the job once. done=true stops the loop with value;
// a non-nil error aborts immediately.
type CheckFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// Until runs check every Interval up to MaxAttempts times. The first check
// runs immediately; the loop never sleeps after the final attempt.
func Until[T any](ctx context.Context, cfg Config, check CheckFunc[T]) (T, error) {
	var zero T
	cfg = cfg.normalize()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return zero, err
		}
	}
	return zero, ErrAttemptsExhausted
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
