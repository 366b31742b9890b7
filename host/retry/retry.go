/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config bounds how an operation is retried.
type Config struct {
	// Attempts is the total number of tries, including the first. Zero is
	// treated as one.
	Attempts int
	// BaseDelay is the wait after the first failure. It doubles after each
	// further failure.
	BaseDelay time.Duration
	// MaxDelay caps the doubled delay.
	MaxDelay time.Duration
	// MaxJitter is the upper bound of random delay added to each wait.
	MaxJitter time.Duration
}

// Validate checks that no field is negative.
func (c Config) Validate() error {
	switch {
	case c.Attempts < 0:
		return errors.New("attempts cannot be negative")
	case c.BaseDelay < 0:
		return errors.New("base delay cannot be negative")
	case c.MaxDelay < 0:
		return errors.New("max delay cannot be negative")
	case c.MaxJitter < 0:
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// Default is three attempts waiting one then two seconds.
func Default() Config {
	return Config{
		Attempts:  3,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
		MaxJitter: 250 * time.Millisecond,
	}
}

// Delay returns the wait after the given zero-based failed attempt, without
// jitter.
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay
	for range attempt {
		if (c.MaxDelay > 0 && d >= c.MaxDelay) || d > math.MaxInt64/2 {
			break
		}
		d *= 2
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

func (c Config) jitter() time.Duration {
	if c.MaxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, the
// attempts are used up, or ctx is done.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	attempts := max(cfg.Attempts, 1)

	var (
		result T
		err    error
	)
	for attempt := range attempts {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return result, err
		}
		if attempt == attempts-1 {
			break
		}

		wait := cfg.Delay(attempt) + cfg.jitter()
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("attempts", attempts).
			With("backoff", wait).
			With("error", err.Error()).
			Warn("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}
	return result, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, err)
}
