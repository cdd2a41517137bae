// Package retry provides bounded exponential backoff with jitter for the
// network-calling components.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrAttemptsExhausted wraps the last failure after every attempt failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy defines retry behavior. The delay before attempt n+1 is
// InitialDelay * Multiplier^(n-1), capped at MaxDelay, plus uniform random
// jitter in [0, JitterFrac * delay).
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFrac   float64

	// Sleep is called to wait between attempts. Defaults to time.Sleep;
	// tests inject a recorder.
	Sleep func(time.Duration)

	// rand source for jitter; defaults to the global source.
	randFloat func() float64
}

// DefaultPolicy mirrors the provider-facing defaults: 4 attempts, 2s base
// doubling up to 60s, half a delay of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFrac:   0.5,
	}
}

// Delay returns the backoff delay to wait after the given 1-based attempt
// failed, without jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
	}

	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	return time.Duration(delay)
}

// Do runs op until it succeeds, the attempts are exhausted or the context
// is canceled. Each failure before the last is followed by a jittered
// backoff sleep.
func (p Policy) Do(ctx context.Context, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	randFloat := p.randFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}

	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.JitterFrac > 0 && delay > 0 {
			delay += time.Duration(randFloat() * p.JitterFrac * float64(delay))
		}

		if delay > 0 {
			sleep(delay)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, p.MaxAttempts, lastErr)
}
