// Package retry runs remote calls with exponential backoff.
//
// Only returned errors trigger a retry. A call that returns normally is done,
// whatever its payload says; callers inspect payload-level errors themselves.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
	DefaultMultiplier   = 2.0
)

// Policy describes how many times a call is attempted and how long to wait
// between attempts. Attempt 1 runs immediately, attempt n+1 waits
// InitialDelay * Multiplier^(n-1). There is no jitter.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64

	// Timer defaults to a real timer.
	Timer backoff.Timer
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// WithMaxAttempts returns a copy of p with a different attempt ceiling.
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialDelay),
		backoff.WithMultiplier(multiplier),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.attempts()-1)), ctx)
}

// ExhaustedError is returned once every attempt failed. It unwraps to the
// last failure.
type ExhaustedError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds or the policy is exhausted. Attempts are
// strictly sequential. A context that ends during a wait stops the retries.
func Do[T any](ctx context.Context, p Policy, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.attempts()
	log := logrus.WithField("call", label)

	attempt := 0
	var lastErr error
	operation := func() (T, error) {
		attempt++
		log.Debugf("attempt %d/%d", attempt, maxAttempts)
		result, err := fn(ctx)
		if err != nil {
			lastErr = err
			log.WithError(err).Warnf("attempt %d failed", attempt)
		}
		return result, err
	}
	notify := func(_ error, next time.Duration) {
		log.Infof("retrying in %s", next)
	}

	var (
		result T
		err    error
	)
	if p.Timer != nil {
		result, err = backoff.RetryNotifyWithTimerAndData(operation, p.backOff(ctx), notify, p.Timer)
	} else {
		result, err = backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
	}
	if err == nil {
		return result, nil
	}

	// The library reports the context error alone when the context ends.
	if lastErr != nil && !errors.Is(err, lastErr) {
		err = errors.Join(lastErr, err)
	}
	log.WithError(err).Errorf("failed after %d attempts", attempt)
	return zero, &ExhaustedError{Label: label, Attempts: attempt, Err: err}
}
