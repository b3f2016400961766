// Package retry runs an operation with bounded attempts, a per-attempt
// timeout and failure classification. The per-attempt timeout cancels the
// wait, not the work: an operation whose context expires may still complete
// on the far side, so retried operations must be idempotent.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Class tells the driver whether an attempt's failure is worth retrying.
type Class int

const (
	// ClassTransient failures (network, timeout, 5xx) are retried while
	// attempts remain.
	ClassTransient Class = iota
	// ClassPermanent failures (validation, expired auth) return
	// immediately with no further attempts.
	ClassPermanent
)

// Classifier decides the Class of an attempt error.
type Classifier func(error) Class

// Backoff selects the delay growth between attempts.
type Backoff int

const (
	BackoffLinear Backoff = iota
	BackoffExponential
)

// Policy configures the driver.
type Policy struct {
	// MaxAttempts is the total number of attempts, not the number of
	// retries after the first. Zero or negative means one attempt.
	MaxAttempts int
	// AttemptTimeout bounds each attempt via a derived context. Zero
	// means no per-attempt deadline.
	AttemptTimeout time.Duration
	// BaseDelay seeds the backoff between attempts.
	BaseDelay time.Duration
	Backoff   Backoff
	// Classify decides whether a failure retries. Nil uses
	// DefaultClassifier.
	Classify Classifier
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying regardless of the classifier.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultClassifier treats deadline expiry and network timeouts as
// transient, Permanent-wrapped errors as permanent, and everything else as
// transient.
func DefaultClassifier(err error) Class {
	var perm *permanentError
	if errors.As(err, &perm) {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	return ClassTransient
}

// Do runs op under the policy and returns its first success or the error
// that stopped the driver: a permanent failure as soon as it is seen, the
// last transient failure once attempts are exhausted, or the parent
// context's error if it is cancelled between attempts.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), p Policy) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		result, err := op(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if classify(err) == ClassPermanent {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay(p, attempt)):
		}
	}
	return zero, lastErr
}

// delay computes the pause after the given 1-based attempt number.
func delay(p Policy, attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	switch p.Backoff {
	case BackoffExponential:
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	default:
		return time.Duration(attempt) * base
	}
}
