package wasp

import (
	"context"
	"time"
)

// Poll evaluates predicate until it reports done, returns an error, the
// timeout elapses or ctx ends. predicate is always evaluated at least once.
// Between evaluations Poll sleeps for interval (a zero interval suits
// predicates that block on their own, such as a link receive).
//
// Expiry and cancellation both yield a *TimeoutError; the caller fills in
// Stage, State and Waiting.
func Poll(ctx context.Context, interval, timeout time.Duration, predicate func() (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return &TimeoutError{Timeout: timeout, Err: err}
		}

		done, err := predicate()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Timeout: timeout}
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &TimeoutError{Timeout: timeout, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
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
