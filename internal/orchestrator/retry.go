package orchestrator

import (
	"context"
	"errors"
	"time"

	"jobscrape/internal/errs"
)

// outcome tags why a detail-fetch attempt failed, for logging and for the
// retry loop's do-not-retry rule.
type outcome string

const (
	outcomeRetriableTimeout         outcome = "retriable_timeout"
	outcomeNonRetriableTargetClosed outcome = "non_retriable_target_closed"
	outcomeOther                    outcome = "other"
)

// classify maps an error from FetchDetail to a retry outcome. A nil error
// is never classified - callers only call this on failure.
func classify(err error) outcome {
	switch {
	case errors.Is(err, errs.ErrTargetClosed):
		return outcomeNonRetriableTargetClosed
	case errors.Is(err, errs.ErrNavigationTimeout):
		return outcomeRetriableTimeout
	default:
		return outcomeOther
	}
}

// detailRetryPolicy allows up to 3 attempts with exponential backoff
// (base 2s, multiplier 2: 2s, 4s) and skips retry on a target-closed
// signal.
type detailRetryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
}

func newDetailRetryPolicy() detailRetryPolicy {
	return detailRetryPolicy{maxAttempts: 3, initialBackoff: 2 * time.Second}
}

func (p detailRetryPolicy) backoff(attempt int) time.Duration {
	d := p.initialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

func (p detailRetryPolicy) sleep(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.backoff(attempt)):
		return nil
	}
}
