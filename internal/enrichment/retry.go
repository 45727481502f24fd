package enrichment

import (
	"context"
	"time"
)

// RetryPolicy is the enrichment transport's backoff policy: attempt+1
// multiplied by a fixed unit, with a bounded number of retries.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// NewDefaultRetryPolicy returns a two-retry policy on a 2s unit, enough
// for the single per-run batch call to ride out a transient failure.
func NewDefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialBackoff: 2 * time.Second}
}

// Sleep blocks for this attempt's backoff, or returns ctx.Err() if ctx ends
// first.
func (p RetryPolicy) Sleep(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt+1) * p.InitialBackoff
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}
