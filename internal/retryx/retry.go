// Package retryx retries calls to external APIs that failed with a
// transient error, using exponential backoff with a bounded attempt count.
package retryx

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/sethvargo/go-retry"
)

// Policy configures retries. Attempts counts the first call too, so
// Attempts=1 disables retrying.
type Policy struct {
	Attempts  uint64
	BaseDelay time.Duration
}

// DefaultPolicy is used when a client is built without an explicit policy.
var DefaultPolicy = Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond}

func (p Policy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultPolicy.BaseDelay
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(attempts-1, b)
}

// Do runs fn until it succeeds, fails with a non-transient error, the
// attempts are exhausted or ctx is done. Only errors matching
// common.ErrTransientRemote are retried; the last error is returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrTransientRemote) {
			return retry.RetryableError(err)
		}
		return err
	})
}
