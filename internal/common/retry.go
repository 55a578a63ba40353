package common

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is a bounded exponential backoff: Tries attempts in total,
// waiting Initial, Initial*Multiplier, ... between them.
type RetryPolicy struct {
	Tries      int
	Initial    time.Duration
	Multiplier float64
}

// Retry runs op until it succeeds, returns a backoff.Permanent error, the
// attempts are used up or ctx is done. onRetry, if set, sees every failure
// that will be retried.
func Retry(ctx context.Context, p RetryPolicy, op func() error, onRetry func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0

	retries := p.Tries - 1
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
	if onRetry == nil {
		return backoff.Retry(op, bo)
	}
	return backoff.RetryNotify(op, bo, onRetry)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
