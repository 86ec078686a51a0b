// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Policy bounds a retry loop. MaxAttempts counts the first try.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// Default is used when a zero Policy is passed.
var Default = Policy{MaxAttempts: 5, Initial: 25 * time.Millisecond, Max: time.Second}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = Default.MaxAttempts
	}
	if p.Initial <= 0 {
		p.Initial = Default.Initial
	}
	if p.Max < p.Initial {
		p.Max = p.Initial * 16
	}
	return p
}

// Stop marks err as final; Do returns it without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls op until it returns nil, returns an error wrapped by Stop, the
// attempt budget runs out, or ctx is done. It returns the last error seen
// (unwrapped from Stop) or ctx.Err().
//
// attempt starts at 1.
func Do(ctx context.Context, p Policy, log *zap.Logger, name string, op func(attempt int) error) error {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.MaxInterval = p.Max
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(attempt)
	}, b, func(err error, wait time.Duration) {
		if log != nil {
			log.Warn("retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err))
		}
	})
}
