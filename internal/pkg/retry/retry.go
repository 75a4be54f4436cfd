package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultAttempts  = 3
	defaultDelay     = time.Second
	defaultMaxDelay  = 8 * time.Second
	defaultMaxJitter = 250 * time.Millisecond
	defaultTimeout   = 30 * time.Second
)

// RetryConfig is the backoff policy shared by every outbound call.
// Timeout bounds a single attempt, not the whole sequence.
type RetryConfig struct {
	Attempts  uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay     time.Duration `env:"DELAY" envDefault:"1s"`
	MaxDelay  time.Duration `env:"MAX_DELAY" envDefault:"8s"`
	MaxJitter time.Duration `env:"MAX_JITTER" envDefault:"250ms"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// ToRetryOptions converts the policy. Jitter is only added when MaxJitter is positive,
// RandomDelay panics on a zero bound.
func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	opts := []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
		retry.LastErrorOnly(true),
	}
	if rc.MaxJitter > 0 {
		return append(opts,
			retry.MaxJitter(rc.MaxJitter),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		)
	}
	return append(opts, retry.DelayType(retry.BackOffDelay))
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Attempts:  defaultAttempts,
		Delay:     defaultDelay,
		MaxDelay:  defaultMaxDelay,
		MaxJitter: defaultMaxJitter,
		Timeout:   defaultTimeout,
	}
}

// Do runs op until it succeeds, returns an error rejected by isRetryable,
// or the attempts are exhausted. Each attempt gets its own timeout derived from ctx.
// The last error is returned unchanged so callers can inspect it with errors.Is.
func Do[T any](ctx context.Context, rc RetryConfig, name string, isRetryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		attemptCtx := ctx
		if rc.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, rc.Timeout)
			defer cancel()
		}
		return op(attemptCtx)
	}

	opts := append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			// The caller gave up, further attempts are pointless
			if ctx.Err() != nil {
				return false
			}
			return isRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "retrying failed call",
				zap.String("call", name),
				zap.Uint("attempt", n+1),
				zap.Uint("max_attempts", rc.Attempts),
				zap.Error(err),
			)
		}),
	)

	return retry.DoWithData(attempt, opts...)
}
