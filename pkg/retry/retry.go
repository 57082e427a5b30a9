package retry

import (
	"context"
	"fmt"
	"time"

	"igarchive/pkg/logger"
)

// Operation is a function that may need to be attempted more than once.
type Operation func() error

// Config holds settings for Do.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff computes the delay between attempts.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// Logger receives retry warnings; nil disables them.
	Logger logger.Logger
}

// DefaultConfig matches the connection behavior of the underlying scraper
// library: three connection attempts with a short growing pause.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     Constant{Delay: time.Second},
		RetryIf:     func(error) bool { return true },
	}
}

// Do runs op until it succeeds, the attempt budget is spent, or the context
// is cancelled.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
					"attempt":      attempt + 1,
					"max_attempts": cfg.MaxAttempts,
					"error":        lastErr.Error(),
				})
			}
			if err := Wait(ctx, cfg.Backoff.NextDelay(attempt-1)); err != nil {
				return fmt.Errorf("retry cancelled: %w", err)
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
