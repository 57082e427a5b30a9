package retry

import (
	"context"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the delay for the given zero-based attempt index.
	NextDelay(attempt int) time.Duration
}

// Schedule is a fixed backoff schedule. Once the attempt index runs past the
// end of the schedule the last delay is reused indefinitely.
type Schedule struct {
	Delays []time.Duration
}

// DefaultSchedule returns the escalating wait schedule applied between
// traversal attempts after rate-limit style failures.
func DefaultSchedule() Schedule {
	return Schedule{Delays: []time.Duration{
		60 * time.Second,
		120 * time.Second,
		300 * time.Second,
		600 * time.Second,
		1200 * time.Second,
	}}
}

// NextDelay returns the delay for the given attempt index, clamped to the
// last entry of the schedule.
func (s Schedule) NextDelay(attempt int) time.Duration {
	if len(s.Delays) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(s.Delays) {
		attempt = len(s.Delays) - 1
	}
	return s.Delays[attempt]
}

// Exhausted reports whether the attempt index has run past the end of the
// schedule. This latches: the index only ever grows within a run.
func (s Schedule) Exhausted(attempt int) bool {
	return attempt >= len(s.Delays)
}

// Constant is a fixed-delay backoff, mainly useful in tests.
type Constant struct {
	Delay time.Duration
}

func (c Constant) NextDelay(int) time.Duration { return c.Delay }

// Wait sleeps for the given delay or returns early with the context error if
// the context is cancelled first.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
