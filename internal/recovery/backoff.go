package recovery

import (
	"context"
	"math"
	"time"
)

// ExponentialBackoff doubles the delay on each attempt up to MaxDelay.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// GetDelay calculates delay: InitialDelay * 2^attempt, capped at MaxDelay.
func (b ExponentialBackoff) GetDelay(attempt int) time.Duration {
	delay := float64(b.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(delay)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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
