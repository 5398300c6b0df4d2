package transport

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff controls DialRetry.
type Backoff struct {
	// Attempts is the total number of dials. Values below one mean one.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

func DefaultBackoff(attempts int) Backoff {
	return Backoff{
		Attempts:     attempts,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay returns the wait before retry attempt n (1-based).
func (b Backoff) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return b.InitialDelay
	}
	if b.InitialDelay <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// DialRetry dials cfg up to b.Attempts times, waiting b.Delay between
// failures. Configuration errors are not retried.
func DialRetry(ctx context.Context, cfg StreamConfig, b Backoff) (*Conn, error) {
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempts := max(b.Attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := Dial(ctx, cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(b.Delay(attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
