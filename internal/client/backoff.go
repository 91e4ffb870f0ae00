package client

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig shapes the delay between dial attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
		Jitter:       true,
	}
}

// Delay returns the wait before retry number attempt (1-based). With jitter
// the result lies in [0.5, 1.5) of the base delay; a nil rng pins it to 0.5.
func (b BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	base := float64(b.InitialDelay)
	if attempt > 1 {
		mult := math.Max(b.Multiplier, 1.0)
		base *= math.Pow(mult, float64(attempt-1))
	}
	if b.MaxDelay > 0 {
		base = math.Min(base, float64(b.MaxDelay))
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		base *= f
	}
	return time.Duration(base)
}
