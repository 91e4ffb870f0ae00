package client

import (
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/packetd/internal/testutil/testlog"
)

func TestBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2.0, MaxDelay: time.Second}
	cases := map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		5: time.Second,
	}
	for attempt, want := range cases {
		if got := b.Delay(attempt, nil); got != want {
			t.Fatalf("attempt %d got=%v want=%v", attempt, got, want)
		}
	}
}

func TestBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	b := DefaultBackoff()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		got := b.Delay(1, rng)
		if got < 50*time.Millisecond || got >= 150*time.Millisecond {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
}
