package service

import (
	"context"
	"time"
)

// simulatedNetwork models the round trip a real backend call would take.
// No server exists in this simulation; mutations only take effect after the
// artificial delay has elapsed. A zero latency makes the boundary immediate,
// which tests use to control ordering deterministically.
type simulatedNetwork struct {
	latency time.Duration
}

func (n simulatedNetwork) roundTrip(ctx context.Context) error {
	if n.latency <= 0 {
		return nil
	}
	t := time.NewTimer(n.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
