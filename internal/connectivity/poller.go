package connectivity

import (
	"context"
	"time"
)

const (
	defaultProbeInterval = 5 * time.Second
	maxBackoff           = 30 * time.Second
)

// Run probes at the configured interval until ctx is cancelled. While the
// device is offline the wait doubles per consecutive offline probe, capped at
// maxBackoff.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil {
		return
	}
	failures := 0
	for {
		state, err := m.CheckNow(ctx)
		if err != nil {
			return
		}
		if state.IsOffline() {
			failures++
		} else {
			failures = 0
		}

		wait := m.interval
		if failures > 0 {
			wait = calculateBackoff(failures-1, m.interval)
			m.log.Debug().Int("failures", failures).Dur("wait", wait).Msg("offline, backing off")
		}
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(wait):
		}
	}
}

// Start runs the probe loop on its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	go m.Run(ctx)
}

// calculateBackoff returns base doubled once per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff || d <= 0 {
			return maxBackoff
		}
	}
	return d
}
