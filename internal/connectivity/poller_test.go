package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestRunBacksOffWhileOffline(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	prober := &fakeProber{reading: Reading{Connected: false}}
	m := NewMonitor(Options{Prober: prober, Clock: fc, Interval: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	waitFor := func(probes int32) {
		t.Helper()
		require.Eventually(t, func() bool {
			return prober.calls.Load() == probes && fc.Pending() == 1
		}, time.Second, time.Millisecond)
	}

	waitFor(1)
	assert.True(t, m.IsOffline())

	fc.Advance(5 * time.Second)
	waitFor(2)

	fc.Advance(9 * time.Second)
	assert.Equal(t, int32(2), prober.calls.Load())
	fc.Advance(time.Second)
	waitFor(3)

	prober.set(Reading{Connected: true, Reachable: Reachable})
	fc.Advance(20 * time.Second)
	waitFor(4)
	assert.False(t, m.IsOffline())

	fc.Advance(5 * time.Second)
	waitFor(5)

	cancel()
	<-done
}
