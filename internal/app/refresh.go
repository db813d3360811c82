package app

import (
	"context"
	"time"
)

const defaultRefreshInterval = 60 * time.Second

// Refresher reloads data that changes without user action.
type Refresher interface {
	Refresh()
}

// StartRefresher launches a background goroutine that calls r.Refresh at a
// fixed cadence until ctx is cancelled. It returns immediately.
func StartRefresher(ctx context.Context, r Refresher, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Refresh()
			}
		}
	}()
}
