// Package drain waits, with a ceiling, for a condition to become true.
package drain

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Until polls cond every interval until it returns true, the timeout
// elapses, or ctx is done. It reports whether cond was satisfied. cond is
// checked once before the first wait and once more when giving up, so the
// total wait never exceeds timeout plus one interval.
func Until(ctx context.Context, clock clockwork.Clock, interval, timeout time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	deadline := clock.NewTimer(timeout)
	defer deadline.Stop()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return cond()
		case <-deadline.Chan():
			return cond()
		case <-ticker.Chan():
			if cond() {
				return true
			}
		}
	}
}
