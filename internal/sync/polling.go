package sync

import (
	"context"
	"time"
)

// runPolling periodically reloads the today view for as long as the session
// is active. It runs independently of the subscription machine: the push
// transport makes no delivery guarantee, so the periodic full reload is the
// consistency backstop, not merely a fallback.
func (e *Engine) runPolling(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.isActive() {
				return
			}
			// RefreshTodayTasks skips itself when one is already in flight
			// and logs its own failures.
			_ = e.RefreshTodayTasks(ctx)
		}
	}
}
