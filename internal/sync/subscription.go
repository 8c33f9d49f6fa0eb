package sync

import (
	"context"
	"time"

	"taskdeck-cli/internal/realtime"
)

// runSubscription owns the push-channel lifecycle for the session:
//
//	Idle -> Connecting -> {Subscribed | Reconnecting} -> Polling
//
// One goroutine drives the whole machine, so a connection attempt can never
// overlap another; the connecting flag additionally guards against misuse.
// After cfg.MaxAttempts consecutive failures the machine parks in
// StatePolling and the periodic reload carries the session alone.
func (e *Engine) runSubscription(ctx context.Context) {
	defer e.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		if !e.active || e.connecting {
			e.mu.Unlock()
			return
		}
		// A failed attempt must age at least MinRetryInterval before the
		// next one starts, whatever the backoff said.
		var wait time.Duration
		if !e.lastFailure.IsZero() {
			if since := time.Since(e.lastFailure); since < e.cfg.MinRetryInterval {
				wait = e.cfg.MinRetryInterval - since
			}
		}
		e.mu.Unlock()

		if wait > 0 && !sleepCtx(ctx, wait) {
			return
		}

		e.mu.Lock()
		e.connecting = true
		e.subState = StateConnecting
		e.mu.Unlock()

		statusCh, err := e.channel.Subscribe(ctx, e.cfg.Topic, e.HandleChange)
		if err != nil {
			e.Logf("sync: subscribe failed: %v", err)
			e.clearConnecting()
			if !e.noteFailureAndBackOff(ctx) {
				return
			}
			continue
		}

		last := e.consumeStatuses(statusCh)
		e.clearConnecting()
		_ = e.channel.Unsubscribe()

		if ctx.Err() != nil || !e.isActive() {
			return
		}
		e.Logf("sync: channel ended (%s), scheduling reconnect", last)
		if !e.noteFailureAndBackOff(ctx) {
			return
		}
	}
}

// consumeStatuses drains one subscription's status stream and returns the
// terminal status (or "" if the stream just closed).
func (e *Engine) consumeStatuses(statusCh <-chan realtime.Status) realtime.Status {
	var last realtime.Status
	for st := range statusCh {
		last = st
		switch st {
		case realtime.StatusSubscribed:
			e.mu.Lock()
			if e.active {
				e.subState = StateSubscribed
				e.attempts = 0
			}
			e.mu.Unlock()
		case realtime.StatusConnecting:
			// Already reflected before subscribing.
		default:
			if st.Terminal() {
				return st
			}
		}
	}
	return last
}

// noteFailureAndBackOff records a failed attempt. It returns false when the
// attempt budget is spent: the machine parks in StatePolling and the caller
// stops. Otherwise it waits out the exponential backoff delay and returns
// whether the session is still live.
func (e *Engine) noteFailureAndBackOff(ctx context.Context) bool {
	e.mu.Lock()
	e.lastFailure = time.Now()
	if e.attempts >= e.cfg.MaxAttempts {
		e.subState = StatePolling
		e.mu.Unlock()
		e.Logf("sync: reconnect attempts exhausted, relying on polling")
		return false
	}
	e.attempts++
	attempt := e.attempts
	e.subState = StateReconnecting
	e.mu.Unlock()

	delay := backoffDelay(attempt-1, e.cfg.BaseDelay, e.cfg.MaxDelay)
	return sleepCtx(ctx, delay)
}

func (e *Engine) clearConnecting() {
	e.mu.Lock()
	e.connecting = false
	e.mu.Unlock()
}

// backoffDelay computes min(base * 2^attempt, max) for a zero-based attempt.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// sleepCtx waits for d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
