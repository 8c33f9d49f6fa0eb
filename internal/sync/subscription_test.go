package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"taskdeck-cli/internal/access"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/realtime"
)

// scriptedChannel plays back one outcome per Subscribe call: "fail" emits a
// channel error immediately, "ok" stays subscribed until Unsubscribe.
type scriptedChannel struct {
	mu       gosync.Mutex
	outcomes []string
	idx      int
	cur      chan realtime.Status
	onEvent  func(model.ChangeEvent)
}

func (c *scriptedChannel) Subscribe(_ context.Context, _ string, onEvent func(model.ChangeEvent)) (<-chan realtime.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := "fail"
	if c.idx < len(c.outcomes) {
		outcome = c.outcomes[c.idx]
	}
	c.idx++

	ch := make(chan realtime.Status, 4)
	ch <- realtime.StatusConnecting
	if outcome == "fail" {
		ch <- realtime.StatusChannelError
		close(ch)
		return ch, nil
	}
	ch <- realtime.StatusSubscribed
	c.cur = ch
	c.onEvent = onEvent
	return ch, nil
}

func (c *scriptedChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		c.cur <- realtime.StatusClosed
		close(c.cur)
		c.cur = nil
	}
	return nil
}

func (c *scriptedChannel) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx
}

func (c *scriptedChannel) emit(ev model.ChangeEvent) {
	c.mu.Lock()
	onEvent := c.onEvent
	c.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}

// fastConfig keeps the state machine observable without real-time waits.
func fastConfig() Config {
	return Config{
		Topic:            "tasks",
		PollInterval:     time.Hour, // polling out of the way
		BaseDelay:        time.Millisecond,
		MaxDelay:         4 * time.Millisecond,
		MaxAttempts:      2,
		MinRetryInterval: time.Millisecond,
	}
}

func newSubscribedEngine(t *testing.T, cfg Config, ch realtime.Channel, grants map[string]bool) *Engine {
	t.Helper()
	src := &grantSource{grants: grants}
	resolver := access.NewResolver(src, "u1")
	resolver.Logf = func(string, ...any) {}
	e := New(cfg, &fakeBackend{}, resolver, ch, "u1")
	e.Logf = func(string, ...any) {}
	t.Cleanup(e.Close)
	return e
}

// Scenario: two channel errors, then a clean subscribe. The manager retries
// twice and ends subscribed.
func TestReconnectAfterFailuresEndsSubscribed(t *testing.T) {
	ch := &scriptedChannel{outcomes: []string{"fail", "fail", "ok"}}
	e := newSubscribedEngine(t, fastConfig(), ch, map[string]bool{"p1": true})

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return e.IsSubscribed() })

	if got := ch.attempts(); got != 3 {
		t.Fatalf("expected 3 subscribe attempts, got %d", got)
	}

	// Live events flow into the views once subscribed.
	ch.emit(model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t1", "p1", "u1"))})
	waitFor(t, func() bool { return len(todayIDs(e)) == 1 })
}

func TestGivesUpAfterMaxAttemptsAndParksInPolling(t *testing.T) {
	ch := &scriptedChannel{outcomes: []string{"fail", "fail", "fail"}}
	e := newSubscribedEngine(t, fastConfig(), ch, nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return e.State() == StatePolling })

	if e.IsSubscribed() {
		t.Fatalf("parked engine must report isSubscribed=false")
	}
	// Initial attempt + MaxAttempts retries, nothing further.
	if got := ch.attempts(); got != 3 {
		t.Fatalf("expected 3 attempts total, got %d", got)
	}
}

func TestBackoffDelaysAreNonDecreasingAndCapped(t *testing.T) {
	base := 5 * time.Second
	cap := 30 * time.Second

	var prev time.Duration
	for attempt := 0; attempt < 8; attempt++ {
		d := backoffDelay(attempt, base, cap)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > cap {
			t.Fatalf("delay exceeds cap at attempt %d: %v", attempt, d)
		}
		prev = d
	}
	if got := backoffDelay(0, base, cap); got != 5*time.Second {
		t.Fatalf("attempt 0: got %v", got)
	}
	if got := backoffDelay(1, base, cap); got != 10*time.Second {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := backoffDelay(10, base, cap); got != cap {
		t.Fatalf("attempt 10: got %v", got)
	}
}

func TestPollingRunsWhileChannelIsDown(t *testing.T) {
	ch := &scriptedChannel{outcomes: []string{"fail", "fail", "fail"}}
	cfg := fastConfig()
	cfg.PollInterval = 5 * time.Millisecond

	src := &grantSource{grants: nil}
	resolver := access.NewResolver(src, "u1")
	resolver.Logf = func(string, ...any) {}
	b := &fakeBackend{tasks: []model.Task{task("t1", "p1", "u1")}, projects: []model.Project{{ID: "p1"}}}
	e := New(cfg, b, resolver, ch, "u1")
	e.Logf = func(string, ...any) {}
	t.Cleanup(e.Close)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return e.State() == StatePolling })

	// Polling keeps reloading after the channel gave up: the initial load
	// plus at least one tick.
	waitFor(t, func() bool { return b.calls() >= 2 })
	if ids := todayIDs(e); len(ids) != 1 {
		t.Fatalf("polling should have loaded the view: %v", ids)
	}
}

func TestCloseStopsSubscriptionAndLateEventsNoOp(t *testing.T) {
	ch := &scriptedChannel{outcomes: []string{"ok"}}
	e := newSubscribedEngine(t, fastConfig(), ch, map[string]bool{"p1": true})

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return e.IsSubscribed() })

	e.Close()

	// A callback that fires after teardown must not mutate state.
	ch.emit(model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t9", "p1", "u1"))})
	if ids := todayIDs(e); len(ids) != 0 {
		t.Fatalf("event after close mutated state: %v", ids)
	}
}

func TestStartIsGuardedAgainstReentry(t *testing.T) {
	ch := &scriptedChannel{outcomes: []string{"ok"}}
	e := newSubscribedEngine(t, fastConfig(), ch, nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(context.Background()); err == nil {
		t.Fatalf("second start should be rejected")
	}
}
