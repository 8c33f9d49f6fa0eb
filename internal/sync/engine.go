// Package sync implements the client-side task synchronization engine: two
// derived task views kept consistent against a push-change channel, a polling
// backstop, and locally-applied optimistic mutations.
package sync

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"taskdeck-cli/internal/access"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/realtime"
)

// Backend is the persistence collaborator. Failures are generic: the engine
// treats any error as "no data this round" and keeps prior state.
type Backend interface {
	AssignedTasks(ctx context.Context, userID string) ([]model.Task, error)
	AccessibleProjects(ctx context.Context, userID string) ([]model.Project, error)
	ProjectTasks(ctx context.Context, projectID string) ([]model.Task, error)
}

// Config carries the engine's timing knobs. Zero values take defaults.
type Config struct {
	Topic            string        // push-channel topic (default "tasks")
	PollInterval     time.Duration // full-reload period (default 120s)
	BaseDelay        time.Duration // reconnect backoff base (default 5s)
	MaxDelay         time.Duration // reconnect backoff cap (default 30s)
	MaxAttempts      int           // reconnect attempts before giving up (default 2)
	MinRetryInterval time.Duration // floor between a failure and the next attempt (default 5s)
}

func DefaultConfig() Config {
	cfg := Config{
		Topic:            "tasks",
		PollInterval:     120 * time.Second,
		BaseDelay:        5 * time.Second,
		MaxDelay:         30 * time.Second,
		MaxAttempts:      2,
		MinRetryInterval: 5 * time.Second,
	}
	// Override for demos and tests. Mirrors the TASKDECK_* env convention.
	if s := strings.TrimSpace(os.Getenv("TASKDECK_POLL_SECONDS")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	return cfg
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Topic) == "" {
		c.Topic = d.Topic
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MinRetryInterval <= 0 {
		c.MinRetryInterval = d.MinRetryInterval
	}
	return c
}

// Engine owns the two task views and every sanctioned mutation path into
// them: optimistic local writes, reconciled channel events, and full
// refreshes. Nothing else may write view state.
type Engine struct {
	cfg      Config
	backend  Backend
	resolver *access.Resolver
	channel  realtime.Channel // nil: polling only
	userID   string

	// Logf is the engine's log sink; defaults to the standard logger.
	Logf func(format string, args ...any)

	mu gosync.Mutex

	// active is flipped false exactly once, at Close. Every callback that
	// resolves asynchronously re-checks it before touching shared state.
	active  bool
	started bool

	today        todayView
	projectNames map[string]string
	projects     map[string][]model.Task

	loadedOnce     bool
	todayLoading   bool
	refreshing     bool
	projLoading    map[string]bool
	projRefreshing map[string]bool

	subState     SubscriptionState
	attempts     int
	lastFailure  time.Time
	connecting   bool
	cancel       context.CancelFunc
	runCtx       context.Context
	wg           gosync.WaitGroup
}

// New builds an engine for one user session. channel may be nil, in which
// case the engine runs on polling alone.
func New(cfg Config, backend Backend, resolver *access.Resolver, channel realtime.Channel, userID string) *Engine {
	return &Engine{
		cfg:            cfg.withDefaults(),
		backend:        backend,
		resolver:       resolver,
		channel:        channel,
		userID:         model.NormalizeID(userID),
		Logf:           log.Printf,
		active:         true,
		today:          todayView{},
		projectNames:   map[string]string{},
		projects:       map[string][]model.Task{},
		projLoading:    map[string]bool{},
		projRefreshing: map[string]bool{},
		subState:       StateIdle,
	}
}

// Start begins the session: one initial full reload, the polling loop, and
// (when a channel is configured) the subscription lifecycle.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return errors.New("engine is closed")
	}
	if e.started {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.started = true
	e.runCtx, e.cancel = context.WithCancel(ctx)
	runCtx := e.runCtx
	e.mu.Unlock()

	// Initial load is best-effort: a failure leaves empty views for polling
	// to repair.
	if err := e.RefreshTodayTasks(runCtx); err != nil {
		e.Logf("sync: initial refresh failed: %v", err)
	}

	e.wg.Add(1)
	go e.runPolling(runCtx)

	if e.channel != nil {
		e.wg.Add(1)
		go e.runSubscription(runCtx)
	}
	return nil
}

// Close tears the session down: flips the active flag, cancels the polling
// and backoff timers, and closes the channel. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if e.channel != nil {
		_ = e.channel.Unsubscribe()
	}
	e.wg.Wait()
}

func (e *Engine) isActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// RefreshTodayTasks performs a full reload of the today view and the
// accessible-project cache. A refresh already in flight coalesces: the new
// call returns immediately rather than queueing.
func (e *Engine) RefreshTodayTasks(ctx context.Context) error {
	e.mu.Lock()
	if !e.active || e.refreshing {
		e.mu.Unlock()
		return nil
	}
	e.refreshing = true
	// The loading flag only matters before anything has ever loaded;
	// background refreshes must not flicker a populated view.
	if !e.loadedOnce && len(e.today) == 0 {
		e.todayLoading = true
	}
	e.mu.Unlock()

	tasks, terr := e.backend.AssignedTasks(ctx, e.userID)
	var projects []model.Project
	var perr error
	if terr == nil {
		projects, perr = e.backend.AccessibleProjects(ctx, e.userID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshing = false
	e.todayLoading = false
	if !e.active {
		return nil
	}
	if terr != nil || perr != nil {
		err := terr
		if err == nil {
			err = perr
		}
		e.Logf("sync: today refresh failed, keeping stale view: %v", err)
		return err
	}

	accessible := make(map[string]bool, len(projects))
	ids := make([]string, 0, len(projects))
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		accessible[p.ID] = true
		ids = append(ids, p.ID)
		names[p.ID] = p.Name
	}
	e.resolver.Prime(ids)
	e.projectNames = names

	next := todayView{}
	for _, t := range tasks {
		if !accessible[t.ProjectID] {
			continue
		}
		if !t.AssignedToUser(e.userID) {
			continue
		}
		next[t.ID] = model.TaskWithProject{Task: t, ProjectName: names[t.ProjectID]}
	}
	e.today = next
	e.loadedOnce = true
	return nil
}

// ForceRefreshTodayTasks resets the has-loaded marker and refreshes
// unconditionally, so the loading flag shows again if the view is empty.
func (e *Engine) ForceRefreshTodayTasks(ctx context.Context) error {
	e.mu.Lock()
	e.loadedOnce = false
	e.mu.Unlock()
	return e.RefreshTodayTasks(ctx)
}

// RefreshProjectTasks reloads one project's index, merging with optimistic
// entries: a fresh row wins per id, and local-only entries the server has
// not seen yet are preserved.
func (e *Engine) RefreshProjectTasks(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil
	}
	if !e.resolver.HasAccess(ctx, projectID) {
		return nil
	}

	e.mu.Lock()
	if !e.active || e.projRefreshing[projectID] {
		e.mu.Unlock()
		return nil
	}
	e.projRefreshing[projectID] = true
	if len(e.projects[projectID]) == 0 {
		e.projLoading[projectID] = true
	}
	e.mu.Unlock()

	fresh, err := e.backend.ProjectTasks(ctx, projectID)

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.projRefreshing, projectID)
	delete(e.projLoading, projectID)
	if !e.active {
		return nil
	}
	if err != nil {
		e.Logf("sync: project refresh failed for %s, keeping stale index: %v", projectID, err)
		return err
	}

	seen := make(map[string]bool, len(fresh))
	merged := make([]model.Task, 0, len(fresh))
	for _, t := range fresh {
		merged = append(merged, t)
		seen[t.ID] = true
	}
	// Optimistic entries the server hasn't returned yet stay, in order.
	for _, t := range e.projects[projectID] {
		if !seen[t.ID] {
			merged = append(merged, t)
		}
	}
	e.projects[projectID] = merged
	return nil
}

// TodayTasks returns the today view in stable order.
func (e *Engine) TodayTasks() []model.TaskWithProject {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today.sorted()
}

// ProjectTasks returns one project's index in its maintained order.
func (e *Engine) ProjectTasks(projectID string) []model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Task, len(e.projects[projectID]))
	copy(out, e.projects[projectID])
	return out
}

func (e *Engine) TodayLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.todayLoading
}

func (e *Engine) ProjectLoading(projectID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projLoading[projectID]
}

func (e *Engine) IsSubscribed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subState == StateSubscribed
}

func (e *Engine) State() SubscriptionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subState
}

// Snapshot returns the UI-facing state in one locked read.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Today:        e.today.sorted(),
		State:        e.subState,
		IsSubscribed: e.subState == StateSubscribed,
		TodayLoading: e.todayLoading,
		LoadedOnce:   e.loadedOnce,
	}
}

func (e *Engine) projectName(projectID string) string {
	return e.projectNames[projectID]
}
