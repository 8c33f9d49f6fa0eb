package sync

import (
	"sort"

	"taskdeck-cli/internal/model"
)

// SubscriptionState is the push-channel lifecycle state.
type SubscriptionState string

const (
	StateIdle SubscriptionState = "idle"
	// StateConnecting: a subscribe attempt is in flight.
	StateConnecting SubscriptionState = "connecting"
	// StateSubscribed: live events are flowing.
	StateSubscribed SubscriptionState = "subscribed"
	// StateReconnecting: waiting out a backoff delay before the next attempt.
	StateReconnecting SubscriptionState = "reconnecting"
	// StatePolling: reconnect attempts are exhausted for this session; the
	// periodic full reload is the only update path.
	StatePolling SubscriptionState = "polling"
)

// Snapshot is the engine state handed to the UI layer in one piece.
type Snapshot struct {
	Today        []model.TaskWithProject
	State        SubscriptionState
	IsSubscribed bool
	TodayLoading bool
	LoadedOnce   bool
}

// todayView holds the tasks assigned to the current user, keyed by task id.
// Entries are never duplicated by id.
type todayView map[string]model.TaskWithProject

func (v todayView) sorted() []model.TaskWithProject {
	out := make([]model.TaskWithProject, 0, len(v))
	for _, t := range v {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// upsertByID replaces the task with the same id in place, or appends it.
// Returns the updated slice. Order of existing entries is preserved.
func upsertByID(tasks []model.Task, t model.Task) []model.Task {
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i] = t
			return tasks
		}
	}
	return append(tasks, t)
}

// patchByID replaces the task with the same id in place, without appending.
// Reports whether a replacement happened.
func patchByID(tasks []model.Task, t model.Task) bool {
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i] = t
			return true
		}
	}
	return false
}

func removeByID(tasks []model.Task, id string) []model.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return append(tasks[:i], tasks[i+1:]...)
		}
	}
	return tasks
}

func findByID(tasks []model.Task, id string) (model.Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return tasks[i], true
		}
	}
	return model.Task{}, false
}
