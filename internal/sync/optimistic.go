package sync

import (
	"strings"

	"taskdeck-cli/internal/model"
)

// Optimistic mutations apply UI writes to the views immediately, before the
// server confirms them. They reuse the reconciler's classification rules, so
// the authoritative event that later arrives for the same mutation merges
// into the same entry instead of duplicating or diverging.

// TaskPatch is a partial optimistic update; nil fields are left untouched.
type TaskPatch struct {
	Title      *string
	Status     *model.TaskStatus
	AssignedTo *[]string
}

// AddTask inserts a task locally. Dedupes by id, so replaying the same add
// (or racing the authoritative insert) leaves one entry.
func (e *Engine) AddTask(t model.Task) {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.ProjectID) == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	if _, ok := findByID(e.projects[t.ProjectID], t.ID); ok {
		return
	}
	e.applyInsert(t)
}

// UpdateTask patches a locally-known task. The stored copy is the "before"
// side of the reassignment classification; unknown ids are ignored (there is
// nothing to patch, and the next refresh will carry the full row).
func (e *Engine) UpdateTask(id string, patch TaskPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}

	before, ok := e.findStored(id)
	if !ok {
		return
	}

	after := before
	if patch.Title != nil {
		after.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		after.AssignedTo = model.IDList(model.NewIDSet(*patch.AssignedTo).Sorted())
	}

	e.applyUpdate(&before, after)
}

// DeleteTask removes a task from both views unconditionally.
func (e *Engine) DeleteTask(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	if t, ok := e.findStored(id); ok {
		e.applyDelete(id, t.ProjectID)
		return
	}
	e.applyDelete(id, "")
}

// findStored looks a task up in either view. Callers hold e.mu.
func (e *Engine) findStored(id string) (model.Task, bool) {
	if t, ok := e.today[id]; ok {
		return t.Task, true
	}
	for _, tasks := range e.projects {
		if t, ok := findByID(tasks, id); ok {
			return t, true
		}
	}
	return model.Task{}, false
}
