package sync

import (
	"context"

	"taskdeck-cli/internal/model"
)

// HandleChange is the single dispatch point for inbound channel events. It
// gates on project access, then applies the change to both views. Applying
// the same event twice is a no-op beyond the second in-place patch, which
// keeps the channel path idempotent with optimistic writes.
func (e *Engine) HandleChange(ev model.ChangeEvent) {
	projectID := ev.ProjectID()
	if projectID == "" {
		return
	}
	if !e.isActive() {
		return
	}
	// Access is re-evaluated per event. The resolver caches per project and
	// does its own locking, so this stays outside the engine lock.
	if !e.resolver.HasAccess(context.Background(), projectID) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}

	switch ev.Op {
	case model.OpInsert:
		if ev.After != nil {
			e.applyInsert(*ev.After)
		}
	case model.OpUpdate:
		if ev.After != nil {
			e.applyUpdate(ev.Before, *ev.After)
		}
	case model.OpDelete:
		if ev.Before != nil {
			e.applyDelete(ev.Before.ID, ev.Before.ProjectID)
		} else if ev.After != nil {
			e.applyDelete(ev.After.ID, ev.After.ProjectID)
		}
	}
}

// applyInsert adds a task to both views. Callers hold e.mu.
func (e *Engine) applyInsert(t model.Task) {
	if t.AssignedToUser(e.userID) {
		// Skip if present: an optimistic add may already have written this
		// id, and the authoritative copy must not duplicate it.
		if _, ok := e.today[t.ID]; !ok {
			e.today[t.ID] = model.TaskWithProject{Task: t, ProjectName: e.projectName(t.ProjectID)}
		}
	}
	// The project index always takes the insert: update in place when an
	// optimistic write got there first, else append.
	e.projects[t.ProjectID] = upsertByID(e.projects[t.ProjectID], t)
}

// applyUpdate applies the four-way reassignment classification. Callers hold
// e.mu. A nil before counts as unassigned.
func (e *Engine) applyUpdate(before *model.Task, after model.Task) {
	wasAssigned := before != nil && before.AssignedToUser(e.userID)
	isAssigned := after.AssignedToUser(e.userID)

	switch {
	case wasAssigned && !isAssigned:
		delete(e.today, after.ID)
	case !wasAssigned && isAssigned:
		e.today[after.ID] = model.TaskWithProject{Task: after, ProjectName: e.projectName(after.ProjectID)}
	case wasAssigned && isAssigned:
		e.today[after.ID] = model.TaskWithProject{Task: after, ProjectName: e.projectName(after.ProjectID)}
	default:
		// Neither side involves the current user; the today view is
		// untouched.
	}

	// The project index is patched in place in all four cases. If the row
	// was never indexed (event raced ahead of the first project load), the
	// update is indexed as an upsert so later patches have a target.
	if !patchByID(e.projects[after.ProjectID], after) {
		e.projects[after.ProjectID] = append(e.projects[after.ProjectID], after)
	}
}

// applyDelete removes the id from both views unconditionally. Callers hold
// e.mu.
func (e *Engine) applyDelete(id, projectID string) {
	delete(e.today, id)
	if projectID != "" {
		e.projects[projectID] = removeByID(e.projects[projectID], id)
		return
	}
	for pid := range e.projects {
		e.projects[pid] = removeByID(e.projects[pid], id)
	}
}
