package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck-cli/internal/model"
)

// NewTaskID returns a fresh task id.
func NewTaskID() string {
	return "task-" + uuid.NewString()[:8]
}

// InsertTask writes a new task row. The id is generated when empty.
func (s *Store) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = NewTaskID()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.StatusTodo
	}

	assigned, err := json.Marshal(t.Assignees().Sorted())
	if err != nil {
		return model.Task{}, &QueryError{Op: "insert_task", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, title, status, assigned_to_json, created_by, created_at_unixms, updated_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Status, string(assigned), t.CreatedBy,
		t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli())
	if err != nil {
		return model.Task{}, &QueryError{Op: "insert_task", Err: err}
	}
	return t, nil
}

// TaskPatch describes a partial task update; nil fields are left untouched.
type TaskPatch struct {
	Title      *string
	Status     *model.TaskStatus
	AssignedTo *[]string
}

// UpdateTask applies patch to the stored task and returns before/after copies.
func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) (before, after model.Task, err error) {
	before, err = s.FindTask(ctx, id)
	if err != nil {
		return model.Task{}, model.Task{}, err
	}

	after = before
	if patch.Title != nil {
		after.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		after.AssignedTo = model.IDList(model.NewIDSet(*patch.AssignedTo).Sorted())
	}
	after.UpdatedAt = time.Now().UTC()

	assigned, err := json.Marshal([]string(after.AssignedTo))
	if err != nil {
		return model.Task{}, model.Task{}, &QueryError{Op: "update_task", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, status = ?, assigned_to_json = ?, updated_at_unixms = ?
		WHERE id = ?`,
		after.Title, after.Status, string(assigned), after.UpdatedAt.UnixMilli(), after.ID)
	if err != nil {
		return model.Task{}, model.Task{}, &QueryError{Op: "update_task", Err: err}
	}
	return before, after, nil
}

// DeleteTask removes a task row and returns the removed copy.
func (s *Store) DeleteTask(ctx context.Context, id string) (model.Task, error) {
	t, err := s.FindTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return model.Task{}, &QueryError{Op: "delete_task", Err: err}
	}
	return t, nil
}

// UpsertProject writes a project row.
func (s *Store) UpsertProject(ctx context.Context, p model.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	archived := 0
	if p.Archived {
		archived = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO projects (id, name, owner_id, archived, created_at_unixms)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, archived, p.CreatedAt.UnixMilli())
	if err != nil {
		return &QueryError{Op: "upsert_project", Err: err}
	}
	return nil
}

// UpsertMembership writes one membership row.
func (s *Store) UpsertMembership(ctx context.Context, projectID, userID string, status model.MemberStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memberships (project_id, user_id, status)
		VALUES (?, ?, ?)`, projectID, userID, status)
	if err != nil {
		return &QueryError{Op: "upsert_membership", Err: err}
	}
	return nil
}

// DeleteMembership removes one membership row.
func (s *Store) DeleteMembership(ctx context.Context, projectID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return &QueryError{Op: "delete_membership", Err: err}
	}
	return nil
}

// UpsertUser writes a user row.
func (s *Store) UpsertUser(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return &QueryError{Op: "upsert_user", Err: err}
	}
	return nil
}
