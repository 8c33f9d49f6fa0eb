package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"taskdeck-cli/internal/model"
)

const taskColumns = `id, project_id, title, status, assigned_to_json, created_by, created_at_unixms, updated_at_unixms`

func scanTask(rows interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	var assignedJSON string
	var createdMS, updatedMS int64
	if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &assignedJSON, &t.CreatedBy, &createdMS, &updatedMS); err != nil {
		return model.Task{}, err
	}
	if err := json.Unmarshal([]byte(assignedJSON), &t.AssignedTo); err != nil {
		// Tolerate hand-edited rows; an unreadable list means unassigned.
		t.AssignedTo = nil
	}
	t.CreatedAt = time.UnixMilli(createdMS).UTC()
	t.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return t, nil
}

func (s *Store) queryTasks(ctx context.Context, op, query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Op: op, Err: err}
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &QueryError{Op: op, Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: op, Err: err}
	}
	return out, nil
}

// AssignedTasks returns all tasks whose assigned_to list contains userID.
// Assignment is stored as a JSON array, so the filter happens here rather
// than in SQL; team-sized datasets make this a non-issue.
func (s *Store) AssignedTasks(ctx context.Context, userID string) ([]model.Task, error) {
	all, err := s.queryTasks(ctx, "assigned_tasks",
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at_unixms, id`)
	if err != nil {
		return nil, err
	}
	var out []model.Task
	for _, t := range all {
		if t.AssignedToUser(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ProjectTasks returns every task in one project, in creation order.
func (s *Store) ProjectTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	return s.queryTasks(ctx, "project_tasks",
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at_unixms, id`, projectID)
}

// FindTask returns one task by id.
func (s *Store) FindTask(ctx context.Context, id string) (model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		return model.Task{}, &QueryError{Op: "find_task", Err: err}
	}
	defer rows.Close()
	if !rows.Next() {
		return model.Task{}, NotFoundError{Kind: "task", ID: id}
	}
	t, err := scanTask(rows)
	if err != nil {
		return model.Task{}, &QueryError{Op: "find_task", Err: err}
	}
	return t, nil
}

// AccessibleProjects returns projects the user owns or has a membership row
// in. Row status is intentionally not filtered; see internal/access.
func (s *Store) AccessibleProjects(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.name, p.owner_id, p.archived, p.created_at_unixms
		FROM projects p
		LEFT JOIN memberships m ON m.project_id = p.id
		WHERE p.owner_id = ? OR m.user_id = ?
		ORDER BY p.created_at_unixms, p.id`, userID, userID)
	if err != nil {
		return nil, &QueryError{Op: "accessible_projects", Err: err}
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		var archived int
		var createdMS int64
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &archived, &createdMS); err != nil {
			return nil, &QueryError{Op: "accessible_projects", Err: err}
		}
		p.Archived = archived != 0
		p.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "accessible_projects", Err: err}
	}
	return out, nil
}

// Membership returns the owner and membership rows for one project.
func (s *Store) Membership(ctx context.Context, projectID, userID string) (model.Membership, error) {
	_ = userID // the full row set is returned; the resolver filters

	m := model.Membership{ProjectID: projectID}
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM projects WHERE id = ?`, projectID).Scan(&m.OwnerID)
	if err == sql.ErrNoRows {
		return model.Membership{}, NotFoundError{Kind: "project", ID: projectID}
	}
	if err != nil {
		return model.Membership{}, &QueryError{Op: "membership", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, status FROM memberships WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return model.Membership{}, &QueryError{Op: "membership", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var mem model.Member
		if err := rows.Scan(&mem.UserID, &mem.Status); err != nil {
			return model.Membership{}, &QueryError{Op: "membership", Err: err}
		}
		m.Members = append(m.Members, mem)
	}
	if err := rows.Err(); err != nil {
		return model.Membership{}, &QueryError{Op: "membership", Err: err}
	}
	return m, nil
}
