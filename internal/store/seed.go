package store

import (
	"context"

	"taskdeck-cli/internal/model"
)

// SeedDemo populates an empty database with a small two-project team fixture
// and records userID as the current user. Used by `taskdeck init --demo`.
func (s *Store) SeedDemo(ctx context.Context, userID string) error {
	users := []struct{ id, name string }{
		{userID, "You"},
		{"u-ada", "Ada"},
		{"u-lin", "Lin"},
	}
	for _, u := range users {
		if err := s.UpsertUser(ctx, u.id, u.name); err != nil {
			return err
		}
	}

	projects := []model.Project{
		{ID: "p-launch", Name: "Launch", OwnerID: userID},
		{ID: "p-infra", Name: "Infra", OwnerID: "u-ada"},
	}
	for _, p := range projects {
		if err := s.UpsertProject(ctx, p); err != nil {
			return err
		}
	}
	if err := s.UpsertMembership(ctx, "p-infra", userID, model.MemberActive); err != nil {
		return err
	}
	if err := s.UpsertMembership(ctx, "p-infra", "u-lin", model.MemberInvited); err != nil {
		return err
	}

	tasks := []model.Task{
		{ID: "task-demo-1", ProjectID: "p-launch", Title: "Write launch checklist", AssignedTo: model.IDList{userID}, CreatedBy: userID},
		{ID: "task-demo-2", ProjectID: "p-launch", Title: "Review copy", AssignedTo: model.IDList{"u-ada"}, CreatedBy: userID},
		{ID: "task-demo-3", ProjectID: "p-infra", Title: "Rotate deploy keys", AssignedTo: model.IDList{userID, "u-ada"}, CreatedBy: "u-ada"},
	}
	for _, t := range tasks {
		if _, err := s.InsertTask(ctx, t); err != nil {
			return err
		}
	}

	return s.SetCurrentUser(ctx, userID)
}
