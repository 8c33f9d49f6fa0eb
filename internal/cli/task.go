package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"taskdeck-cli/internal/format"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/store"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and mutate tasks",
	}
	cmd.AddCommand(newTaskAddCmd(app))
	cmd.AddCommand(newTaskShowCmd(app))
	cmd.AddCommand(newTaskAssignCmd(app))
	cmd.AddCommand(newTaskStatusCmd(app))
	cmd.AddCommand(newTaskRmCmd(app))
	return cmd
}

func splitIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newTaskAddCmd(app *App) *cobra.Command {
	var projectID, title, assign string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := resolveUser(ctx, st, app)
			if err != nil {
				return err
			}

			t, err := st.InsertTask(ctx, model.Task{
				ProjectID:  strings.TrimSpace(projectID),
				Title:      strings.TrimSpace(title),
				AssignedTo: model.IDList(splitIDs(assign)),
				CreatedBy:  user,
			})
			if err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), t, app.Format, app.PrettyJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id (required)")
	cmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&assign, "assign", "", "Comma-separated assignee user ids")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := st.FindTask(ctx, args[0])
			if err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), t, app.Format, app.PrettyJSON)
		},
	}
}

func newTaskAssignCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <user-ids>",
		Short: "Replace a task's assignees (comma-separated; empty string clears)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := splitIDs(args[1])
			return patchTask(cmd, app, args[0], store.TaskPatch{AssignedTo: &ids})
		},
	}
}

func newTaskStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <todo|in_progress|done>",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseTaskStatus(args[1])
			if err != nil {
				return err
			}
			return patchTask(cmd, app, args[0], store.TaskPatch{Status: &status})
		},
	}
}

func patchTask(cmd *cobra.Command, app *App, id string, patch store.TaskPatch) error {
	ctx := cmd.Context()
	st, err := openStore(ctx, app)
	if err != nil {
		return err
	}
	defer st.Close()

	_, after, err := st.UpdateTask(ctx, id, patch)
	if err != nil {
		return err
	}
	return format.Write(cmd.OutOrStdout(), after, app.Format, app.PrettyJSON)
}

func newTaskRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := st.DeleteTask(ctx, args[0])
			if err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), t, app.Format, app.PrettyJSON)
		},
	}
}
