package cli

import (
	"github.com/spf13/cobra"

	"taskdeck-cli/internal/format"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project-scoped queries",
	}
	cmd.AddCommand(newProjectListCmd(app))
	cmd.AddCommand(newProjectTasksCmd(app))
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects you can access",
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
			projects, err := st.AccessibleProjects(ctx, user)
			if err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), projects, app.Format, app.PrettyJSON)
		},
	}
}

func newProjectTasksCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <project-id>",
		Short: "List all tasks in one project (access-gated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, st, err := newEngine(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			if err := engine.RefreshProjectTasks(ctx, args[0]); err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), engine.ProjectTasks(args[0]), app.Format, app.PrettyJSON)
		},
	}
}
