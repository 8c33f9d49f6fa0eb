package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"taskdeck-cli/internal/format"
)

func newInitCmd(app *App) *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local database and record the session user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := strings.TrimSpace(app.UserID)
			if user == "" {
				return errors.New("init requires --user")
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()

			if demo {
				if err := st.SeedDemo(ctx, user); err != nil {
					return err
				}
			} else if err := st.SetCurrentUser(ctx, user); err != nil {
				return err
			}

			out := map[string]any{"user": user, "demo": demo}
			return format.Write(cmd.OutOrStdout(), out, app.Format, app.PrettyJSON)
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Seed a demo team with projects and tasks")
	return cmd
}
