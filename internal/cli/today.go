package cli

import (
	"github.com/spf13/cobra"

	"taskdeck-cli/internal/format"
	"taskdeck-cli/internal/tui"
)

func newTodayCmd(app *App) *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "today",
		Short: "List tasks assigned to you, freshly loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, st, err := newEngine(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			if live {
				if err := engine.Start(ctx); err != nil {
					return err
				}
				return tui.Run(engine)
			}

			if err := engine.RefreshTodayTasks(ctx); err != nil {
				return err
			}
			return format.Write(cmd.OutOrStdout(), engine.TodayTasks(), app.Format, app.PrettyJSON)
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Keep the view open and updating (same as `taskdeck watch`)")
	return cmd
}
